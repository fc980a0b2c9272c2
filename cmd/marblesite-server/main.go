package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/BurntSushi/toml"
	"github.com/kynzi/marblesite/internal/adminauth"
	"github.com/kynzi/marblesite/internal/database"
	"github.com/kynzi/marblesite/internal/mailing"
	"github.com/kynzi/marblesite/internal/webui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "marblesite-server",
	Args:  cobra.ExactArgs(0),
	Short: "Start the marble racing site",
	Long: `Marblesite is a community site for marble racing: standings, racers,
race history, videos and email alerts for subscribers.

This command runs the web server.
`,
}

func main() {
	p := serverCmd.Flags()
	optsPath := p.StringP(
		"options", "o", "",
		"options file",
	)
	secretsPath := p.StringP(
		"secrets", "s", "",
		"secrets file",
	)
	if err := serverCmd.MarkFlagRequired("options"); err != nil {
		panic(err)
	}
	if err := serverCmd.MarkFlagRequired("secrets"); err != nil {
		panic(err)
	}

	serverCmd.RunE = func(cmd *cobra.Command, _args []string) error {
		rawSecrets, err := os.ReadFile(*secretsPath)
		if err != nil {
			rawSecrets = nil
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("read secrets: %w", err)
			}
		}
		var secrets Secrets
		if err := toml.Unmarshal(rawSecrets, &secrets); err != nil {
			return fmt.Errorf("unmarshal secrets: %w", err)
		}
		secretsChanged, err := secrets.GenerateMissing()
		if err != nil {
			return fmt.Errorf("generate secrets: %w", err)
		}
		if secretsChanged {
			newRawSecrets, err := toml.Marshal(&secrets)
			if err != nil {
				return fmt.Errorf("marshal secrets: %w", err)
			}
			if err := os.WriteFile(*secretsPath, newRawSecrets, 0600); err != nil {
				return fmt.Errorf("write secrets: %w", err)
			}
		}

		rawOpts, err := os.ReadFile(*optsPath)
		if err != nil {
			return fmt.Errorf("read options: %w", err)
		}
		var opts Options
		if err := toml.Unmarshal(rawOpts, &opts); err != nil {
			return fmt.Errorf("unmarshal options: %w", err)
		}
		if err := opts.MixSecrets(&secrets); err != nil {
			return fmt.Errorf("mix secrets into options: %w", err)
		}
		opts.FillDefaults()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		var handler slog.Handler
		if isatty.IsTerminal(os.Stderr.Fd()) {
			handler = slog.NewTextHandler(os.Stderr, nil)
		} else {
			handler = slog.NewJSONHandler(os.Stderr, nil)
		}
		log := slog.New(handler)

		db, err := database.New(log, opts.DB)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		if opts.SeedTestData {
			if err := db.SeedTestData(ctx); err != nil {
				return fmt.Errorf("seed test data: %w", err)
			}
		}

		admins, err := adminauth.NewManager(ctx, log, db, opts.Admins)
		if err != nil {
			return fmt.Errorf("create admin manager: %w", err)
		}
		mailer := mailing.NewMailer(log, db, opts.Mail)

		mux := http.NewServeMux()
		webui.Handle(ctx, log, mux, "", webui.Config{
			Racing:              db,
			Media:               db,
			Mailing:             db,
			Admins:              admins,
			Mailer:              mailer,
			SessionStoreFactory: db,
		}, opts.WebUI)

		servs, err := newServers(ctx, log, &opts, mux)
		if err != nil {
			return fmt.Errorf("create servers: %w", err)
		}
		servs.Go()
		defer servs.Shutdown()

		<-ctx.Done()
		return nil
	}

	if err := serverCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
