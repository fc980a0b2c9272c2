package webui

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/kynzi/marblesite/internal/racing"
	"github.com/kynzi/marblesite/internal/util/httputil"
	"github.com/kynzi/marblesite/internal/util/sliceutil"
)

type adminResultsRacer struct {
	ID   uint
	Name string
}

type adminResultsData struct {
	CSRFField template.HTML
	Number    int
	Date      string
	Cup       string
	Racers    []adminResultsRacer
	Errors    []string
	Success   string
}

type adminResultsDataBuilder struct{}

func (adminResultsDataBuilder) prefill(ctx context.Context, bc builderCtx, d *adminResultsData) error {
	cfg := bc.Config

	last, err := cfg.Racing.LastRaceNumber(ctx)
	if err != nil {
		return fmt.Errorf("get last race number: %w", err)
	}
	d.Number = last + 1
	d.Date = time.Now().Format("2006-01-02")

	series, err := cfg.Racing.ActiveSeries(ctx)
	if err != nil {
		return fmt.Errorf("get active series: %w", err)
	}
	if !series.Placeholder() {
		d.Cup = series.Name
	}

	racers, err := cfg.Racing.ListRacers(ctx)
	if err != nil {
		return fmt.Errorf("list racers: %w", err)
	}
	d.Racers = sliceutil.Map(racers, func(r racing.Racer) adminResultsRacer {
		return adminResultsRacer{ID: r.ID, Name: r.Name}
	})
	return nil
}

func (b adminResultsDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	req := bc.Req
	cfg := bc.Config

	d := &adminResultsData{CSRFField: csrf.TemplateField(req)}

	switch req.Method {
	case http.MethodGet:
		if err := b.prefill(ctx, bc, d); err != nil {
			return nil, err
		}
		return d, nil
	case http.MethodPost:
		if err := req.ParseForm(); err != nil {
			return nil, httputil.MakeError(http.StatusBadRequest, "bad form data")
		}
		number, err := strconv.Atoi(req.FormValue("number"))
		if err != nil || number <= 0 {
			d.Errors = append(d.Errors, "Race number must be a positive integer")
		}
		date, err := time.Parse("2006-01-02", req.FormValue("date"))
		if err != nil {
			d.Errors = append(d.Errors, "Date must be in YYYY-MM-DD format")
		}
		cup := strings.TrimSpace(req.FormValue("cup"))
		if cup == "" {
			d.Errors = append(d.Errors, "Cup name is required")
		}
		winnerID, err := strconv.ParseUint(req.FormValue("winner"), 10, 64)
		if err != nil {
			d.Errors = append(d.Errors, "A winner must be selected")
		}
		if len(d.Errors) != 0 {
			if err := b.prefill(ctx, bc, d); err != nil {
				return nil, err
			}
			return d, nil
		}

		race, err := cfg.Racing.AddRace(ctx, number, date, cup)
		if err != nil {
			return nil, fmt.Errorf("add race: %w", err)
		}
		if _, err := cfg.Racing.AddResult(ctx, race.ID, uint(winnerID)); err != nil {
			if errors.Is(err, racing.ErrNoSuchRacer) {
				d.Errors = append(d.Errors, "A winner must be selected")
				if err := b.prefill(ctx, bc, d); err != nil {
					return nil, err
				}
				return d, nil
			}
			return nil, fmt.Errorf("add result: %w", err)
		}

		winner, err := cfg.Racing.GetRacerByID(ctx, uint(winnerID))
		if err != nil {
			return nil, fmt.Errorf("get winner: %w", err)
		}
		if winner == nil {
			return nil, fmt.Errorf("winner %v vanished", winnerID)
		}
		subject := fmt.Sprintf("Race %v results are in!", race.Number)
		content := fmt.Sprintf(
			"%v took the win in race %v of the %v! Check out the latest standings on the site.",
			winner.Name, race.Number, cup)
		go func() {
			_ = cfg.Mailer.AlertAll(context.WithoutCancel(ctx), subject, content)
		}()

		d.Success = fmt.Sprintf("Recorded race %v, won by %v. Subscribers are being notified.",
			race.Number, winner.Name)
		if err := b.prefill(ctx, bc, d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func adminResultsPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{RequireAdmin: true}, templ, adminResultsDataBuilder{}, "admin_results")
}
