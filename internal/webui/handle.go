package webui

import (
	"context"
	"encoding/hex"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/kynzi/marblesite/internal/adminauth"
	"github.com/kynzi/marblesite/internal/mailing"
	"github.com/kynzi/marblesite/internal/media"
	"github.com/kynzi/marblesite/internal/racing"
	"golang.org/x/time/rate"
)

type SessionOptions struct {
	Key             []byte        `toml:"-"`
	MaxAge          time.Duration `toml:"max-age"`
	CleanupInterval time.Duration `toml:"cleanup-interval"`
}

func (o *SessionOptions) FillDefaults() {
	if o.MaxAge == 0 {
		o.MaxAge = 24 * time.Hour
	}
	if o.CleanupInterval == 0 {
		o.CleanupInterval = 1 * time.Hour
	}
}

func (o *SessionOptions) SetupSession(opts *sessions.Options) {
	opts.Path = "/"
	opts.MaxAge = int(o.MaxAge.Seconds())
	opts.HttpOnly = true
	opts.SameSite = http.SameSiteLaxMode
}

type SessionStoreFactory interface {
	NewSessionStore(ctx context.Context, opts SessionOptions) sessions.Store
}

type Config struct {
	Racing              racing.DB
	Media               media.DB
	Mailing             mailing.DB
	Admins              *adminauth.Manager
	Mailer              *mailing.Mailer
	SessionStoreFactory SessionStoreFactory
	ServerID            string

	prefix       string
	opts         *Options
	sessionStore sessions.Store
	formLimiter  *rate.Limiter
}

type Options struct {
	Session      SessionOptions `toml:"session"`
	CSRFKey      []byte         `toml:"-"`
	CSRFInsecure bool           `toml:"csrf-insecure"`
	// FormRPSLimit throttles the public subscribe and contact form posts.
	FormRPSLimit float64 `toml:"form-rps-limit"`
	FormRPSBurst int     `toml:"form-rps-burst"`
}

func (o *Options) FillDefaults() {
	o.Session.FillDefaults()
	if o.FormRPSLimit == 0.0 {
		o.FormRPSLimit = 1
	}
	if o.FormRPSBurst == 0 {
		o.FormRPSBurst = 5
	}
}

func must[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}
	return t
}

func genServerID() string {
	var buf [8]byte
	r := rand.Uint64()
	for i := range buf {
		buf[i] = byte(r >> (8 * i))
	}
	return hex.EncodeToString(buf[:])
}

func Handle(ctx context.Context, log *slog.Logger, mux *http.ServeMux, prefix string, cfg Config, o Options) {
	o.FillDefaults()

	if cfg.ServerID == "" {
		cfg.ServerID = genServerID()
	}
	cfg.prefix = prefix
	cfg.opts = &o
	cfg.sessionStore = cfg.SessionStoreFactory.NewSessionStore(ctx, o.Session)
	cfg.formLimiter = rate.NewLimiter(rate.Limit(o.FormRPSLimit), o.FormRPSBurst)

	b := middlewareBuilder{
		Log: log,
		CSRFProtect: csrf.Protect(o.CSRFKey,
			csrf.Secure(!o.CSRFInsecure),
			csrf.Path("/"),
		),
		Compress: gziphandler.GzipHandler,
	}
	templ := newTemplator(&cfg)

	mux.Handle(prefix+"/css/", b.WrapStatic(http.StripPrefix(prefix, http.FileServerFS(staticData))))
	mux.Handle(prefix+"/{$}", b.WrapPage(must(mainPage(log, &cfg, templ))))
	mux.Handle(prefix+"/racers", b.WrapPage(must(racersPage(log, &cfg, templ))))
	mux.Handle(prefix+"/races", b.WrapPage(must(racesPage(log, &cfg, templ))))
	mux.Handle(prefix+"/videos", b.WrapPage(must(videosPage(log, &cfg, templ))))
	mux.Handle(prefix+"/subscribe", b.WrapPage(must(subscribePage(log, &cfg, templ))))
	mux.Handle(prefix+"/contact", b.WrapPage(must(contactPage(log, &cfg, templ))))
	mux.Handle(prefix+"/signin", b.WrapPage(must(signinPage(log, &cfg, templ))))
	mux.Handle(prefix+"/signout", b.WrapPage(must(signoutPage(log, &cfg, templ))))
	mux.Handle(prefix+"/admin/results", b.WrapPage(must(adminResultsPage(log, &cfg, templ))))
	mux.Handle(prefix+"/admin/racers", b.WrapPage(must(adminRacersPage(log, &cfg, templ))))
	mux.Handle(prefix+"/admin/series", b.WrapPage(must(adminSeriesPage(log, &cfg, templ))))
	mux.Handle(prefix+"/admin/videos", b.WrapPage(must(adminVideosPage(log, &cfg, templ))))
	mux.Handle(prefix+"/admin/alerts", b.WrapPage(must(adminAlertsPage(log, &cfg, templ))))
	mux.Handle(prefix+"/", b.WrapPage(must(e404Page(log, &cfg, templ))))
}
