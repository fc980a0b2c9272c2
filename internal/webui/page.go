package webui

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/kynzi/marblesite/internal/adminauth"
	"github.com/kynzi/marblesite/internal/util/httputil"
	"github.com/kynzi/marblesite/internal/util/slogx"
)

const sessionName = "marblesite_session"

type adminInfo struct {
	ID       uint
	Username string
	Name     string
}

func makeAdminInfo(admin *adminauth.Admin) *adminInfo {
	if admin == nil {
		return nil
	}
	return &adminInfo{
		ID:       admin.ID,
		Username: admin.Username,
		Name:     admin.Name,
	}
}

type dataBuilder interface {
	Build(ctx context.Context, bc builderCtx) (any, error)
}

type pageOptions struct {
	// NoAdminInfo skips session handling entirely, for pages that never
	// care who is signed in.
	NoAdminInfo bool
	// RequireAdmin redirects anonymous visitors to the sign-in page.
	RequireAdmin bool
}

type page struct {
	name     string
	cfg      *Config
	pageOpts pageOptions
	log      *slog.Logger
	b        dataBuilder
	tmpl     *template.Template
	errTmpl  *template.Template
}

type pageData struct {
	Data any
	// Admin is nil for anonymous visitors.
	Admin *adminInfo
	// SeriesName is shown in the site header. Never empty: the store
	// returns the placeholder series when nothing is active.
	SeriesName string
}

type builderCtx struct {
	Log    *slog.Logger
	Config *Config
	Admin  *adminInfo
	Req    *http.Request
	writer http.ResponseWriter
}

func (bc *builderCtx) Redirect(location string) error {
	return httputil.MakeRedirectError(http.StatusSeeOther, "redirecting", bc.Config.prefix+location)
}

func (bc *builderCtx) ResetSession(newAdmin *adminInfo) {
	log := bc.Log
	session, _ := bc.Config.sessionStore.Get(bc.Req, sessionName)
	session.Options.MaxAge = -1
	for k := range session.Values {
		delete(session.Values, k)
	}
	if err := session.Save(bc.Req, bc.writer); err != nil {
		log.Error("expire current session", slogx.Err(err))
	}
	session, _ = bc.Config.sessionStore.New(bc.Req, sessionName)
	bc.Config.opts.Session.SetupSession(session.Options)
	if newAdmin != nil {
		session.Values["admin"] = *newAdmin
	}
	if err := session.Save(bc.Req, bc.writer); err != nil {
		log.Error("apply new session", slogx.Err(err))
	}
	if newAdmin == nil {
		bc.Admin = nil
	} else {
		cp := *newAdmin
		bc.Admin = &cp
	}
}

func (p *page) renderError(log *slog.Logger, w http.ResponseWriter, httpErr *httputil.Error, seriesName string) {
	if 300 <= httpErr.Code() && httpErr.Code() <= 399 {
		log.Info("send http redirect",
			slog.Int("code", httpErr.Code()),
			slog.String("msg", httpErr.Message()),
		)
		httpErr.ApplyHeaders(w)
		w.WriteHeader(httpErr.Code())
		return
	}

	log.Info("send http status error",
		slog.Int("code", httpErr.Code()),
		slog.String("msg", httpErr.Message()),
	)
	var b bytes.Buffer
	if err := p.errTmpl.ExecuteTemplate(&b, "base.html", pageData{
		Data: struct {
			Code    int
			Message string
		}{
			Code:    httpErr.Code(),
			Message: httpErr.Message(),
		},
		SeriesName: seriesName,
	}); err != nil {
		log.Error("error rendering page", slogx.Err(err))
		writeHTTPErr(log, w, fmt.Errorf("render page"))
		return
	}
	w.Header().Set("Content-Type", "text/html")
	httpErr.ApplyHeaders(w)
	w.WriteHeader(httpErr.Code())
	if _, err := w.Write(b.Bytes()); err != nil {
		log.Error("error writing page data", slogx.Err(err))
	}
}

func (p *page) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	log := p.log.With(slog.String("rid", httputil.ExtractReqID(ctx)))
	log.Info("handle page request",
		slog.String("method", req.Method),
		slog.String("addr", req.RemoteAddr),
	)

	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		log.Warn("method not allowed")
		writeHTTPErr(log, w, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed"))
		return
	}

	var admin *adminInfo
	if !p.pageOpts.NoAdminInfo {
		session, _ := p.cfg.sessionStore.Get(req, sessionName)
		if adminAny := session.Values["admin"]; adminAny != nil {
			if rawAdmin, ok := adminAny.(adminInfo); ok {
				admin = &rawAdmin
			}
		}
		if session.IsNew {
			p.cfg.opts.Session.SetupSession(session.Options)
			if err := p.cfg.sessionStore.Save(req, w, session); err != nil {
				log.Error("could not save session", slogx.Err(err))
			}
		}
	}

	// The active series name is shown in the header on every page. The
	// sentinel guarantees there is always something to show.
	seriesName := ""
	if activeSeries, err := p.cfg.Racing.ActiveSeries(ctx); err != nil {
		log.Error("could not get active series", slogx.Err(err))
	} else {
		seriesName = activeSeries.Name
	}

	bc := builderCtx{
		Log:    log,
		Config: p.cfg,
		Admin:  admin,
		Req:    req,
		writer: w,
	}

	if p.pageOpts.RequireAdmin && admin == nil {
		redirErr := (*httputil.Error)(nil)
		_ = errors.As(
			httputil.MakeRedirectError(http.StatusSeeOther, "sign-in required", p.cfg.prefix+"/signin"),
			&redirErr)
		p.renderError(log, w, redirErr, seriesName)
		return
	}

	data, err := p.b.Build(ctx, bc)
	if err != nil {
		if httpErr := (*httputil.Error)(nil); errors.As(err, &httpErr) {
			p.renderError(log, w, httpErr, seriesName)
			return
		}
		log.Error("error building page data", slogx.Err(err))
		writeHTTPErr(log, w, fmt.Errorf("build page"))
		return
	}

	var b bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&b, "base.html", pageData{
		Data:       data,
		Admin:      bc.Admin,
		SeriesName: seriesName,
	}); err != nil {
		log.Error("error rendering page", slogx.Err(err))
		writeHTTPErr(log, w, fmt.Errorf("render page"))
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b.Bytes()); err != nil {
		log.Error("error writing page data", slogx.Err(err))
	}
}

func newPage(
	log *slog.Logger,
	cfg *Config,
	pageOpts pageOptions,
	templator *templator,
	builder dataBuilder,
	name string,
) (http.Handler, error) {
	tmpl, err := templator.Get(name)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}
	errTmpl, err := templator.Get("error")
	if err != nil {
		return nil, fmt.Errorf("template \"error\": %w", err)
	}
	return &page{
		name:     name,
		cfg:      cfg,
		pageOpts: pageOpts,
		log:      log.With(slog.String("page", name)),
		b:        builder,
		tmpl:     tmpl,
		errTmpl:  errTmpl,
	}, nil
}

func init() {
	gob.Register(adminInfo{})
}
