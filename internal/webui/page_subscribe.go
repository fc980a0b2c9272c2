package webui

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/kynzi/marblesite/internal/mailing"
	"github.com/kynzi/marblesite/internal/util/httputil"
)

type subscribeData struct {
	CSRFField template.HTML
	First     string
	Last      string
	Address   string
	Errors    []string
	Success   string
}

type subscribeDataBuilder struct{}

func (subscribeDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	req := bc.Req
	cfg := bc.Config

	switch req.Method {
	case http.MethodGet:
		return &subscribeData{
			CSRFField: csrf.TemplateField(req),
		}, nil
	case http.MethodPost:
		if !cfg.formLimiter.Allow() {
			return nil, httputil.MakeError(http.StatusTooManyRequests, "too many requests")
		}
		if err := req.ParseForm(); err != nil {
			return nil, httputil.MakeError(http.StatusBadRequest, "bad form data")
		}
		d := &subscribeData{
			CSRFField: csrf.TemplateField(req),
			First:     strings.TrimSpace(req.FormValue("first")),
			Last:      strings.TrimSpace(req.FormValue("last")),
			Address:   strings.TrimSpace(req.FormValue("address")),
		}
		if d.First == "" {
			d.Errors = append(d.Errors, "First name is required")
		}
		if d.Last == "" {
			d.Errors = append(d.Errors, "Last name is required")
		}
		if _, err := mail.ParseAddress(d.Address); err != nil {
			d.Errors = append(d.Errors, "A valid email address is required")
		}
		if len(d.Errors) != 0 {
			return d, nil
		}
		existing, err := cfg.Mailing.GetEmailByAddress(ctx, d.Address)
		if err != nil {
			return nil, fmt.Errorf("check subscription: %w", err)
		}
		if existing != nil {
			d.Errors = append(d.Errors, "This address is already subscribed")
			return d, nil
		}
		if _, err := cfg.Mailing.AddEmail(ctx, mailing.Email{
			First:   d.First,
			Last:    d.Last,
			Address: d.Address,
		}); err != nil {
			return nil, fmt.Errorf("add subscription: %w", err)
		}
		return &subscribeData{
			CSRFField: csrf.TemplateField(req),
			Success:   "You are on the list! Race alerts are coming your way.",
		}, nil
	default:
		return nil, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func subscribePage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{}, templ, subscribeDataBuilder{}, "subscribe")
}
