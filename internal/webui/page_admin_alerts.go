package webui

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/kynzi/marblesite/internal/util/httputil"
)

type adminAlertsData struct {
	CSRFField   template.HTML
	Subscribers int
	Subject     string
	Content     string
	Errors      []string
	Success     string
}

type adminAlertsDataBuilder struct{}

func (adminAlertsDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	req := bc.Req
	cfg := bc.Config

	emails, err := cfg.Mailing.ListEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	d := &adminAlertsData{
		CSRFField:   csrf.TemplateField(req),
		Subscribers: len(emails),
	}

	switch req.Method {
	case http.MethodGet:
		return d, nil
	case http.MethodPost:
		if err := req.ParseForm(); err != nil {
			return nil, httputil.MakeError(http.StatusBadRequest, "bad form data")
		}
		d.Subject = strings.TrimSpace(req.FormValue("subject"))
		d.Content = strings.TrimSpace(req.FormValue("content"))
		if d.Subject == "" {
			d.Errors = append(d.Errors, "Subject is required")
		}
		if d.Content == "" {
			d.Errors = append(d.Errors, "Message is required")
		}
		if len(d.Errors) != 0 {
			return d, nil
		}
		subject, content := d.Subject, d.Content
		go func() {
			_ = cfg.Mailer.AlertAll(context.WithoutCancel(ctx), subject, content)
		}()
		return &adminAlertsData{
			CSRFField:   csrf.TemplateField(req),
			Subscribers: d.Subscribers,
			Success:     fmt.Sprintf("Alert is on its way to %v subscribers", d.Subscribers),
		}, nil
	default:
		return nil, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func adminAlertsPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{RequireAdmin: true}, templ, adminAlertsDataBuilder{}, "admin_alerts")
}
