package webui

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/kynzi/marblesite/internal/util/httputil"
	"github.com/kynzi/marblesite/internal/util/slogx"
)

type contactData struct {
	CSRFField template.HTML
	Address   string
	Subject   string
	Message   string
	Errors    []string
	Success   string
}

type contactDataBuilder struct{}

func (contactDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	req := bc.Req
	cfg := bc.Config
	log := bc.Log

	switch req.Method {
	case http.MethodGet:
		return &contactData{
			CSRFField: csrf.TemplateField(req),
		}, nil
	case http.MethodPost:
		if !cfg.formLimiter.Allow() {
			return nil, httputil.MakeError(http.StatusTooManyRequests, "too many requests")
		}
		if err := req.ParseForm(); err != nil {
			return nil, httputil.MakeError(http.StatusBadRequest, "bad form data")
		}
		d := &contactData{
			CSRFField: csrf.TemplateField(req),
			Address:   strings.TrimSpace(req.FormValue("address")),
			Subject:   strings.TrimSpace(req.FormValue("subject")),
			Message:   strings.TrimSpace(req.FormValue("message")),
		}
		if _, err := mail.ParseAddress(d.Address); err != nil {
			d.Errors = append(d.Errors, "A valid email address is required")
		}
		if d.Subject == "" {
			d.Errors = append(d.Errors, "Subject is required")
		}
		if d.Message == "" {
			d.Errors = append(d.Errors, "Message is required")
		}
		if len(d.Errors) != 0 {
			return d, nil
		}
		if err := cfg.Mailer.SendContact(ctx, d.Address, d.Subject, d.Message); err != nil {
			log.Warn("could not relay contact message", slogx.Err(err))
			d.Errors = append(d.Errors, "Could not send your message, please try again later")
			return d, nil
		}
		return &contactData{
			CSRFField: csrf.TemplateField(req),
			Success:   "Your message is on its way, thank you!",
		}, nil
	default:
		return nil, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func contactPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{}, templ, contactDataBuilder{}, "contact")
}
