package webui

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/kynzi/marblesite/internal/util/httputil"
)

type signinData struct {
	CSRFField template.HTML
	Username  string
	Errors    []string
}

type signinDataBuilder struct{}

func (signinDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	req := bc.Req
	cfg := bc.Config

	if bc.Admin != nil {
		return nil, bc.Redirect("/admin/results")
	}

	switch req.Method {
	case http.MethodGet:
		return &signinData{
			CSRFField: csrf.TemplateField(req),
		}, nil
	case http.MethodPost:
		if err := req.ParseForm(); err != nil {
			return nil, httputil.MakeError(http.StatusBadRequest, "bad form data")
		}
		username, password := req.FormValue("username"), req.FormValue("password")
		ok, err := cfg.Admins.Verify(ctx, username, password)
		if err != nil {
			return nil, fmt.Errorf("verify credentials: %w", err)
		}
		if !ok {
			return &signinData{
				CSRFField: csrf.TemplateField(req),
				Username:  username,
				Errors:    []string{"Incorrect username/password combo"},
			}, nil
		}
		admin, err := cfg.Admins.GetAdminByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("get admin: %w", err)
		}
		bc.ResetSession(makeAdminInfo(&admin))
		return nil, bc.Redirect("/admin/results")
	default:
		return nil, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func signinPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{}, templ, signinDataBuilder{}, "signin")
}
