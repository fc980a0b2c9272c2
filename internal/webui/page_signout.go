package webui

import (
	"context"
	"log/slog"
	"net/http"
)

type signoutDataBuilder struct{}

func (signoutDataBuilder) Build(_ context.Context, bc builderCtx) (any, error) {
	bc.ResetSession(nil)
	return nil, bc.Redirect("/")
}

func signoutPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{}, templ, signoutDataBuilder{}, "error")
}
