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

	"github.com/gorilla/csrf"
	"github.com/kynzi/marblesite/internal/racing"
	"github.com/kynzi/marblesite/internal/util/httputil"
	"github.com/kynzi/marblesite/internal/util/sliceutil"
	"github.com/lucasb-eyer/go-colorful"
)

type adminRacersItem struct {
	Name     string
	Height   float64
	Weight   float64
	Color    string
	IsActive bool
}

type adminRacersData struct {
	CSRFField template.HTML
	Racers    []adminRacersItem
	Errors    []string
	Success   string
}

type adminRacersDataBuilder struct{}

func (adminRacersDataBuilder) list(ctx context.Context, bc builderCtx, d *adminRacersData) error {
	racers, err := bc.Config.Racing.ListRacers(ctx)
	if err != nil {
		return fmt.Errorf("list racers: %w", err)
	}
	d.Racers = sliceutil.Map(racers, func(r racing.Racer) adminRacersItem {
		return adminRacersItem{
			Name:     r.Name,
			Height:   r.Height,
			Weight:   r.Weight,
			Color:    r.Color,
			IsActive: r.IsActive,
		}
	})
	return nil
}

func (b adminRacersDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	req := bc.Req
	cfg := bc.Config

	d := &adminRacersData{CSRFField: csrf.TemplateField(req)}

	switch req.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := req.ParseForm(); err != nil {
			return nil, httputil.MakeError(http.StatusBadRequest, "bad form data")
		}
		switch action := req.FormValue("action"); action {
		case "add":
			name := strings.TrimSpace(req.FormValue("name"))
			if name == "" {
				d.Errors = append(d.Errors, "Racer name is required")
			}
			height, err := strconv.ParseFloat(req.FormValue("height"), 64)
			if err != nil || height <= 0 {
				d.Errors = append(d.Errors, "Height must be a positive number")
			}
			weight, err := strconv.ParseFloat(req.FormValue("weight"), 64)
			if err != nil || weight <= 0 {
				d.Errors = append(d.Errors, "Weight must be a positive number")
			}
			color, err := colorful.Hex(req.FormValue("color"))
			if err != nil {
				d.Errors = append(d.Errors, "Color must be a valid hex color")
			}
			if len(d.Errors) == 0 {
				racer, err := cfg.Racing.AddRacer(ctx, racing.Racer{
					Name:     name,
					Height:   height,
					Weight:   weight,
					Color:    racing.FormatColor(color),
					IsActive: true,
				})
				if err != nil {
					return nil, fmt.Errorf("add racer: %w", err)
				}
				d.Success = fmt.Sprintf("Racer %v is on the roster", racer.Name)
			}
		case "toggle":
			racer, err := cfg.Racing.ToggleRacer(ctx, req.FormValue("name"))
			if err != nil {
				if errors.Is(err, racing.ErrNoSuchRacer) {
					d.Errors = append(d.Errors, "No such racer")
					break
				}
				return nil, fmt.Errorf("toggle racer: %w", err)
			}
			state := "inactive"
			if racer.IsActive {
				state = "active"
			}
			d.Success = fmt.Sprintf("Racer %v is now %v", racer.Name, state)
		default:
			return nil, httputil.MakeError(http.StatusBadRequest, "unknown action")
		}
	default:
		return nil, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed")
	}

	if err := b.list(ctx, bc, d); err != nil {
		return nil, err
	}
	return d, nil
}

func adminRacersPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{RequireAdmin: true}, templ, adminRacersDataBuilder{}, "admin_racers")
}
