package webui

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/kynzi/marblesite/internal/racing"
	"github.com/kynzi/marblesite/internal/util/httputil"
)

type adminSeriesItem struct {
	ID          uint
	Name        string
	IsActive    bool
	WinnerName  string
	CreatedDate string
}

type adminSeriesData struct {
	CSRFField template.HTML
	Series    []adminSeriesItem
	Racers    []adminResultsRacer
	Errors    []string
	Success   string
}

type adminSeriesDataBuilder struct{}

func (adminSeriesDataBuilder) list(ctx context.Context, bc builderCtx, d *adminSeriesData) error {
	cfg := bc.Config

	series, err := cfg.Racing.ListSeries(ctx)
	if err != nil {
		return fmt.Errorf("list series: %w", err)
	}
	d.Series = make([]adminSeriesItem, len(series))
	for i, s := range series {
		item := adminSeriesItem{
			ID:          s.ID,
			Name:        s.Name,
			IsActive:    s.IsActive,
			CreatedDate: s.CreatedDate.Format("Jan 2, 2006"),
		}
		if s.Winner != nil {
			item.WinnerName = s.Winner.Name
		}
		d.Series[i] = item
	}

	racers, err := cfg.Racing.ListRacers(ctx)
	if err != nil {
		return fmt.Errorf("list racers: %w", err)
	}
	d.Racers = make([]adminResultsRacer, len(racers))
	for i, r := range racers {
		d.Racers[i] = adminResultsRacer{ID: r.ID, Name: r.Name}
	}
	return nil
}

func (b adminSeriesDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	req := bc.Req
	cfg := bc.Config

	d := &adminSeriesData{CSRFField: csrf.TemplateField(req)}

	switch req.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := req.ParseForm(); err != nil {
			return nil, httputil.MakeError(http.StatusBadRequest, "bad form data")
		}
		switch action := req.FormValue("action"); action {
		case "activate":
			name := req.FormValue("name")
			if err := cfg.Racing.ActivateSeries(ctx, name); err != nil {
				if errors.Is(err, racing.ErrNoSuchSeries) {
					d.Errors = append(d.Errors, "No such series")
					break
				}
				return nil, fmt.Errorf("activate series: %w", err)
			}
			d.Success = fmt.Sprintf("%v is now the active series", name)
		case "winner":
			seriesID, err := strconv.ParseUint(req.FormValue("series"), 10, 64)
			if err != nil {
				d.Errors = append(d.Errors, "A series must be selected")
				break
			}
			racerID, err := strconv.ParseUint(req.FormValue("winner"), 10, 64)
			if err != nil {
				d.Errors = append(d.Errors, "A winner must be selected")
				break
			}
			err = cfg.Racing.SetSeriesWinner(ctx, uint(seriesID), uint(racerID))
			if err != nil {
				switch {
				case errors.Is(err, racing.ErrNoSuchSeries):
					d.Errors = append(d.Errors, "No such series")
				case errors.Is(err, racing.ErrNoSuchRacer):
					d.Errors = append(d.Errors, "No such racer")
				default:
					return nil, fmt.Errorf("set series winner: %w", err)
				}
				break
			}
			d.Success = "Series winner recorded"
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

func adminSeriesPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{RequireAdmin: true}, templ, adminSeriesDataBuilder{}, "admin_series")
}
