package webui

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kynzi/marblesite/internal/racing"
	"github.com/kynzi/marblesite/internal/util/sliceutil"
)

type racesDataItem struct {
	Number     int
	Date       string
	SeriesName string
	WinnerName string
}

type racesData struct {
	Races []racesDataItem
}

type racesDataBuilder struct{}

func (racesDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	cfg := bc.Config

	races, err := cfg.Racing.ListRaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}

	items := sliceutil.Map(races, func(r racing.RaceSummary) racesDataItem {
		return racesDataItem{
			Number:     r.Number,
			Date:       r.Date.Format("Jan 2, 2006"),
			SeriesName: r.SeriesName,
			WinnerName: r.WinnerName,
		}
	})

	return &racesData{Races: items}, nil
}

func racesPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{}, templ, racesDataBuilder{}, "races")
}
