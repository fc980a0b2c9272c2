package webui

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kynzi/marblesite/internal/racing"
	"github.com/kynzi/marblesite/internal/util/slogx"
)

const racerCardAlpha = 0.75

type racersDataItem struct {
	Name       string
	Height     float64
	Weight     float64
	IsActive   bool
	Background string
	TextColor  string
}

type racersData struct {
	Racers []racersDataItem
}

type racersDataBuilder struct{}

func (racersDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	cfg := bc.Config
	log := bc.Log

	racers, err := cfg.Racing.ListRacers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list racers: %w", err)
	}

	items := make([]racersDataItem, len(racers))
	for i, r := range racers {
		item := racersDataItem{
			Name:     r.Name,
			Height:   r.Height,
			Weight:   r.Weight,
			IsActive: r.IsActive,
		}
		bg, err := racing.ColorRGBA(r.Color, racerCardAlpha)
		if err != nil {
			log.Warn("bad racer color", slog.String("racer", r.Name), slogx.Err(err))
		} else {
			item.Background = bg
			item.TextColor, _ = racing.TextColor(r.Color)
		}
		items[i] = item
	}

	return &racersData{Racers: items}, nil
}

func racersPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{}, templ, racersDataBuilder{}, "racers")
}
