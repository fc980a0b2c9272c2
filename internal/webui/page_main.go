package webui

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
)

type mainVideo struct {
	Name        string
	Description string
	EmbeddedURL template.URL
}

type mainData struct {
	SeriesName string
	Scoped     []standingRow
	Total      []standingRow
	Video      *mainVideo
}

type mainDataBuilder struct{}

func (mainDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	cfg := bc.Config
	log := bc.Log

	series, err := cfg.Racing.ActiveSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active series: %w", err)
	}
	scoped, err := cfg.Racing.SeriesWins(ctx, series.ID)
	if err != nil {
		return nil, fmt.Errorf("tally series wins: %w", err)
	}
	total, err := cfg.Racing.TotalWins(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally total wins: %w", err)
	}

	d := &mainData{
		SeriesName: series.Name,
		Scoped:     makeStandingRows(log, scoped),
		Total:      makeStandingRows(log, total),
	}

	video, err := cfg.Media.ActiveVideo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active video: %w", err)
	}
	if video != nil && video.IncludeMedia {
		d.Video = &mainVideo{
			Name:        video.Name,
			Description: video.Description,
			EmbeddedURL: template.URL(video.EmbeddedURL),
		}
	}
	return d, nil
}

func mainPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{}, templ, mainDataBuilder{}, "main")
}
