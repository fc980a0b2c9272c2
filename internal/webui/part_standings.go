package webui

import (
	"log/slog"

	"github.com/kynzi/marblesite/internal/racing"
	"github.com/kynzi/marblesite/internal/util/slogx"
)

type standingRow struct {
	Name     string
	Wins     int64
	IsActive bool
	// Background and TextColor style the row after the racer's color.
	// Empty when the stored color fails to parse.
	Background string
	TextColor  string
}

const standingRowAlpha = 0.35

func makeStandingRows(log *slog.Logger, standings []racing.Standing) []standingRow {
	rows := make([]standingRow, len(standings))
	for i, s := range standings {
		row := standingRow{
			Name:     s.Name,
			Wins:     s.Wins,
			IsActive: s.IsActive,
		}
		bg, err := racing.ColorRGBA(s.Color, standingRowAlpha)
		if err != nil {
			log.Warn("bad racer color", slog.String("racer", s.Name), slogx.Err(err))
		} else {
			row.Background = bg
			row.TextColor, _ = racing.TextColor(s.Color)
		}
		rows[i] = row
	}
	return rows
}
