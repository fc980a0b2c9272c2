package racing

import (
	"fmt"
	"time"
)

// Racer is a marble taking part in races. Racers are identified by their
// unique name and are never deleted, only toggled inactive.
type Racer struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"uniqueIndex;not null"`
	Height   float64
	Weight   float64
	Color    string
	IsActive bool
}

func (r Racer) String() string {
	return fmt.Sprintf("Racer: %v", r.Name)
}

// Series is a named cup grouping several races. At most one series is
// active at any time. Names are unique case-insensitively.
type Series struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"type:TEXT COLLATE NOCASE;uniqueIndex;not null"`
	WinnerID    *uint
	Winner      *Racer `gorm:"foreignKey:WinnerID"`
	IsActive    bool
	CreatedDate time.Time
}

func (s Series) String() string {
	return fmt.Sprintf("Series: %v", s.Name)
}

// NoActiveSeriesName is the display name of the placeholder returned when
// no series is currently active.
const NoActiveSeriesName = "No Active Series"

// PlaceholderSeries returns the sentinel series used when no series is
// active. Its ID is zero, so it never matches a stored row.
func PlaceholderSeries() *Series {
	return &Series{Name: NoActiveSeriesName}
}

// Placeholder reports whether s is the sentinel rather than a stored series.
func (s *Series) Placeholder() bool {
	return s.ID == 0
}

type Race struct {
	ID       uint `gorm:"primaryKey"`
	Number   int  `gorm:"uniqueIndex;not null"`
	Date     time.Time
	SeriesID uint `gorm:"index"`
}

func (r Race) String() string {
	return fmt.Sprintf("Race %v", r.Number)
}

// Result records that a racer finished first in a race. SeriesID is
// denormalized from the parent race and must always match it.
type Result struct {
	ID       uint `gorm:"primaryKey"`
	RaceID   uint `gorm:"uniqueIndex:idx_results_race_racer;not null"`
	RacerID  uint `gorm:"uniqueIndex:idx_results_race_racer;not null"`
	SeriesID uint `gorm:"index"`
}

// Standing is one row of a win tally. Standings always contain one row per
// racer, zero-filled for racers without wins.
type Standing struct {
	RacerID  uint
	Name     string
	Color    string
	IsActive bool
	Wins     int64
}

// RaceSummary is a race joined with its series and winner for display.
type RaceSummary struct {
	Number     int
	Date       time.Time
	SeriesName string
	WinnerName string
}
