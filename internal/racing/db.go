package racing

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoSuchRacer  = errors.New("no such racer")
	ErrNoSuchSeries = errors.New("no such series")
	ErrNoSuchRace   = errors.New("no such race")

	// ErrAlreadyExists surfaces a uniqueness violation that reached the
	// storage layer, e.g. when two concurrent inserts race on the same
	// natural key.
	ErrAlreadyExists = errors.New("row already exists")
)

// DB is the storage interface for racers, series, races and results.
//
// All Get and List methods return nil (or an empty slice) when nothing
// matches; an error means the store itself failed. All Add methods are
// idempotent on the entity's natural key: adding an existing key returns
// the stored row without creating a duplicate.
type DB interface {
	GetRacerByName(ctx context.Context, name string) (*Racer, error)
	GetRacerByID(ctx context.Context, id uint) (*Racer, error)
	ListRacers(ctx context.Context) ([]Racer, error)
	AddRacer(ctx context.Context, racer Racer) (*Racer, error)
	// ToggleRacer flips the racer's active flag in place and returns the
	// updated row. Other racers are not affected.
	ToggleRacer(ctx context.Context, name string) (*Racer, error)

	GetSeriesByName(ctx context.Context, name string) (*Series, error)
	ListSeries(ctx context.Context) ([]Series, error)
	// ActiveSeries returns the single active series, or PlaceholderSeries()
	// when no series is marked active. It never returns nil without error.
	ActiveSeries(ctx context.Context) (*Series, error)
	AddSeries(ctx context.Context, name string, active bool) (*Series, error)
	// ActivateSeries atomically makes the named series the only active one.
	ActivateSeries(ctx context.Context, name string) error
	SetSeriesWinner(ctx context.Context, seriesID, racerID uint) error

	GetRaceByNumber(ctx context.Context, number int) (*Race, error)
	ListRaces(ctx context.Context) ([]RaceSummary, error)
	// LastRaceNumber returns the highest recorded race number, 0 when no
	// races exist yet.
	LastRaceNumber(ctx context.Context) (int, error)
	// AddRace records a race in the named cup, creating the series as
	// inactive first when it does not exist yet.
	AddRace(ctx context.Context, number int, date time.Time, cup string) (*Race, error)
	// AddResult records that the racer won the race, copying the race's
	// series into the result row.
	AddResult(ctx context.Context, raceID, racerID uint) (*Result, error)

	// TotalWins tallies wins per racer across all series, ordered by racer
	// name ascending.
	TotalWins(ctx context.Context) ([]Standing, error)
	// SeriesWins tallies wins per racer within one series, ordered by win
	// count descending, then racer name ascending.
	SeriesWins(ctx context.Context, seriesID uint) ([]Standing, error)
}
