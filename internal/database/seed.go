package database

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kynzi/marblesite/internal/racing"
)

// SeedTestData fills an empty database with sample racers, an active cup,
// nine races and random winners, so a fresh deployment has something to
// show. Every insert is idempotent, so seeding an already seeded database
// is a no-op.
func (d *DB) SeedTestData(ctx context.Context) error {
	racers := []racing.Racer{
		{Name: "Black Jack", Height: 16, Weight: 44, Color: "rgb(25, 25, 25)", IsActive: true},
		{Name: "Green Goblin", Height: 16, Weight: 44, Color: "rgb(5, 99, 10)", IsActive: true},
		{Name: "White Lightning", Height: 16, Weight: 44, Color: "rgb(150, 150, 150)", IsActive: true},
		{Name: "Blue Gooze", Height: 16, Weight: 44, Color: "rgb(60, 50, 156)", IsActive: true},
	}
	for _, racer := range racers {
		if _, err := d.AddRacer(ctx, racer); err != nil {
			return fmt.Errorf("seed racer %v: %w", racer.Name, err)
		}
	}

	const cup = "Kynzi Cup"
	if _, err := d.AddSeries(ctx, cup, false); err != nil {
		return fmt.Errorf("seed series: %w", err)
	}
	if err := d.ActivateSeries(ctx, cup); err != nil {
		return fmt.Errorf("activate seeded series: %w", err)
	}

	date := time.Date(2020, 3, 28, 0, 0, 0, 0, time.UTC)
	stored, err := d.ListRacers(ctx)
	if err != nil {
		return fmt.Errorf("list seeded racers: %w", err)
	}
	for number := 1; number <= 9; number++ {
		race, err := d.AddRace(ctx, number, date, cup)
		if err != nil {
			return fmt.Errorf("seed race %v: %w", number, err)
		}
		date = date.AddDate(0, 0, 1)

		// A reseeded race keeps its original winner instead of drawing a
		// second one.
		var cnt int64
		err = d.db.WithContext(ctx).Model(&racing.Result{}).
			Where("race_id = ?", race.ID).Count(&cnt).Error
		if err != nil {
			return fmt.Errorf("count results for race %v: %w", number, err)
		}
		if cnt > 0 {
			continue
		}
		winner := stored[rand.IntN(len(stored))]
		if _, err := d.AddResult(ctx, race.ID, winner.ID); err != nil {
			return fmt.Errorf("seed result for race %v: %w", number, err)
		}
	}

	d.log.Info("seeded test data")
	return nil
}
