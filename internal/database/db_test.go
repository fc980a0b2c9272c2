package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kynzi/marblesite/internal/adminauth"
	"github.com/kynzi/marblesite/internal/mailing"
	"github.com/kynzi/marblesite/internal/media"
	"github.com/kynzi/marblesite/internal/racing"
	"github.com/kynzi/marblesite/internal/util/slogx"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(slogx.DiscardLogger(), Options{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func mustAddRacer(t *testing.T, d *DB, name string) *racing.Racer {
	t.Helper()
	racer, err := d.AddRacer(context.Background(), racing.Racer{
		Name:     name,
		Height:   16,
		Weight:   44,
		Color:    "rgb(25, 25, 25)",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("add racer %v: %v", name, err)
	}
	return racer
}

func TestAddRacerIdempotent(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	first, err := d.AddRacer(ctx, racing.Racer{Name: "Black Jack", Height: 16, Weight: 44, Color: "rgb(25, 25, 25)", IsActive: true})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	second, err := d.AddRacer(ctx, racing.Racer{Name: "Black Jack", Height: 20, Weight: 50, Color: "rgb(0, 0, 0)", IsActive: false})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("ids differ: %v vs %v", first.ID, second.ID)
	}
	if second.Height != 16 || second.Color != "rgb(25, 25, 25)" {
		t.Errorf("second add did not return the stored row: %+v", second)
	}
	racers, err := d.ListRacers(ctx)
	if err != nil {
		t.Fatalf("list racers: %v", err)
	}
	if len(racers) != 1 {
		t.Errorf("expected 1 stored racer, got %d", len(racers))
	}
}

func TestGetRacerAbsent(t *testing.T) {
	d := testDB(t)
	racer, err := d.GetRacerByName(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get racer: %v", err)
	}
	if racer != nil {
		t.Errorf("expected nil for absent racer, got %+v", racer)
	}
}

func TestToggleRacer(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	mustAddRacer(t, d, "Black Jack")
	mustAddRacer(t, d, "Green Goblin")

	toggled, err := d.ToggleRacer(ctx, "Black Jack")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.IsActive {
		t.Error("expected racer inactive after first toggle")
	}
	other, err := d.GetRacerByName(ctx, "Green Goblin")
	if err != nil {
		t.Fatalf("get other racer: %v", err)
	}
	if !other.IsActive {
		t.Error("toggling one racer changed another racer's flag")
	}

	toggled, err = d.ToggleRacer(ctx, "Black Jack")
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if !toggled.IsActive {
		t.Error("expected racer active again after second toggle")
	}

	if _, err := d.ToggleRacer(ctx, "nobody"); !errors.Is(err, racing.ErrNoSuchRacer) {
		t.Errorf("toggling unknown racer: got %v, want ErrNoSuchRacer", err)
	}
}

func TestAddSeriesCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	first, err := d.AddSeries(ctx, "Kynzi Cup", false)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	second, err := d.AddSeries(ctx, "KYNZI CUP", true)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("case-insensitive duplicate created a new series: %v vs %v", first.ID, second.ID)
	}
	got, err := d.GetSeriesByName(ctx, "kynzi cup")
	if err != nil {
		t.Fatalf("get series: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Errorf("case-insensitive lookup failed: %+v", got)
	}
}

func TestActiveSeriesSentinel(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	active, err := d.ActiveSeries(ctx)
	if err != nil {
		t.Fatalf("active series: %v", err)
	}
	if !active.Placeholder() {
		t.Errorf("expected placeholder, got %+v", active)
	}
	if active.Name != racing.NoActiveSeriesName {
		t.Errorf("placeholder name: got %q", active.Name)
	}

	if _, err := d.AddSeries(ctx, "Kynzi Cup", false); err != nil {
		t.Fatalf("add series: %v", err)
	}
	if err := d.ActivateSeries(ctx, "Kynzi Cup"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	active, err = d.ActiveSeries(ctx)
	if err != nil {
		t.Fatalf("active series: %v", err)
	}
	if active.Placeholder() || active.Name != "Kynzi Cup" {
		t.Errorf("expected Kynzi Cup active, got %+v", active)
	}
}

func countActiveSeries(t *testing.T, d *DB) int {
	t.Helper()
	series, err := d.ListSeries(context.Background())
	if err != nil {
		t.Fatalf("list series: %v", err)
	}
	active := 0
	for _, s := range series {
		if s.IsActive {
			active++
		}
	}
	return active
}

func TestActivateSeriesExclusive(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	names := []string{"Spring Cup", "Summer Cup", "Autumn Cup"}
	for _, name := range names {
		if _, err := d.AddSeries(ctx, name, false); err != nil {
			t.Fatalf("add series %v: %v", name, err)
		}
	}

	for _, name := range names {
		if err := d.ActivateSeries(ctx, name); err != nil {
			t.Fatalf("activate %v: %v", name, err)
		}
		if got := countActiveSeries(t, d); got != 1 {
			t.Fatalf("after activating %v: %d active series", name, got)
		}
		active, err := d.ActiveSeries(ctx)
		if err != nil {
			t.Fatalf("active series: %v", err)
		}
		if active.Name != name {
			t.Errorf("active series: got %v, want %v", active.Name, name)
		}
	}

	if err := d.ActivateSeries(ctx, "Winter Cup"); !errors.Is(err, racing.ErrNoSuchSeries) {
		t.Errorf("activating unknown series: got %v, want ErrNoSuchSeries", err)
	}
}

func TestActivateSeriesConcurrent(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	names := []string{"Spring Cup", "Summer Cup", "Autumn Cup", "Winter Cup"}
	for _, name := range names {
		if _, err := d.AddSeries(ctx, name, false); err != nil {
			t.Fatalf("add series %v: %v", name, err)
		}
	}

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.ActivateSeries(ctx, names[i%len(names)])
		}()
	}
	wg.Wait()

	if got := countActiveSeries(t, d); got != 1 {
		t.Errorf("after concurrent activations: %d active series, want 1", got)
	}
}

func TestAddRaceCreatesInactiveSeries(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	race, err := d.AddRace(ctx, 1, time.Date(2020, 3, 28, 0, 0, 0, 0, time.UTC), "New Cup")
	if err != nil {
		t.Fatalf("add race: %v", err)
	}
	series, err := d.GetSeriesByName(ctx, "New Cup")
	if err != nil {
		t.Fatalf("get series: %v", err)
	}
	if series == nil {
		t.Fatal("series not auto-created")
	}
	if series.IsActive {
		t.Error("auto-created series must start inactive")
	}
	if race.SeriesID != series.ID {
		t.Errorf("race references series %v, want %v", race.SeriesID, series.ID)
	}

	again, err := d.AddRace(ctx, 1, time.Now(), "New Cup")
	if err != nil {
		t.Fatalf("re-add race: %v", err)
	}
	if again.ID != race.ID {
		t.Errorf("re-adding race 1 created a new row: %v vs %v", again.ID, race.ID)
	}

	last, err := d.LastRaceNumber(ctx)
	if err != nil {
		t.Fatalf("last race number: %v", err)
	}
	if last != 1 {
		t.Errorf("last race number: got %v, want 1", last)
	}
}

func TestAddResult(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	racer := mustAddRacer(t, d, "Black Jack")
	race, err := d.AddRace(ctx, 1, time.Now(), "Kynzi Cup")
	if err != nil {
		t.Fatalf("add race: %v", err)
	}

	result, err := d.AddResult(ctx, race.ID, racer.ID)
	if err != nil {
		t.Fatalf("add result: %v", err)
	}
	if result.SeriesID != race.SeriesID {
		t.Errorf("result series %v does not match race series %v", result.SeriesID, race.SeriesID)
	}

	again, err := d.AddResult(ctx, race.ID, racer.ID)
	if err != nil {
		t.Fatalf("re-add result: %v", err)
	}
	if again.ID != result.ID {
		t.Errorf("re-adding result created a new row: %v vs %v", again.ID, result.ID)
	}

	if _, err := d.AddResult(ctx, race.ID+100, racer.ID); !errors.Is(err, racing.ErrNoSuchRace) {
		t.Errorf("result for unknown race: got %v, want ErrNoSuchRace", err)
	}
	if _, err := d.AddResult(ctx, race.ID, racer.ID+100); !errors.Is(err, racing.ErrNoSuchRacer) {
		t.Errorf("result for unknown racer: got %v, want ErrNoSuchRacer", err)
	}
}

// setupStandings records two cups: Ann wins races 1 and 2 (first cup) and
// race 3 (second cup), Bob wins race 4 (second cup), Cleo never wins.
func setupStandings(t *testing.T, d *DB) (first, second *racing.Series) {
	t.Helper()
	ctx := context.Background()
	ann := mustAddRacer(t, d, "Ann")
	bob := mustAddRacer(t, d, "Bob")
	mustAddRacer(t, d, "Cleo")

	winners := []struct {
		number  int
		cup     string
		racerID uint
	}{
		{1, "First Cup", ann.ID},
		{2, "First Cup", ann.ID},
		{3, "Second Cup", ann.ID},
		{4, "Second Cup", bob.ID},
	}
	for _, w := range winners {
		race, err := d.AddRace(ctx, w.number, time.Now(), w.cup)
		if err != nil {
			t.Fatalf("add race %v: %v", w.number, err)
		}
		if _, err := d.AddResult(ctx, race.ID, w.racerID); err != nil {
			t.Fatalf("add result for race %v: %v", w.number, err)
		}
	}

	first, err := d.GetSeriesByName(ctx, "First Cup")
	if err != nil || first == nil {
		t.Fatalf("get first cup: %v %v", first, err)
	}
	second, err = d.GetSeriesByName(ctx, "Second Cup")
	if err != nil || second == nil {
		t.Fatalf("get second cup: %v %v", second, err)
	}
	return first, second
}

func TestTotalWins(t *testing.T) {
	d := testDB(t)
	setupStandings(t, d)

	rows, err := d.TotalWins(context.Background())
	if err != nil {
		t.Fatalf("total wins: %v", err)
	}
	want := []struct {
		name string
		wins int64
	}{
		{"Ann", 3},
		{"Bob", 1},
		{"Cleo", 0},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(rows), rows)
	}
	for i, w := range want {
		if rows[i].Name != w.name || rows[i].Wins != w.wins {
			t.Errorf("row %d: got %v/%v, want %v/%v", i, rows[i].Name, rows[i].Wins, w.name, w.wins)
		}
	}
}

func TestSeriesWins(t *testing.T) {
	d := testDB(t)
	first, second := setupStandings(t, d)

	rows, err := d.SeriesWins(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("series wins: %v", err)
	}
	want := []struct {
		name string
		wins int64
	}{
		{"Ann", 2},
		{"Bob", 0},
		{"Cleo", 0},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(rows), rows)
	}
	for i, w := range want {
		if rows[i].Name != w.name || rows[i].Wins != w.wins {
			t.Errorf("row %d: got %v/%v, want %v/%v", i, rows[i].Name, rows[i].Wins, w.name, w.wins)
		}
	}

	rows, err = d.SeriesWins(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("series wins: %v", err)
	}
	if rows[0].Name != "Ann" || rows[0].Wins != 1 {
		t.Errorf("second cup leader: got %v/%v", rows[0].Name, rows[0].Wins)
	}
	if rows[1].Name != "Bob" || rows[1].Wins != 1 {
		t.Errorf("second cup runner-up: got %v/%v", rows[1].Name, rows[1].Wins)
	}
	if rows[2].Name != "Cleo" || rows[2].Wins != 0 {
		t.Errorf("second cup zero row: got %v/%v", rows[2].Name, rows[2].Wins)
	}
}

func TestSetSeriesWinner(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	racer := mustAddRacer(t, d, "Ann")
	series, err := d.AddSeries(ctx, "Kynzi Cup", false)
	if err != nil {
		t.Fatalf("add series: %v", err)
	}

	if err := d.SetSeriesWinner(ctx, series.ID, racer.ID); err != nil {
		t.Fatalf("set winner: %v", err)
	}
	list, err := d.ListSeries(ctx)
	if err != nil {
		t.Fatalf("list series: %v", err)
	}
	if list[0].WinnerID == nil || *list[0].WinnerID != racer.ID {
		t.Errorf("winner not stored: %+v", list[0].WinnerID)
	}
	if list[0].Winner == nil || list[0].Winner.Name != "Ann" {
		t.Errorf("winner not preloaded: %+v", list[0].Winner)
	}

	if err := d.SetSeriesWinner(ctx, series.ID+100, racer.ID); !errors.Is(err, racing.ErrNoSuchSeries) {
		t.Errorf("set winner on unknown series: got %v, want ErrNoSuchSeries", err)
	}
}

func TestAdmins(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	if _, err := d.GetAdminByUsername(ctx, "admin"); !errors.Is(err, adminauth.ErrAdminNotFound) {
		t.Errorf("get absent admin: got %v, want ErrAdminNotFound", err)
	}
	if err := d.CreateAdmin(ctx, adminauth.Admin{Username: "admin", Name: "Admin"}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	err := d.CreateAdmin(ctx, adminauth.Admin{Username: "admin"})
	if !errors.Is(err, adminauth.ErrAdminAlreadyExists) {
		t.Errorf("duplicate admin: got %v, want ErrAdminAlreadyExists", err)
	}
	cnt, err := d.CountAdmins(ctx)
	if err != nil {
		t.Fatalf("count admins: %v", err)
	}
	if cnt != 1 {
		t.Errorf("count admins: got %d, want 1", cnt)
	}
}

func TestAddEmailIdempotent(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	first, err := d.AddEmail(ctx, mailing.Email{First: "Ann", Address: "ann@example.com"})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	second, err := d.AddEmail(ctx, mailing.Email{First: "Annie", Address: "ann@example.com"})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if first.ID != second.ID || second.First != "Ann" {
		t.Errorf("duplicate address created or replaced a row: %+v vs %+v", first, second)
	}
	emails, err := d.ListEmails(ctx)
	if err != nil {
		t.Fatalf("list emails: %v", err)
	}
	if len(emails) != 1 {
		t.Errorf("expected 1 subscriber, got %d", len(emails))
	}
}

func TestVideos(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	vids := []media.Video{
		{GroupName: "highlights", Name: "race-1", URL: "https://www.youtube.com/watch?v=abc"},
		{GroupName: "highlights", Name: "race-2", URL: "https://www.youtube.com/watch?v=def"},
	}
	for _, v := range vids {
		stored, err := d.AddVideo(ctx, v)
		if err != nil {
			t.Fatalf("add video %v: %v", v.Name, err)
		}
		if stored.EmbeddedURL == "" {
			t.Errorf("embedded url not derived for %v", v.Name)
		}
	}
	again, err := d.AddVideo(ctx, vids[0])
	if err != nil {
		t.Fatalf("re-add video: %v", err)
	}
	if again.EmbeddedURL != "https://www.youtube.com/embed/abc" {
		t.Errorf("embedded url: got %q", again.EmbeddedURL)
	}
	all, err := d.ListVideos(ctx)
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(all))
	}

	active, err := d.ActiveVideo(ctx)
	if err != nil {
		t.Fatalf("active video: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active video, got %+v", active)
	}

	for _, name := range []string{"race-1", "race-2"} {
		if err := d.ActivateVideo(ctx, "highlights", name); err != nil {
			t.Fatalf("activate %v: %v", name, err)
		}
		all, err := d.ListVideos(ctx)
		if err != nil {
			t.Fatalf("list videos: %v", err)
		}
		activeCnt := 0
		for _, v := range all {
			if v.IsActive {
				activeCnt++
			}
		}
		if activeCnt != 1 {
			t.Errorf("after activating %v: %d active videos", name, activeCnt)
		}
		active, err := d.ActiveVideo(ctx)
		if err != nil {
			t.Fatalf("active video: %v", err)
		}
		if active == nil || active.Name != name {
			t.Errorf("active video: got %+v, want %v", active, name)
		}
	}

	if err := d.ActivateVideo(ctx, "highlights", "race-3"); !errors.Is(err, media.ErrNoSuchVideo) {
		t.Errorf("activating unknown video: got %v, want ErrNoSuchVideo", err)
	}
}

func TestSeedTestDataIdempotent(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	for range 2 {
		if err := d.SeedTestData(ctx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	racers, err := d.ListRacers(ctx)
	if err != nil {
		t.Fatalf("list racers: %v", err)
	}
	if len(racers) != 4 {
		t.Errorf("expected 4 racers, got %d", len(racers))
	}
	races, err := d.ListRaces(ctx)
	if err != nil {
		t.Fatalf("list races: %v", err)
	}
	if len(races) != 9 {
		t.Errorf("expected 9 races, got %d", len(races))
	}
	active, err := d.ActiveSeries(ctx)
	if err != nil {
		t.Fatalf("active series: %v", err)
	}
	if active.Name != "Kynzi Cup" {
		t.Errorf("active series: got %q", active.Name)
	}
	rows, err := d.TotalWins(ctx)
	if err != nil {
		t.Fatalf("total wins: %v", err)
	}
	var total int64
	for _, r := range rows {
		total += r.Wins
	}
	if total != 9 {
		t.Errorf("expected 9 total wins, got %d", total)
	}
}

func TestListRacesWinners(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	racer := mustAddRacer(t, d, "Ann")
	race, err := d.AddRace(ctx, 1, time.Now(), "Kynzi Cup")
	if err != nil {
		t.Fatalf("add race: %v", err)
	}
	if _, err := d.AddResult(ctx, race.ID, racer.ID); err != nil {
		t.Fatalf("add result: %v", err)
	}
	if _, err := d.AddRace(ctx, 2, time.Now(), "Kynzi Cup"); err != nil {
		t.Fatalf("add race: %v", err)
	}

	races, err := d.ListRaces(ctx)
	if err != nil {
		t.Fatalf("list races: %v", err)
	}
	if len(races) != 2 {
		t.Fatalf("expected 2 races, got %d", len(races))
	}
	if races[0].Number != 1 || races[0].WinnerName != "Ann" || races[0].SeriesName != "Kynzi Cup" {
		t.Errorf("race 1 summary: %+v", races[0])
	}
	if races[1].Number != 2 || races[1].WinnerName != "" {
		t.Errorf("race 2 summary: %+v", races[1])
	}
}
