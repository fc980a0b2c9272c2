package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/kynzi/marblesite/internal/adminauth"
	"github.com/kynzi/marblesite/internal/mailing"
	"github.com/kynzi/marblesite/internal/media"
	"github.com/kynzi/marblesite/internal/racing"
	"github.com/kynzi/marblesite/internal/util/slogx"
	"github.com/kynzi/marblesite/internal/webui"
	"github.com/mattn/go-sqlite3"
	"github.com/wader/gormstore/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Options struct {
	Path          string        `toml:"path"`
	Debug         bool          `toml:"debug"`
	SlowThreshold time.Duration `toml:"slow-threshold"`
	BusyTimeout   time.Duration `toml:"busy-timeout"`
	UseWAL        bool          `toml:"use-wal"`
}

func (o *Options) FillDefaults() {
	if o.SlowThreshold == 0 {
		o.SlowThreshold = 200 * time.Millisecond
	}
	if o.BusyTimeout == 0 {
		o.BusyTimeout = 1 * time.Minute
	}
}

type DB struct {
	db  *gorm.DB
	log *slog.Logger
}

var (
	_ racing.DB                 = (*DB)(nil)
	_ adminauth.DB              = (*DB)(nil)
	_ mailing.DB                = (*DB)(nil)
	_ media.DB                  = (*DB)(nil)
	_ webui.SessionStoreFactory = (*DB)(nil)
)

func (d *DB) Close() {
	db, err := d.db.DB()
	if err != nil {
		d.log.Error("could not get underlying db", slogx.Err(err))
		return
	}
	if err := db.Close(); err != nil {
		d.log.Error("could not close db", slogx.Err(err))
	}
}

func buildPath(o Options) string {
	var params []string
	if o.UseWAL {
		params = append(params, "_journal_mode=WAL")
		params = append(params, "_synchronous=NORMAL")
	}
	params = append(params, fmt.Sprintf("_busy_timeout=%v", o.BusyTimeout.Milliseconds()))
	params = append(params, "_foreign_keys=1")
	sep := "?"
	if strings.Contains(o.Path, "?") {
		sep = "&"
	}
	return o.Path + sep + strings.Join(params, "&")
}

func New(log *slog.Logger, o Options) (*DB, error) {
	o.FillDefaults()

	log.Info("opening db")
	db, err := gorm.Open(sqlite.Open(buildPath(o)), &gorm.Config{
		Logger: Logger(log, o),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	d := &DB{db: db, log: log}

	log.Info("migrating db")
	if err := db.AutoMigrate(models...); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	log.Info("db opened")
	return d, nil
}

// translateErr maps sqlite constraint violations to racing.ErrAlreadyExists,
// so a concurrent duplicate insert that slips past an upsert surfaces as a
// distinct, catchable error instead of a generic failure.
func translateErr(op string, err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%v: %w", op, racing.ErrAlreadyExists)
	}
	return fmt.Errorf("%v: %w", op, err)
}

func (d *DB) GetRacerByName(ctx context.Context, name string) (*racing.Racer, error) {
	var racers []racing.Racer
	err := d.db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&racers).Error
	if err != nil {
		return nil, fmt.Errorf("get racer: %w", err)
	}
	if len(racers) == 0 {
		return nil, nil
	}
	return &racers[0], nil
}

func (d *DB) GetRacerByID(ctx context.Context, id uint) (*racing.Racer, error) {
	var racers []racing.Racer
	err := d.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&racers).Error
	if err != nil {
		return nil, fmt.Errorf("get racer: %w", err)
	}
	if len(racers) == 0 {
		return nil, nil
	}
	return &racers[0], nil
}

func (d *DB) ListRacers(ctx context.Context) ([]racing.Racer, error) {
	var racers []racing.Racer
	err := d.db.WithContext(ctx).Order("name ASC").Find(&racers).Error
	if err != nil {
		return nil, fmt.Errorf("list racers: %w", err)
	}
	return racers, nil
}

func (d *DB) AddRacer(ctx context.Context, racer racing.Racer) (*racing.Racer, error) {
	racer.ID = 0
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&racer)
	if res.Error != nil {
		return nil, translateErr("add racer", res.Error)
	}
	if res.RowsAffected != 0 {
		return &racer, nil
	}
	existing, err := d.GetRacerByName(ctx, racer.Name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("add racer: conflicting row vanished")
	}
	return existing, nil
}

func (d *DB) ToggleRacer(ctx context.Context, name string) (*racing.Racer, error) {
	res := d.db.WithContext(ctx).Model(&racing.Racer{}).
		Where("name = ?", name).
		Update("is_active", gorm.Expr("NOT is_active"))
	if res.Error != nil {
		return nil, fmt.Errorf("toggle racer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, racing.ErrNoSuchRacer
	}
	return d.GetRacerByName(ctx, name)
}

func (d *DB) GetSeriesByName(ctx context.Context, name string) (*racing.Series, error) {
	var series []racing.Series
	// The name column is COLLATE NOCASE, so the comparison is
	// case-insensitive at the schema level.
	err := d.db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&series).Error
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	if len(series) == 0 {
		return nil, nil
	}
	return &series[0], nil
}

func (d *DB) ListSeries(ctx context.Context) ([]racing.Series, error) {
	var series []racing.Series
	err := d.db.WithContext(ctx).Preload("Winner").Order("id ASC").Find(&series).Error
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return series, nil
}

func (d *DB) ActiveSeries(ctx context.Context) (*racing.Series, error) {
	var series []racing.Series
	err := d.db.WithContext(ctx).Where("is_active = ?", true).Limit(1).Find(&series).Error
	if err != nil {
		return nil, fmt.Errorf("get active series: %w", err)
	}
	if len(series) == 0 {
		return racing.PlaceholderSeries(), nil
	}
	return &series[0], nil
}

func (d *DB) addSeriesTx(tx *gorm.DB, name string, active bool) (*racing.Series, error) {
	series := racing.Series{
		Name:        strings.TrimSpace(name),
		IsActive:    active,
		CreatedDate: time.Now(),
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&series)
	if res.Error != nil {
		return nil, translateErr("add series", res.Error)
	}
	if res.RowsAffected != 0 {
		return &series, nil
	}
	var existing []racing.Series
	if err := tx.Where("name = ?", series.Name).Limit(1).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	if len(existing) == 0 {
		return nil, fmt.Errorf("add series: conflicting row vanished")
	}
	return &existing[0], nil
}

func (d *DB) AddSeries(ctx context.Context, name string, active bool) (*racing.Series, error) {
	return d.addSeriesTx(d.db.WithContext(ctx), name, active)
}

func (d *DB) ActivateSeries(ctx context.Context, name string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var series []racing.Series
		if err := tx.Where("name = ?", name).Limit(1).Find(&series).Error; err != nil {
			return fmt.Errorf("get series: %w", err)
		}
		if len(series) == 0 {
			return racing.ErrNoSuchSeries
		}
		// One conditional update, so there is no window with zero or two
		// active rows.
		err := tx.Exec("UPDATE series SET is_active = (id = ?)", series[0].ID).Error
		if err != nil {
			return fmt.Errorf("activate series: %w", err)
		}
		return nil
	})
}

func (d *DB) SetSeriesWinner(ctx context.Context, seriesID, racerID uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&racing.Racer{}).Where("id = ?", racerID).Count(&cnt).Error; err != nil {
			return fmt.Errorf("check racer: %w", err)
		}
		if cnt == 0 {
			return racing.ErrNoSuchRacer
		}
		res := tx.Model(&racing.Series{}).
			Where("id = ?", seriesID).
			Update("winner_id", racerID)
		if res.Error != nil {
			return fmt.Errorf("set series winner: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return racing.ErrNoSuchSeries
		}
		return nil
	})
}

func (d *DB) GetRaceByNumber(ctx context.Context, number int) (*racing.Race, error) {
	var races []racing.Race
	err := d.db.WithContext(ctx).Where("number = ?", number).Limit(1).Find(&races).Error
	if err != nil {
		return nil, fmt.Errorf("get race: %w", err)
	}
	if len(races) == 0 {
		return nil, nil
	}
	return &races[0], nil
}

func (d *DB) ListRaces(ctx context.Context) ([]racing.RaceSummary, error) {
	var rows []racing.RaceSummary
	err := d.db.WithContext(ctx).Model(&racing.Race{}).
		Select("races.number AS number, races.date AS date, " +
			"COALESCE(series.name, '') AS series_name, " +
			"COALESCE(racers.name, '') AS winner_name").
		Joins("LEFT JOIN series ON series.id = races.series_id").
		Joins("LEFT JOIN results ON results.race_id = races.id").
		Joins("LEFT JOIN racers ON racers.id = results.racer_id").
		Order("races.number ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	return rows, nil
}

func (d *DB) LastRaceNumber(ctx context.Context) (int, error) {
	var number int
	err := d.db.WithContext(ctx).Model(&racing.Race{}).
		Select("COALESCE(MAX(number), 0)").
		Scan(&number).Error
	if err != nil {
		return 0, fmt.Errorf("last race number: %w", err)
	}
	return number, nil
}

func (d *DB) AddRace(ctx context.Context, number int, date time.Time, cup string) (*racing.Race, error) {
	var race *racing.Race
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// An unknown cup is created on demand, inactive until an admin
		// activates it.
		series, err := d.addSeriesTx(tx, cup, false)
		if err != nil {
			return err
		}
		created := racing.Race{
			Number:   number,
			Date:     date,
			SeriesID: series.ID,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "number"}},
			DoNothing: true,
		}).Create(&created)
		if res.Error != nil {
			return translateErr("add race", res.Error)
		}
		if res.RowsAffected != 0 {
			race = &created
			return nil
		}
		var existing []racing.Race
		if err := tx.Where("number = ?", number).Limit(1).Find(&existing).Error; err != nil {
			return fmt.Errorf("get race: %w", err)
		}
		if len(existing) == 0 {
			return fmt.Errorf("add race: conflicting row vanished")
		}
		race = &existing[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return race, nil
}

func (d *DB) AddResult(ctx context.Context, raceID, racerID uint) (*racing.Result, error) {
	var result *racing.Result
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var races []racing.Race
		if err := tx.Where("id = ?", raceID).Limit(1).Find(&races).Error; err != nil {
			return fmt.Errorf("get race: %w", err)
		}
		if len(races) == 0 {
			return racing.ErrNoSuchRace
		}
		var racers []racing.Racer
		if err := tx.Where("id = ?", racerID).Limit(1).Find(&racers).Error; err != nil {
			return fmt.Errorf("get racer: %w", err)
		}
		if len(racers) == 0 {
			return racing.ErrNoSuchRacer
		}
		created := racing.Result{
			RaceID:  raceID,
			RacerID: racerID,
			// Denormalized from the race so standings can filter on it
			// without a join through races.
			SeriesID: races[0].SeriesID,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "race_id"}, {Name: "racer_id"}},
			DoNothing: true,
		}).Create(&created)
		if res.Error != nil {
			return translateErr("add result", res.Error)
		}
		if res.RowsAffected != 0 {
			result = &created
			return nil
		}
		var existing []racing.Result
		err := tx.Where("race_id = ? AND racer_id = ?", raceID, racerID).
			Limit(1).Find(&existing).Error
		if err != nil {
			return fmt.Errorf("get result: %w", err)
		}
		if len(existing) == 0 {
			return fmt.Errorf("add result: conflicting row vanished")
		}
		result = &existing[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

const standingsSelect = "racers.id AS racer_id, racers.name AS name, " +
	"racers.color AS color, racers.is_active AS is_active, COUNT(results.id) AS wins"

func (d *DB) TotalWins(ctx context.Context) ([]racing.Standing, error) {
	var rows []racing.Standing
	err := d.db.WithContext(ctx).Model(&racing.Racer{}).
		Select(standingsSelect).
		Joins("LEFT JOIN results ON results.racer_id = racers.id").
		Group("racers.id").
		Order("racers.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("total wins: %w", err)
	}
	return rows, nil
}

func (d *DB) SeriesWins(ctx context.Context, seriesID uint) ([]racing.Standing, error) {
	var rows []racing.Standing
	err := d.db.WithContext(ctx).Model(&racing.Racer{}).
		Select(standingsSelect).
		Joins("LEFT JOIN results ON results.racer_id = racers.id AND results.series_id = ?", seriesID).
		Group("racers.id").
		Order("wins DESC, racers.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("series wins: %w", err)
	}
	return rows, nil
}

func (d *DB) GetAdminByUsername(ctx context.Context, username string) (adminauth.Admin, error) {
	var admins []adminauth.Admin
	err := d.db.WithContext(ctx).Where("username = ?", username).Limit(1).Find(&admins).Error
	if err != nil {
		return adminauth.Admin{}, fmt.Errorf("get admin: %w", err)
	}
	if len(admins) == 0 {
		return adminauth.Admin{}, adminauth.ErrAdminNotFound
	}
	return admins[0], nil
}

func (d *DB) CreateAdmin(ctx context.Context, admin adminauth.Admin) error {
	admin.ID = 0
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoNothing: true,
	}).Create(&admin)
	if res.Error != nil {
		return translateErr("create admin", res.Error)
	}
	if res.RowsAffected == 0 {
		return adminauth.ErrAdminAlreadyExists
	}
	return nil
}

func (d *DB) CountAdmins(ctx context.Context) (int64, error) {
	var cnt int64
	err := d.db.WithContext(ctx).Model(&adminauth.Admin{}).Count(&cnt).Error
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return cnt, nil
}

func (d *DB) GetEmailByAddress(ctx context.Context, address string) (*mailing.Email, error) {
	var emails []mailing.Email
	err := d.db.WithContext(ctx).Where("address = ?", address).Limit(1).Find(&emails).Error
	if err != nil {
		return nil, fmt.Errorf("get email: %w", err)
	}
	if len(emails) == 0 {
		return nil, nil
	}
	return &emails[0], nil
}

func (d *DB) ListEmails(ctx context.Context) ([]mailing.Email, error) {
	var emails []mailing.Email
	err := d.db.WithContext(ctx).Order("id ASC").Find(&emails).Error
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	return emails, nil
}

func (d *DB) AddEmail(ctx context.Context, email mailing.Email) (*mailing.Email, error) {
	email.ID = 0
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(&email)
	if res.Error != nil {
		return nil, translateErr("add email", res.Error)
	}
	if res.RowsAffected != 0 {
		return &email, nil
	}
	existing, err := d.GetEmailByAddress(ctx, email.Address)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("add email: conflicting row vanished")
	}
	return existing, nil
}

func (d *DB) ListVideos(ctx context.Context) ([]media.Video, error) {
	var videos []media.Video
	err := d.db.WithContext(ctx).Order("group_name ASC, name ASC").Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

func (d *DB) ActiveVideo(ctx context.Context) (*media.Video, error) {
	var videos []media.Video
	err := d.db.WithContext(ctx).Where("is_active = ?", true).Limit(1).Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("get active video: %w", err)
	}
	if len(videos) == 0 {
		return nil, nil
	}
	return &videos[0], nil
}

func (d *DB) AddVideo(ctx context.Context, video media.Video) (*media.Video, error) {
	embedded, err := media.EmbedURL(video.URL)
	if err != nil {
		return nil, fmt.Errorf("add video: %w", err)
	}
	video.ID = 0
	video.EmbeddedURL = embedded
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_name"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&video)
	if res.Error != nil {
		return nil, translateErr("add video", res.Error)
	}
	if res.RowsAffected != 0 {
		return &video, nil
	}
	var existing []media.Video
	err = d.db.WithContext(ctx).
		Where("group_name = ? AND name = ?", video.GroupName, video.Name).
		Limit(1).Find(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	if len(existing) == 0 {
		return nil, fmt.Errorf("add video: conflicting row vanished")
	}
	return &existing[0], nil
}

func (d *DB) ActivateVideo(ctx context.Context, group, name string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var videos []media.Video
		err := tx.Where("group_name = ? AND name = ?", group, name).Limit(1).Find(&videos).Error
		if err != nil {
			return fmt.Errorf("get video: %w", err)
		}
		if len(videos) == 0 {
			return media.ErrNoSuchVideo
		}
		if err := tx.Exec("UPDATE videos SET is_active = (id = ?)", videos[0].ID).Error; err != nil {
			return fmt.Errorf("activate video: %w", err)
		}
		return nil
	})
}

func (d *DB) NewSessionStore(ctx context.Context, opts webui.SessionOptions) sessions.Store {
	s := gormstore.New(d.db, opts.Key)
	go s.PeriodicCleanup(opts.CleanupInterval, ctx.Done())
	return s
}
