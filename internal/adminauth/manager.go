package adminauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminAlreadyExists = errors.New("admin already exists")
)

type DB interface {
	// GetAdminByUsername returns ErrAdminNotFound when no such admin exists.
	GetAdminByUsername(ctx context.Context, username string) (Admin, error)
	// CreateAdmin returns ErrAdminAlreadyExists when the username is taken.
	CreateAdmin(ctx context.Context, admin Admin) error
	CountAdmins(ctx context.Context) (int64, error)
}

type ManagerOptions struct {
	// SeedDefault creates the default admin account on startup when no
	// admin exists yet. Meant for fresh and development deployments.
	SeedDefault bool             `toml:"seed-default"`
	Password    *PasswordOptions `toml:"password"`
}

const (
	DefaultUsername = "admin"
	DefaultPassword = "adminpass"
	defaultName     = "Admin"
)

type Manager struct {
	DB
	o     ManagerOptions
	log   *slog.Logger
	dummy Admin
}

func NewManager(ctx context.Context, log *slog.Logger, db DB, o ManagerOptions) (*Manager, error) {
	m := &Manager{
		DB:  db,
		o:   o,
		log: log,
	}

	// The dummy account soaks up a hash computation when verifying a
	// username that does not exist, so the not-found path takes as long as
	// the wrong-password path.
	if err := m.dummy.SetPassword([]byte("-"), o.Password); err != nil {
		return nil, fmt.Errorf("create dummy admin: %w", err)
	}

	if o.SeedDefault {
		cnt, err := db.CountAdmins(ctx)
		if err != nil {
			return nil, fmt.Errorf("count admins: %w", err)
		}
		if cnt == 0 {
			if err := m.Add(ctx, DefaultUsername, DefaultPassword, defaultName); err != nil {
				return nil, fmt.Errorf("seed default admin: %w", err)
			}
			log.Warn("created default admin account, change its password",
				slog.String("username", DefaultUsername))
		}
	}

	return m, nil
}

// Add creates an admin account with the given credentials.
func (m *Manager) Add(ctx context.Context, username, password, name string) error {
	admin := Admin{
		Username:    username,
		Name:        name,
		CreatedDate: time.Now(),
	}
	if err := admin.SetPassword([]byte(password), m.o.Password); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if err := m.CreateAdmin(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

// Verify checks the supplied credentials. Unknown usernames and wrong
// passwords both yield false without error.
func (m *Manager) Verify(ctx context.Context, username, password string) (bool, error) {
	admin, err := m.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			_ = m.dummy.VerifyPassword([]byte(password), m.o.Password)
			return false, nil
		}
		return false, fmt.Errorf("get admin: %w", err)
	}
	return admin.VerifyPassword([]byte(password), m.o.Password), nil
}
