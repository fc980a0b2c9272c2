package mailing

import (
	"context"
	"fmt"
)

// Email is a mailing-list subscriber. Addresses are unique and serve as the
// dedupe key for signups.
type Email struct {
	ID      uint `gorm:"primaryKey"`
	First   string
	Last    string
	Address string `gorm:"uniqueIndex;not null"`
}

func (e Email) String() string {
	return fmt.Sprintf("Email: %v", e.Address)
}

type DB interface {
	// GetEmailByAddress returns nil when the address is not subscribed.
	GetEmailByAddress(ctx context.Context, address string) (*Email, error)
	ListEmails(ctx context.Context) ([]Email, error)
	// AddEmail is idempotent on the address.
	AddEmail(ctx context.Context, email Email) (*Email, error)
}
