package adminauth

import (
	crand "crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/argon2"
)

type PasswordOptions struct {
	Time    uint32 `toml:"time"`
	Memory  uint32 `toml:"memory"`
	Threads uint8  `toml:"threads"`
	KeyLen  uint32 `toml:"key-len"`
	SaltLen uint32 `toml:"salt-len"`
}

var defaultPasswordOptions = &PasswordOptions{
	Time:    3,
	Memory:  16384,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 32,
}

// Admin is a site administrator account. Passwords are stored only as
// salted argon2id digests.
type Admin struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash []byte
	PasswordSalt []byte
	Name         string
	CreatedDate  time.Time
}

func (a Admin) String() string {
	return fmt.Sprintf("Admin: %v", a.Username)
}

func (a *Admin) doHash(password []byte, o *PasswordOptions) []byte {
	return argon2.IDKey(password, a.PasswordSalt, o.Time, o.Memory, o.Threads, o.KeyLen)
}

func (a *Admin) SetPassword(password []byte, o *PasswordOptions) error {
	if o == nil {
		o = defaultPasswordOptions
	}

	salt := make([]byte, o.SaltLen)
	_, err := io.ReadFull(crand.Reader, salt)
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	a.PasswordSalt = salt
	a.PasswordHash = a.doHash(password, o)
	return nil
}

func (a *Admin) VerifyPassword(password []byte, o *PasswordOptions) bool {
	if o == nil {
		o = defaultPasswordOptions
	}
	hash := a.doHash(password, o)
	return subtle.ConstantTimeCompare(hash, a.PasswordHash) == 1
}
