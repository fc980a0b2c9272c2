package main

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"

	"github.com/kynzi/marblesite/internal/adminauth"
	"github.com/kynzi/marblesite/internal/database"
	"github.com/kynzi/marblesite/internal/mailing"
	"github.com/kynzi/marblesite/internal/webui"
)

type HTTPSOptions struct {
	AllowedSecureDomains []string `toml:"allowed-secure-domains"`
	CachePath            string   `toml:"cache-path"`
	Port                 uint16   `toml:"port"`
	ExposeInsecure       bool     `toml:"expose-insecure"`
}

type Options struct {
	Host  string        `toml:"host"`
	Port  uint16        `toml:"port"`
	HTTPS *HTTPSOptions `toml:"https"`
	// SeedTestData fills an empty database with sample racers and races.
	SeedTestData bool `toml:"seed-test-data"`

	DB     database.Options         `toml:"db"`
	Admins adminauth.ManagerOptions `toml:"admins"`
	Mail   mailing.Options          `toml:"mail"`
	WebUI  webui.Options            `toml:"webui"`
}

func (o *Options) FillDefaults() {
	if o.Host == "" {
		o.Host = "127.0.0.1"
	}
	if o.Port == 0 {
		o.Port = 8080
	}
	if o.HTTPS != nil && o.HTTPS.Port == 0 {
		o.HTTPS.Port = 443
	}
	o.DB.FillDefaults()
	o.Mail.FillDefaults()
	o.WebUI.FillDefaults()
}

func (o *Options) AddrWithPort() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(int(o.Port)))
}

func (o *Options) SecureAddrWithPort() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(int(o.HTTPS.Port)))
}

func (o *Options) MixSecrets(s *Secrets) error {
	sessionKey, err := hex.DecodeString(s.SessionKey)
	if err != nil {
		return fmt.Errorf("decode session key: %w", err)
	}
	csrfKey, err := hex.DecodeString(s.CSRFKey)
	if err != nil {
		return fmt.Errorf("decode csrf key: %w", err)
	}
	if len(csrfKey) != 32 {
		return fmt.Errorf("csrf key must be 32 bytes, got %v", len(csrfKey))
	}
	o.WebUI.Session.Key = sessionKey
	o.WebUI.CSRFKey = csrfKey
	o.Mail.Password = s.SMTPPassword
	return nil
}
