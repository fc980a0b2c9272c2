package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

type Secrets struct {
	// SessionKey and CSRFKey are hex-encoded. Missing keys are generated
	// on startup and written back to the secrets file.
	SessionKey string `toml:"session-key"`
	CSRFKey    string `toml:"csrf-key"`
	// SMTPPassword is never generated, mail sending stays disabled until
	// it is configured.
	SMTPPassword string `toml:"smtp-password"`
}

func genKey(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (s *Secrets) GenerateMissing() (bool, error) {
	changed := false
	if s.SessionKey == "" {
		key, err := genKey(64)
		if err != nil {
			return false, fmt.Errorf("session key: %w", err)
		}
		s.SessionKey = key
		changed = true
	}
	if s.CSRFKey == "" {
		key, err := genKey(32)
		if err != nil {
			return false, fmt.Errorf("csrf key: %w", err)
		}
		s.CSRFKey = key
		changed = true
	}
	return changed, nil
}
