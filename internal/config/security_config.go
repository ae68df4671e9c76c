package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const sealKeyLength = 32

type SecurityConfig interface {
	// GetSealKey returns the key used to seal stored tokens, nil when sealing is off.
	GetSealKey() []byte
	// GetEligibleAffiliations lists the cohorts allowed a first session, empty admits everyone.
	GetEligibleAffiliations() []string
}

type Security struct {
	SealKeyHex           string   `env:"DIRECTORY_SEAL_KEY"`
	EligibleAffiliations []string `env:"ELIGIBLE_AFFILIATIONS" envSeparator:","`
}

var _ SecurityConfig = Security{}

func (s Security) GetSealKey() []byte {
	if s.SealKeyHex == "" {
		return nil
	}
	key, err := hex.DecodeString(strings.TrimSpace(s.SealKeyHex))
	if err != nil {
		return nil
	}
	return key
}

func (s Security) GetEligibleAffiliations() []string {
	var out []string
	for _, a := range s.EligibleAffiliations {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (s Security) validate() error {
	if s.SealKeyHex == "" {
		return nil
	}
	key, err := hex.DecodeString(strings.TrimSpace(s.SealKeyHex))
	if err != nil {
		return fmt.Errorf("DIRECTORY_SEAL_KEY is not hex: %w", err)
	}
	if len(key) != sealKeyLength {
		return fmt.Errorf("DIRECTORY_SEAL_KEY must be %d bytes, got %d", sealKeyLength, len(key))
	}
	return nil
}
