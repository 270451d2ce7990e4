package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Policy holds the leave rules loaded from the TOML policy file.
type Policy struct {
	MaxRequestDays        int      `toml:"max_request_days"`
	DefaultAvailableLeave int      `toml:"default_available_leave"`
	AllowedDocumentHosts  []string `toml:"allowed_document_hosts,omitempty"`
	MaxDocumentBytes      int64    `toml:"max_document_bytes"`
}

// RequestDaysCap is the longest single request any policy may allow.
const RequestDaysCap = 30

func DefaultPolicy() Policy {
	return Policy{
		MaxRequestDays:        RequestDaysCap,
		DefaultAvailableLeave: 20,
		MaxDocumentBytes:      5 * 1024 * 1024,
	}
}

// LoadPolicy decodes path over the defaults. A missing file yields the defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if strings.TrimSpace(path) == "" {
		return policy, nil
	}
	if _, err := toml.DecodeFile(path, &policy); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPolicy(), nil
		}
		return Policy{}, fmt.Errorf("decode policy %s: %w", path, err)
	}
	for i, host := range policy.AllowedDocumentHosts {
		policy.AllowedDocumentHosts[i] = strings.ToLower(strings.TrimSpace(host))
	}
	return policy, nil
}

func (p Policy) Validate() error {
	if p.MaxRequestDays <= 0 || p.MaxRequestDays > RequestDaysCap {
		return fmt.Errorf("max_request_days must be between 1 and %d", RequestDaysCap)
	}
	if p.DefaultAvailableLeave < 0 {
		return fmt.Errorf("default_available_leave must not be negative")
	}
	if p.MaxDocumentBytes <= 0 {
		return fmt.Errorf("max_document_bytes must be positive")
	}
	return nil
}
