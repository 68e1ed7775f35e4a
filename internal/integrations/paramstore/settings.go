package paramstore

import (
	"context"
	"errors"
	"strings"
)

// PathGetter is the part of Client used by Settings.
type PathGetter interface {
	GetParametersByPath(ctx context.Context, path string) (map[string]string, error)
}

// Settings exposes the parameters under a prefix as a flat settings map.
// Parameters that do not exist simply have no key.
type Settings struct {
	getter PathGetter
	prefix string
}

// NewSettings binds getter to prefix.
func NewSettings(getter PathGetter, prefix string) (*Settings, error) {
	if getter == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("paramstore: prefix must not be empty")
	}
	return &Settings{getter: getter, prefix: prefix}, nil
}

// Load reads the current settings. Every call hits SSM so edits are picked
// up without a restart.
func (s *Settings) Load(ctx context.Context) (map[string]string, error) {
	return s.getter.GetParametersByPath(ctx, s.prefix)
}
