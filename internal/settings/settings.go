// Package settings provides the "Settings provider" external interface:
// a key-value lookup the engine consults for Advanced/maxFolderDepth.
// Two implementations are provided: KeyringProvider, which delegates to
// pkg/charmer/config.Config (zalando/go-keyring-backed), for a real
// desktop install, and StaticProvider, an in-memory stand-in for tests
// and headless use.
package settings

import (
	"fmt"
	"strconv"

	"github.com/luiscuellar31/openscp-sub001/pkg/charmer/config"
)

// MaxFolderDepthKey is the settings key named in the external interfaces.
const MaxFolderDepthKey = "Advanced/maxFolderDepth"

// DefaultMaxFolderDepth and MinMaxFolderDepth implement the default
// and floor for the recursive enumeration depth cap.
const (
	DefaultMaxFolderDepth = 32
	MinMaxFolderDepth     = 1
)

// Provider is consulted by RemoteModel for the recursive-enumeration
// depth cap.
type Provider interface {
	MaxFolderDepth() int
}

// clampDepth substitutes the default when the stored value is missing
// or unparsable, and otherwise enforces the floor.
func clampDepth(v int, ok bool) int {
	if !ok {
		return DefaultMaxFolderDepth
	}
	if v < MinMaxFolderDepth {
		return MinMaxFolderDepth
	}
	return v
}

// StaticProvider is a fixed-value Provider, an in-memory stand-in for
// Config for use in tests.
type StaticProvider struct {
	Depth int
}

func (s StaticProvider) MaxFolderDepth() int {
	return clampDepth(s.Depth, s.Depth > 0)
}

// KeyringProvider stores settings in the OS keyring under a service
// namespace, via pkg/charmer/config.Config.
type KeyringProvider struct {
	cfg *config.Config
}

// NewKeyringProvider namespaces settings under service (e.g. the
// application's bundle id).
func NewKeyringProvider(service string) (*KeyringProvider, error) {
	cfg, err := config.New(service)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return &KeyringProvider{cfg: cfg}, nil
}

func (k *KeyringProvider) MaxFolderDepth() int {
	if !k.cfg.Exists(MaxFolderDepthKey) {
		return DefaultMaxFolderDepth
	}
	v, err := strconv.Atoi(k.cfg.Get(MaxFolderDepthKey))
	return clampDepth(v, err == nil)
}

// SetMaxFolderDepth persists a new depth cap.
func (k *KeyringProvider) SetMaxFolderDepth(depth int) error {
	return k.cfg.Set(MaxFolderDepthKey, strconv.Itoa(depth))
}
