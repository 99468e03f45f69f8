package etl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ── Source ──────────────────────────────────────────────────
// A Source fetches one dataset and hands it over as an Input.
// Implementations live in etl/sources/, one file per source type.
// Sources never classify or map; that is the pipeline's job.

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// String returns the config value for key as text. YAML configs decode
// numbers and booleans natively, so scalars are converted; anything else
// reads as "".
func (c SourceConfig) String(key string) string {
	s, ok := ScalarString(c[key])
	if !ok {
		return ""
	}
	return s
}

// ConfigField describes a single configuration input for a source.
type ConfigField struct {
	Key      string   `json:"key" yaml:"key"`
	Label    string   `json:"label" yaml:"label"`
	Type     string   `json:"type" yaml:"type"` // "string" | "select" | "password" | "file"
	Required bool     `json:"required" yaml:"required"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
	Default  string   `json:"default,omitempty" yaml:"default,omitempty"`
	Help     string   `json:"help,omitempty" yaml:"help,omitempty"`
}

// SourceSpec describes a source type and the config fields it accepts.
type SourceSpec struct {
	Type         string        `json:"type" yaml:"type"`
	Label        string        `json:"label" yaml:"label"`
	ConfigFields []ConfigField `json:"configFields" yaml:"config_fields"`
}

// Source is the interface every data source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Read fetches the dataset. The returned Input's Label is left for the
	// caller to fill in.
	Read(ctx context.Context, cfg SourceConfig) (*Input, error)
}

// ErrUnknownSource is returned by GetSource for unregistered types.
var ErrUnknownSource = errors.New("unknown source type")

// ── Source Registry ────────────────────────────────────────
// Compile-time registration via init() in each source file.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
// Called from init() in each source implementation file.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// Fetch resolves a source by type, checks required config and reads it.
func Fetch(ctx context.Context, typ string, cfg SourceConfig, label string) (*Input, error) {
	src, err := GetSource(typ)
	if err != nil {
		return nil, err
	}
	for _, f := range src.Spec().ConfigFields {
		if f.Required && cfg[f.Key] == nil {
			return nil, fmt.Errorf("%s source: %s is required", typ, f.Key)
		}
	}
	in, err := src.Read(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s source: %w", typ, err)
	}
	if in != nil {
		in.Label = label
	}
	return in, nil
}
