package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/charlievieth/fastwalk"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// DiscoverPattern matches profile files under a profile directory.
const DiscoverPattern = "**/*.{yaml,yml,toml,json}"

// fileProfile is the on-disk schema. Durations are integer
// milliseconds so the same document parses identically in all three
// formats.
type fileProfile struct {
	ID              string   `json:"id" yaml:"id" toml:"id"`
	Name            string   `json:"name" yaml:"name" toml:"name"`
	Placeholder     string   `json:"placeholder" yaml:"placeholder" toml:"placeholder"`
	Toolbar         []string `json:"toolbar" yaml:"toolbar" toml:"toolbar"`
	SanitizePolicy  string   `json:"sanitize_policy" yaml:"sanitize_policy" toml:"sanitize_policy"`
	MaxContentBytes int      `json:"max_content_bytes" yaml:"max_content_bytes" toml:"max_content_bytes"`
	DebounceMs      int      `json:"debounce_ms" yaml:"debounce_ms" toml:"debounce_ms"`
	SuppressionMs   int      `json:"suppression_ttl_ms" yaml:"suppression_ttl_ms" toml:"suppression_ttl_ms"`
}

func (f *fileProfile) toProfile() *Profile {
	return &Profile{
		ID:               f.ID,
		Name:             f.Name,
		Placeholder:      f.Placeholder,
		Toolbar:          f.Toolbar,
		SanitizePolicy:   f.SanitizePolicy,
		MaxContentBytes:  f.MaxContentBytes,
		DebounceInterval: time.Duration(f.DebounceMs) * time.Millisecond,
		SuppressionTTL:   time.Duration(f.SuppressionMs) * time.Millisecond,
	}
}

// LoadFile parses one profile file, dispatching on extension.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}

	var raw fileProfile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".json":
		err = sonic.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("profile: %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}

	p := raw.toProfile()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile: %s: %w", path, err)
	}
	return p, nil
}

// Discover walks root and returns every profile file matching
// DiscoverPattern, sorted for deterministic load order.
func Discover(ctx context.Context, root string) ([]string, error) {
	var mu sync.Mutex
	var found []string
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		matched, _ := doublestar.Match(DiscoverPattern, filepath.ToSlash(rel))
		if matched {
			mu.Lock()
			found = append(found, p)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("profile: discover %s: %w", root, err)
	}

	sort.Strings(found)
	return found, nil
}

// LoadDir discovers and parses every profile under root. Any invalid
// file fails the whole load; profile mistakes should surface at boot,
// not at session creation.
func LoadDir(ctx context.Context, root string) ([]*Profile, error) {
	paths, err := Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	profiles := make([]*Profile, 0, len(paths))
	for _, path := range paths {
		p, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
