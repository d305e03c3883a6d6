// Package catalog holds the static list of gateable features and how each
// one is sold.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"sigs.k8s.io/yaml"
)

// UpgradeType says how an organization obtains a feature it lacks.
type UpgradeType string

const (
	UpgradePackage UpgradeType = "package"
	UpgradeAddon   UpgradeType = "addon"
)

// Feature is one entry of the catalog.
type Feature struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	UpgradeType UpgradeType `json:"upgradeType"`
	MinimumTier string      `json:"minimumTier"`
}

// Catalog is an immutable, key-indexed set of features.
type Catalog struct {
	byKey map[string]Feature
	keys  []string
}

//go:embed features.yaml
var defaultYAML []byte

type document struct {
	Features []Feature `json:"features"`
}

// Parse builds a Catalog from YAML. Keys must be unique and upgradeType must
// be package or addon.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing feature catalog: %w", err)
	}

	c := &Catalog{byKey: make(map[string]Feature, len(doc.Features))}
	for _, f := range doc.Features {
		if f.Key == "" {
			return nil, fmt.Errorf("feature catalog entry %q has no key", f.Name)
		}
		if _, dup := c.byKey[f.Key]; dup {
			return nil, fmt.Errorf("duplicate feature key %q", f.Key)
		}
		switch f.UpgradeType {
		case UpgradePackage, UpgradeAddon:
		default:
			return nil, fmt.Errorf("feature %q: unknown upgradeType %q", f.Key, f.UpgradeType)
		}
		c.byKey[f.Key] = f
		c.keys = append(c.keys, f.Key)
	}
	sort.Strings(c.keys)
	return c, nil
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Get returns the feature for key.
func (c *Catalog) Get(key string) (Feature, bool) {
	f, ok := c.byKey[key]
	return f, ok
}

// Keys returns every feature key in sorted order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// All returns every feature sorted by key.
func (c *Catalog) All() []Feature {
	out := make([]Feature, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.byKey[k])
	}
	return out
}
