package entitlement

import "github.com/rentdesk/rentdesk/internal/catalog"

// Status is the feature gate decision for one feature.
type Status string

const (
	StatusActive          Status = "active"
	StatusAddonAvailable  Status = "addon_available"
	StatusUpgradeRequired Status = "upgrade_required"
)

// FeatureStatus decides how key is presented given already-resolved
// features. It does no I/O. Keys missing from the catalog are
// upgrade_required unless enabled.
func FeatureStatus(features map[string]bool, cat *catalog.Catalog, key string) Status {
	if features[key] {
		return StatusActive
	}
	if cat != nil {
		if f, ok := cat.Get(key); ok && f.UpgradeType == catalog.UpgradeAddon {
			return StatusAddonAvailable
		}
	}
	return StatusUpgradeRequired
}
