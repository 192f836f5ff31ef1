// Package plugininfo reads plugin metadata and release notes out of the
// plugin zip archive that is being published.
package plugininfo

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/github/go-spdx/v2/spdxexp"
)

// Compatibility declares the supported platform version range of a plugin.
type Compatibility struct {
	MinimumVersion string   `json:"minimumVersion"`
	MaximumVersion string   `json:"maximumVersion"`
	Blacklist      []string `json:"blacklist"`
}

// Info mirrors the plugin.json manifest inside the archive.
type Info struct {
	CurrentVersion string                       `json:"currentVersion"`
	Author         string                       `json:"author"`
	Copyright      string                       `json:"copyright"`
	License        string                       `json:"license"`
	Link           string                       `json:"link"`
	Label          map[string]string            `json:"label"`
	Compatibility  Compatibility                `json:"compatibility"`
	Changelogs     map[string]map[string]string `json:"changelogs"` // locale → version → text
}

// PluginInfo is the parsed manifest of one plugin archive.
type PluginInfo struct {
	Name string
	Info Info
}

// Label returns the localized display name of the plugin.
func (p *PluginInfo) Label(language string) (string, error) {
	if language == "" {
		language = "en"
	}
	label, ok := p.Info.Label[language]
	if !ok {
		return "", fmt.Errorf("label for language %s not available", language)
	}
	return label, nil
}

// Changelog returns the release note for a language and version. An empty
// version selects the manifest's current version.
func (p *PluginInfo) Changelog(language, version string) (string, error) {
	if language == "" {
		language = "en"
	}
	versions, ok := p.Info.Changelogs[language]
	if !ok {
		return "", fmt.Errorf("changelog for language %s not available", language)
	}
	if version == "" {
		version = p.Info.CurrentVersion
	}
	text, ok := versions[version]
	if !ok {
		return "", fmt.Errorf("changelog for language %s and version %s not available", language, version)
	}
	return text, nil
}

// IsCompatible reports whether the plugin declares compatibility with the
// given platform version: within the minimum/maximum bounds and not
// blacklisted. Missing bounds are open.
func (p *PluginInfo) IsCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	compat := p.Info.Compatibility
	if compat.MinimumVersion != "" {
		min, err := semver.NewVersion(compat.MinimumVersion)
		if err != nil || v.LessThan(min) {
			return false
		}
	}
	if compat.MaximumVersion != "" {
		max, err := semver.NewVersion(compat.MaximumVersion)
		if err != nil || v.GreaterThan(max) {
			return false
		}
	}
	for _, blacklisted := range compat.Blacklist {
		if b, err := semver.NewVersion(blacklisted); err == nil && v.Equal(b) {
			return false
		}
	}
	return true
}

// ValidateLicense checks the manifest's license field against the SPDX
// license list. An empty license is accepted; plugins sold through the store
// commonly carry "proprietary", which is accepted as well.
func (p *PluginInfo) ValidateLicense() error {
	license := p.Info.License
	if license == "" || license == "proprietary" {
		return nil
	}
	valid, invalid := spdxexp.ValidateLicenses([]string{license})
	if !valid {
		return fmt.Errorf("plugin %s declares invalid SPDX license %v", p.Name, invalid)
	}
	return nil
}
