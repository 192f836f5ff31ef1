// Package store implements the release commander: catalog loading, plugin
// lookup, binary upload, metadata persistence and the review workflow against
// the plugin store API.
package store

// Locale identifies a store locale such as de_DE or en_GB.
type Locale struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Language returns the bare language part of the locale name ("de" for
// "de_DE").
func (l Locale) Language() string {
	for i := 0; i < len(l.Name); i++ {
		if l.Name[i] == '_' {
			return l.Name[:i]
		}
	}
	return l.Name
}

// StatusRef is a server-defined status descriptor shared by plugins, binaries
// and reviews.
type StatusRef struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Addon is a named capability flag attachable to a plugin record.
type Addon struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SoftwareVersion is one platform release of the version catalog. Plugins may
// only declare compatibility with selectable versions.
type SoftwareVersion struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Selectable bool   `json:"selectable"`
}

// BinaryChangelog is the release note of one binary for one locale.
type BinaryChangelog struct {
	ID     int64  `json:"id,omitempty"`
	Locale Locale `json:"locale"`
	Text   string `json:"text"`
}

// Binary is one uploaded artifact version of a plugin.
type Binary struct {
	ID                         int64             `json:"id"`
	Version                    string            `json:"version"`
	Status                     StatusRef         `json:"status"`
	Changelogs                 []BinaryChangelog `json:"changelogs"`
	CompatibleSoftwareVersions []SoftwareVersion `json:"compatibleSoftwareVersions"`
	IonCubeEncrypted           bool              `json:"ionCubeEncrypted"`
	LicenseCheckRequired       bool              `json:"licenseCheckRequired"`
	LastChangeDate             string            `json:"lastChangeDate,omitempty"`
}

// Review is one asynchronous approval workflow run for a submitted binary.
type Review struct {
	ID      int64     `json:"id"`
	Status  StatusRef `json:"status"`
	Comment string    `json:"comment"`
}

// PluginDescription is the localized storefront text of a plugin.
type PluginDescription struct {
	ID          int64  `json:"id,omitempty"`
	Locale      Locale `json:"locale"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
}

// Plugin is one marketplace-registered plugin. It is loaded from the remote
// catalog and mutated in place by successive release steps; it is never
// persisted locally.
type Plugin struct {
	ID               int64               `json:"id"`
	Name             string              `json:"name"`
	ActivationStatus StatusRef           `json:"activationStatus"`
	Addons           []Addon             `json:"addons"`
	Binaries         []Binary            `json:"binaries,omitempty"`
	Reviews          []Review            `json:"reviews,omitempty"`
	Infos            []PluginDescription `json:"infos,omitempty"`

	// LatestBinary is derived from Binaries (last element by creation order)
	// and recomputed after every mutation of the binary list.
	LatestBinary *Binary `json:"-"`

	// loadedFields names the relation fields that were fetched lazily and
	// must not be clobbered when a bulk update response is merged back.
	loadedFields map[string]bool
}

// refreshLatestBinary recomputes the derived LatestBinary view.
func (p *Plugin) refreshLatestBinary() {
	if len(p.Binaries) == 0 {
		p.LatestBinary = nil
		return
	}
	p.LatestBinary = &p.Binaries[len(p.Binaries)-1]
}

func (p *Plugin) markFieldLoaded(field string) {
	if p.loadedFields == nil {
		p.loadedFields = make(map[string]bool)
	}
	p.loadedFields[field] = true
}

// FieldLoaded reports whether the named relation field was fetched lazily.
func (p *Plugin) FieldLoaded(field string) bool {
	return p.loadedFields[field]
}

// applyUpdate merges a bulk-update response onto the plugin without
// overwriting any relation field that was loaded out-of-band.
func (p *Plugin) applyUpdate(data *Plugin) {
	p.Name = data.Name
	p.ActivationStatus = data.ActivationStatus
	p.Addons = data.Addons
	if !p.FieldLoaded(FieldBinaries) && data.Binaries != nil {
		p.Binaries = data.Binaries
		p.refreshLatestBinary()
	}
	if !p.FieldLoaded(FieldReviews) && data.Reviews != nil {
		p.Reviews = data.Reviews
	}
	if !p.FieldLoaded(FieldInfos) && data.Infos != nil {
		p.Infos = data.Infos
	}
}

// AccountData is the cached producer catalog: the producer identity plus all
// registered plugins indexed by name. Loaded once per process.
type AccountData struct {
	ProducerID int64
	Plugins    map[string]*Plugin
}

// Statics is the static reference data of the store: the platform version
// catalog and the available addon flags.
type Statics struct {
	SoftwareVersions []SoftwareVersion `json:"softwareVersions"`
	Addons           []Addon           `json:"addons"`
}
