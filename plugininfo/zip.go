package plugininfo

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"regexp"

	"github.com/shopkit/storecmd/changelog"
)

var (
	manifestEntry  = regexp.MustCompile(`(Backend|Core|Frontend)/([^/]+)/plugin\.json$`)
	changelogEntry = regexp.MustCompile(`(Backend|Core|Frontend)/[^/]+/CHANGELOG\.md$`)
)

// Archive gives read access to the entries of a plugin zip file.
type Archive struct {
	path string
	zr   *zip.ReadCloser
}

// OpenArchive opens the zip file at path.
func OpenArchive(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening plugin archive %s: %w", path, err)
	}
	return &Archive{path: path, zr: zr}, nil
}

// Close releases the underlying file handle.
func (a *Archive) Close() error {
	return a.zr.Close()
}

// ListEntries returns the archive entry names matching pattern, in archive
// order.
func (a *Archive) ListEntries(pattern *regexp.Regexp) []string {
	var names []string
	for _, f := range a.zr.File {
		if pattern.MatchString(f.Name) {
			names = append(names, f.Name)
		}
	}
	return names
}

// ReadEntry returns the full content of the named archive entry as text.
func (a *Archive) ReadEntry(name string) (string, error) {
	for _, f := range a.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening archive entry %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("reading archive entry %s: %w", name, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("archive entry %s not found in %s", name, a.path)
}

// ReadManifest locates the plugin.json inside the archive, derives the plugin
// name from its path and parses the manifest. It returns nil if the archive
// contains no plugin.json.
func (a *Archive) ReadManifest() (*PluginInfo, error) {
	entries := a.ListEntries(manifestEntry)
	if len(entries) == 0 {
		return nil, nil
	}
	entry := entries[0]
	name := manifestEntry.FindStringSubmatch(entry)[2]

	raw, err := a.ReadEntry(entry)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", entry, err)
	}

	return &PluginInfo{Name: name, Info: info}, nil
}

// ReadChangelog locates and parses the CHANGELOG.md inside the archive. It
// returns nil if the archive contains no changelog.
func (a *Archive) ReadChangelog() (changelog.Changelog, error) {
	entries := a.ListEntries(changelogEntry)
	if len(entries) == 0 {
		return nil, nil
	}
	raw, err := a.ReadEntry(entries[0])
	if err != nil {
		return nil, err
	}
	return changelog.Parse(raw)
}

// ReadZip opens the archive at path and reads its plugin manifest. When the
// archive also carries a CHANGELOG.md, its parsed content replaces the
// manifest's changelogs.
func ReadZip(path string) (*PluginInfo, error) {
	archive, err := OpenArchive(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	info, err := archive.ReadManifest()
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("archive %s is missing a plugin.json file", path)
	}

	notes, err := archive.ReadChangelog()
	if err != nil {
		return nil, err
	}
	if notes != nil {
		info.Info.Changelogs = notes.ByLocale()
	}

	return info, nil
}
