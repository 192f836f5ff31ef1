package plugininfo

import (
	"archive/zip"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `{
	"currentVersion": "1.1.0",
	"license": "MIT",
	"label": {"en": "Example Plugin"},
	"compatibility": {"minimumVersion": "5.1.0", "maximumVersion": "", "blacklist": []},
	"changelogs": {"en": {"1.1.0": "from the manifest"}}
}`

const testChangelog = `## 1.1.0
### en_GB
from the changelog file
### de_DE
aus der Changelog-Datei
`

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "SwagExample.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestReadZip(t *testing.T) {
	path := writeZip(t, map[string]string{
		"SwagExample/Backend/SwagExample/plugin.json":   testManifest,
		"SwagExample/Backend/SwagExample/CHANGELOG.md":  testChangelog,
		"SwagExample/Backend/SwagExample/Bootstrap.php": "<?php",
	})

	info, err := ReadZip(path)
	require.NoError(t, err)

	assert.Equal(t, "SwagExample", info.Name)
	assert.Equal(t, "1.1.0", info.Info.CurrentVersion)
	assert.Equal(t, "MIT", info.Info.License)

	// The changelog file replaces the manifest's changelogs.
	assert.Equal(t, "from the changelog file", info.Info.Changelogs["en_GB"]["1.1.0"])
	assert.Equal(t, "aus der Changelog-Datei", info.Info.Changelogs["de_DE"]["1.1.0"])
	_, ok := info.Info.Changelogs["en"]
	assert.False(t, ok, "manifest changelogs must be replaced, not merged")
}

func TestReadZipManifestOnly(t *testing.T) {
	path := writeZip(t, map[string]string{
		"SwagExample/Frontend/SwagExample/plugin.json": testManifest,
	})

	info, err := ReadZip(path)
	require.NoError(t, err)
	assert.Equal(t, "SwagExample", info.Name)
	assert.Equal(t, "from the manifest", info.Info.Changelogs["en"]["1.1.0"])
}

func TestReadZipMissingManifest(t *testing.T) {
	path := writeZip(t, map[string]string{
		"SwagExample/Backend/SwagExample/Bootstrap.php": "<?php",
	})

	_, err := ReadZip(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin.json")
}

func TestReadZipBadManifest(t *testing.T) {
	path := writeZip(t, map[string]string{
		"SwagExample/Core/SwagExample/plugin.json": "{not json",
	})

	_, err := ReadZip(path)
	require.Error(t, err)
}

func TestArchiveEntries(t *testing.T) {
	path := writeZip(t, map[string]string{
		"SwagExample/Backend/SwagExample/plugin.json": testManifest,
		"SwagExample/Backend/SwagExample/readme.txt":  "hello",
	})

	archive, err := OpenArchive(path)
	require.NoError(t, err)
	defer archive.Close()

	names := archive.ListEntries(regexp.MustCompile(`\.txt$`))
	require.Equal(t, []string{"SwagExample/Backend/SwagExample/readme.txt"}, names)

	content, err := archive.ReadEntry(names[0])
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	_, err = archive.ReadEntry("no/such/entry")
	require.Error(t, err)
}
