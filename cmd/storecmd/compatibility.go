package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/shopkit/storecmd/store"
)

// Pause between per-binary saves so a long binary list does not hammer the
// API into rate limiting.
const binarySaveDelay = 500 * time.Millisecond

// runCompatibility raises or lowers the minimum compatible platform version
// of every binary of a plugin.
func runCompatibility(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compatibility", flag.ExitOnError)
	pluginName := fs.String("plugin", "", "name of the plugin to update")
	minVersion := fs.String("min-version", "", "minimum platform version, e.g. 5.1.3")
	configPath := fs.String("config", "", "path to the config file")
	verbose := fs.Bool("v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pluginName == "" {
		return errors.New("no plugin name given")
	}
	if *minVersion == "" {
		return errors.New("no minimum platform version given")
	}
	target, err := semver.NewVersion(*minVersion)
	if err != nil {
		return fmt.Errorf("parsing minimum version %q: %w", *minVersion, err)
	}

	commander, _, log, err := newCommander(*configPath, *verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	plugin, err := commander.FindPlugin(ctx, *pluginName, store.FieldBinaries)
	if err != nil {
		return err
	}
	catalog := commander.Statics().SoftwareVersions

	for i := range plugin.Binaries {
		binary := &plugin.Binaries[i]
		changed, err := adjustMinimumCompatibility(binary, catalog, target, log.Sugar().Infof)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}

		select {
		case <-time.After(binarySaveDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if _, err := commander.SaveBinary(ctx, plugin, binary); err != nil {
			log.Error(fmt.Sprintf("Failed to save binary %s: %v", binary.Version, err))
		}
	}

	log.Info(fmt.Sprintf("Minimum platform version compatibility of plugin %s changed to %s!", plugin.Name, *minVersion))
	return nil
}

// adjustMinimumCompatibility rewrites a binary's compatible version list so
// that its minimum entry equals target. Returns false when the binary already
// matches.
func adjustMinimumCompatibility(binary *store.Binary, catalog []store.SoftwareVersion, target *semver.Version, infof func(string, ...any)) (bool, error) {
	current := store.MinVersionName(binary.CompatibleSoftwareVersions)
	if current == "" {
		if name := store.MinVersionName(selectable(catalog)); name != "" {
			current = name
		} else {
			return false, errors.New("platform version catalog has no selectable versions")
		}
	}
	currentMin, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("parsing current minimum version %q: %w", current, err)
	}

	switch {
	case target.LessThan(currentMin):
		infof("Lowering minimum compatible platform version of binary %s to %s...", binary.Version, target)
		for _, v := range selectable(catalog) {
			parsed, err := semver.NewVersion(v.Name)
			if err != nil {
				continue
			}
			if !parsed.LessThan(target) && parsed.LessThan(currentMin) {
				binary.CompatibleSoftwareVersions = append(binary.CompatibleSoftwareVersions, v)
			}
		}
	case target.GreaterThan(currentMin):
		infof("Raising minimum compatible platform version of binary %s to %s...", binary.Version, target)
		var kept []store.SoftwareVersion
		for _, v := range binary.CompatibleSoftwareVersions {
			parsed, err := semver.NewVersion(v.Name)
			if err != nil || !v.Selectable {
				continue
			}
			if !parsed.LessThan(target) {
				kept = append(kept, v)
			}
		}
		binary.CompatibleSoftwareVersions = kept
	default:
		infof("Minimum compatible platform version of binary %s already matches %s", binary.Version, target)
		return false, nil
	}

	if len(binary.CompatibleSoftwareVersions) == 0 {
		for _, v := range selectable(catalog) {
			if parsed, err := semver.NewVersion(v.Name); err == nil && parsed.Equal(target) {
				binary.CompatibleSoftwareVersions = []store.SoftwareVersion{v}
				break
			}
		}
	}
	return true, nil
}

func selectable(catalog []store.SoftwareVersion) []store.SoftwareVersion {
	var out []store.SoftwareVersion
	for _, v := range catalog {
		if v.Selectable {
			out = append(out, v)
		}
	}
	return out
}
