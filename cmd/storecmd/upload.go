package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/shopkit/storecmd/changelog"
	"github.com/shopkit/storecmd/plugininfo"
	"github.com/shopkit/storecmd/release"
	"github.com/shopkit/storecmd/store"
)

// runUpload reads the plugin archive, uploads its binary, attaches release
// notes and compatibility, and submits the binary for review.
func runUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	force := fs.Bool("force", false, "replace the binary version if it already exists")
	noRelease := fs.Bool("no-release", false, "do not submit the uploaded binary for review")
	configPath := fs.String("config", "", "path to the config file")
	verbose := fs.Bool("v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("no plugin zip file given")
	}
	filePath := fs.Arg(0)

	info, err := plugininfo.ReadZip(filePath)
	if err != nil {
		return err
	}
	if err := info.ValidateLicense(); err != nil {
		return err
	}
	version := info.Info.CurrentVersion
	if version == "" {
		return fmt.Errorf("plugin.json of %s declares no current version", info.Name)
	}

	contents, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading plugin archive: %w", err)
	}

	commander, cfg, log, err := newCommander(*configPath, *verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	plugin, err := commander.FindPlugin(ctx, info.Name, store.FieldBinaries, store.FieldReviews)
	if err != nil {
		return err
	}

	// Only applies if the plugin's binaries are ionCube encrypted.
	plugin, err = commander.EnablePartialEncryption(ctx, plugin)
	if err != nil {
		return err
	}

	plugin, err = commander.PushBinary(ctx, plugin, filepath.Base(filePath), contents, version, *force)
	if err != nil {
		return err
	}
	binary := plugin.LatestBinary
	if binary == nil {
		return fmt.Errorf("upload response for plugin %s contained no binaries", plugin.Name)
	}

	binary.Version = version
	log.Info(fmt.Sprintf("Set version to %s", version))

	for i := range binary.Changelogs {
		lang := binary.Changelogs[i].Locale.Language()
		text, err := info.Changelog(lang, version)
		if err != nil {
			log.Warn(err.Error())
			continue
		}
		binary.Changelogs[i].Text = text
		log.Info(fmt.Sprintf("Set changelog for language %q", lang))
	}

	compatible := store.CompatibleVersions(commander.Statics().SoftwareVersions, info.IsCompatible)
	binary.CompatibleSoftwareVersions = compatible
	if len(compatible) > 0 {
		names := make([]string, len(compatible))
		for i, v := range compatible {
			names[i] = v.Name
		}
		log.Info(fmt.Sprintf("Set platform version compatibility: %s", strings.Join(names, ", ")))
	} else {
		log.Warn("The plugin's compatibility constraints don't match any available platform versions!")
	}

	plugin, err = commander.SaveBinary(ctx, plugin, binary)
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("New version %s of plugin %s uploaded!", binary.Version, plugin.Name))

	if *noRelease {
		log.Warn("Don't forget to manually release the version by requesting a review.")
		return nil
	}

	plugin, err = commander.RequestReview(ctx, plugin)
	if err != nil {
		return err
	}
	review := plugin.Reviews[len(plugin.Reviews)-1]
	if review.Status.Name != "approved" {
		return &store.ReviewRejectedError{
			Plugin:  plugin.Name,
			Version: binary.Version,
			Status:  review.Status,
			Comment: review.Comment,
		}
	}
	log.Info(fmt.Sprintf("Review succeeded! Version %s of plugin %s is now available in the store.", binary.Version, plugin.Name))

	publishReleaseEvent(ctx, cfg.ReleaseEventEndpoint, info, version, log)
	return nil
}

// publishReleaseEvent announces the release to the configured webhook. The
// release has already happened, so failures are reported, never propagated.
func publishReleaseEvent(ctx context.Context, endpoint string, info *plugininfo.PluginInfo, version string, log *zap.Logger) {
	if endpoint == "" {
		return
	}

	notes := make(map[string]string)
	for lang := range info.Info.Changelogs {
		text, err := info.Changelog(lang, version)
		if err != nil {
			continue
		}
		html, err := changelog.RenderHTML(text)
		if err != nil {
			log.Warn(fmt.Sprintf("Rendering release notes for %q failed: %v", lang, err))
			continue
		}
		notes[lang] = html
	}

	label, err := info.Label("")
	if err != nil {
		label = info.Name
	}

	event := release.NewEvent(info.Info.Author, info.Name, version, label, notes)
	if err := release.NewPublisher(endpoint).Publish(ctx, event); err != nil {
		log.Warn(fmt.Sprintf("Publish release event failed: %v", err))
		return
	}
	log.Info("Publish release event succeeded")
}
