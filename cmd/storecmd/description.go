package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/shopkit/storecmd/store"
)

// runDescription replaces the storefront description of one locale with the
// content of a local file.
func runDescription(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("description", flag.ExitOnError)
	pluginName := fs.String("plugin", "", "name of the plugin to update")
	locale := fs.String("locale", "", "locale to update, e.g. de_DE or en_GB")
	configPath := fs.String("config", "", "path to the config file")
	verbose := fs.Bool("v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("no description file given")
	}
	if *pluginName == "" {
		return errors.New("no plugin name given")
	}
	if *locale == "" {
		return errors.New("no locale given")
	}

	description, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("reading description file: %w", err)
	}

	commander, _, log, err := newCommander(*configPath, *verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	plugin, err := commander.FindPlugin(ctx, *pluginName, store.FieldInfos)
	if err != nil {
		return err
	}

	var info *store.PluginDescription
	for i := range plugin.Infos {
		if plugin.Infos[i].Locale.Name == *locale {
			info = &plugin.Infos[i]
			break
		}
	}
	if info == nil {
		available := ""
		for _, data := range plugin.Infos {
			available += "\n- " + data.Locale.Name
		}
		return fmt.Errorf("locale %q is not available for plugin %s; available locales:%s", *locale, plugin.Name, available)
	}

	info.Description = string(description)

	if _, err := commander.SavePlugin(ctx, plugin, 2); err != nil {
		return err
	}
	log.Info(fmt.Sprintf("Description of plugin %s for locale %q successfully updated!", plugin.Name, *locale))
	return nil
}
