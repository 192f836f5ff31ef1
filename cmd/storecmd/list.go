package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/shopkit/storecmd/store"
)

// runList prints a table of all registered plugins.
func runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	showAll := fs.Bool("show-all", false, "list all plugins, including disabled ones")
	sortBy := fs.String("sort", "name", "sort order: name | version | active")
	configPath := fs.String("config", "", "path to the config file")
	verbose := fs.Bool("v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	commander, _, log, err := newCommander(*configPath, *verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	account, err := commander.LoadAccountData(ctx)
	if err != nil {
		return err
	}

	plugins := make([]*store.Plugin, 0, len(account.Plugins))
	for _, plugin := range account.Plugins {
		if !*showAll && plugin.ActivationStatus.ID != 1 {
			continue
		}
		plugins = append(plugins, plugin)
	}

	switch *sortBy {
	case "name":
		sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	case "version":
		sort.Slice(plugins, func(i, j int) bool {
			return latestVersion(plugins[i]) < latestVersion(plugins[j])
		})
	case "active":
		sort.Slice(plugins, func(i, j int) bool {
			return plugins[i].ActivationStatus.Name < plugins[j].ActivationStatus.Name
		})
	default:
		return fmt.Errorf("unknown sort order %q", *sortBy)
	}

	fmt.Println("\nYour plugins:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tACTIVE\tREVIEW STATUS\tMIN. COMPATIBILITY")
	for _, plugin := range plugins {
		version := latestVersion(plugin)
		active := "no"
		if plugin.ActivationStatus.ID == 1 {
			active = "yes"
		}
		reviewStatus := "none"
		minCompat := "none"
		if plugin.LatestBinary != nil {
			reviewStatus = plugin.LatestBinary.Status.Description
			if reviewStatus == "" {
				reviewStatus = plugin.LatestBinary.Status.Name
			}
			if name := store.MinVersionName(plugin.LatestBinary.CompatibleSoftwareVersions); name != "" {
				minCompat = name
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", plugin.Name, version, active, reviewStatus, minCompat)
	}
	return w.Flush()
}

func latestVersion(p *store.Plugin) string {
	if p.LatestBinary == nil {
		return "0.0.0"
	}
	return p.LatestBinary.Version
}
