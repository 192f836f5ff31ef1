// Package storecmd automates publishing e-commerce plugin packages to the
// plugin store: authenticating, uploading versioned binaries, attaching
// per-locale release notes, declaring platform compatibility and driving the
// asynchronous binary review process.
//
// Basic usage:
//
//	cl := storecmd.NewClient("", username, password)
//	commander := storecmd.NewCommander(cl)
//
//	plugin, err := commander.FindPlugin(ctx, "MyPlugin", store.FieldBinaries)
//	if err != nil {
//		log.Fatal(err)
//	}
//	plugin, err = commander.UploadBinary(ctx, plugin, "MyPlugin.zip", contents)
package storecmd

import (
	"github.com/shopkit/storecmd/changelog"
	"github.com/shopkit/storecmd/client"
	"github.com/shopkit/storecmd/store"
)

// Re-export types from store
type (
	// Commander orchestrates one end-to-end plugin release.
	Commander = store.Commander

	// Plugin is one marketplace-registered plugin.
	Plugin = store.Plugin

	// Binary is one uploaded artifact version of a plugin.
	Binary = store.Binary

	// Review is one asynchronous approval workflow run.
	Review = store.Review

	// AccountData is the cached producer catalog.
	AccountData = store.AccountData
)

// Re-export types from client
type (
	// Client is the authenticated, resilient HTTP client for the store API.
	Client = client.Client

	// Observer receives advisory lifecycle events.
	Observer = client.Observer

	// Session holds the bearer credential of the current login.
	Session = client.Session
)

// Re-export error types
type (
	AuthError            = client.AuthError
	HTTPError            = client.HTTPError
	NotFoundError        = store.NotFoundError
	VersionConflictError = store.VersionConflictError
	ReviewTimeoutError   = store.ReviewTimeoutError
	ReviewRejectedError  = store.ReviewRejectedError
	ParseError           = changelog.ParseError
)

// NewClient creates a client for the store API. An empty baseURL selects the
// production endpoint.
var NewClient = client.New

// NewCommander creates a release commander on top of a client.
var NewCommander = store.New

// ParseChangelog parses a two-level heading changelog document into a
// version → locale → text map.
var ParseChangelog = changelog.Parse

// Changelog maps version → locale → release note text.
type Changelog = changelog.Changelog
