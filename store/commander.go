package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cenk/backoff"
	"golang.org/x/sync/errgroup"

	"github.com/shopkit/storecmd/client"
)

// Relation fields that are not part of the bulk catalog fetch and have to be
// loaded per plugin on demand.
const (
	FieldBinaries = "binaries"
	FieldReviews  = "reviews"
	FieldInfos    = "infos"
)

// Addon names controlling ionCube encryption of uploaded binaries.
const (
	addonIonCubeEncryption        = "encryptionIonCube"
	addonPartialIonCubeEncryption = "partialIonCubeEncryptionAllowed"
)

const (
	defaultPollInterval  = 3 * time.Second
	defaultMaxPolls      = 100
	defaultSaveBaseDelay = 500 * time.Millisecond
	defaultPageSize      = 1000
)

// Commander orchestrates one end-to-end plugin release. All remote calls run
// through the resilient client; the account catalog is loaded once and cached
// for the remainder of the process.
type Commander struct {
	client   *client.Client
	observer client.Observer

	account *AccountData
	statics *Statics

	pollInterval    time.Duration
	maxPolls        int
	pendingStatuses map[int64]bool
	saveBaseDelay   time.Duration
	pageSize        int
}

// Option configures a Commander.
type Option func(*Commander)

// WithObserver sets the lifecycle event observer.
func WithObserver(o client.Observer) Option {
	return func(c *Commander) {
		c.observer = o
	}
}

// WithPollInterval overrides the delay between review status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Commander) {
		c.pollInterval = d
	}
}

// WithMaxPolls overrides the review poll bound.
func WithMaxPolls(n int) Option {
	return func(c *Commander) {
		c.maxPolls = n
	}
}

// WithPendingStatuses overrides the set of review status ids that keep the
// poll loop alive. The server's status vocabulary has shifted over time, so
// the set is configuration rather than a constant.
func WithPendingStatuses(ids ...int64) Option {
	return func(c *Commander) {
		c.pendingStatuses = make(map[int64]bool, len(ids))
		for _, id := range ids {
			c.pendingStatuses[id] = true
		}
	}
}

// WithSaveBaseDelay overrides the initial delay of the exponential backoff
// used by SavePlugin retries.
func WithSaveBaseDelay(d time.Duration) Option {
	return func(c *Commander) {
		c.saveBaseDelay = d
	}
}

// New creates a Commander on top of the given client.
func New(cl *client.Client, opts ...Option) *Commander {
	c := &Commander{
		client:          cl,
		pollInterval:    defaultPollInterval,
		maxPolls:        defaultMaxPolls,
		pendingStatuses: map[int64]bool{1: true, 4: true},
		saveBaseDelay:   defaultSaveBaseDelay,
		pageSize:        defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Statics returns the static reference data. LoadAccountData must have been
// called first.
func (c *Commander) Statics() *Statics {
	return c.statics
}

// LoadAccountData fetches the producer identity, all registered plugins and
// the static reference data. The result is cached; subsequent calls return it
// without a network round-trip.
func (c *Commander) LoadAccountData(ctx context.Context) (*AccountData, error) {
	if c.account != nil {
		return c.account, nil
	}

	var producers []struct {
		ID int64 `json:"id"`
	}
	if err := c.client.Get(ctx, "producers", nil, &producers); err != nil {
		return nil, fmt.Errorf("loading producer: %w", err)
	}
	if len(producers) == 0 {
		return nil, fmt.Errorf("account has no registered producer")
	}

	account := &AccountData{ProducerID: producers[0].ID}

	query := url.Values{
		"offset":     {"0"},
		"limit":      {strconv.Itoa(c.pageSize)},
		"producerId": {strconv.FormatInt(account.ProducerID, 10)},
	}
	var plugins []*Plugin
	if err := c.client.Get(ctx, "plugins", query, &plugins); err != nil {
		return nil, fmt.Errorf("loading plugins: %w", err)
	}
	account.Plugins = make(map[string]*Plugin, len(plugins))
	for _, plugin := range plugins {
		plugin.refreshLatestBinary()
		account.Plugins[plugin.Name] = plugin
	}

	var statics Statics
	if err := c.client.Get(ctx, "pluginstatics/all", nil, &statics); err != nil {
		return nil, fmt.Errorf("loading plugin statics: %w", err)
	}

	c.account = account
	c.statics = &statics

	return c.account, nil
}

// FindPlugin looks up a plugin by name in the cached catalog, loading the
// catalog first if necessary. Requested extra relation fields are fetched
// lazily and merged into the plugin.
func (c *Commander) FindPlugin(ctx context.Context, name string, extraFields ...string) (*Plugin, error) {
	account, err := c.LoadAccountData(ctx)
	if err != nil {
		return nil, err
	}
	plugin, ok := account.Plugins[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	if len(extraFields) > 0 {
		if err := c.LoadPluginFields(ctx, plugin, extraFields...); err != nil {
			return nil, err
		}
	}
	return plugin, nil
}

// LoadPluginFields fetches the named relation fields of a plugin in parallel
// and records them as externally managed, so a later bulk-update response
// cannot clobber them.
func (c *Commander) LoadPluginFields(ctx context.Context, plugin *Plugin, fields ...string) error {
	for _, field := range fields {
		switch field {
		case FieldBinaries, FieldReviews, FieldInfos:
		default:
			return fmt.Errorf("unknown plugin relation field %q", field)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	results := make([]json.RawMessage, len(fields))
	for i, field := range fields {
		i, field := i, field
		g.Go(func() error {
			path := fmt.Sprintf("plugins/%d/%s", plugin.ID, field)
			if err := c.client.Get(gctx, path, nil, &results[i]); err != nil {
				return fmt.Errorf("loading plugin field %s: %w", field, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, field := range fields {
		switch field {
		case FieldBinaries:
			if err := json.Unmarshal(results[i], &plugin.Binaries); err != nil {
				return fmt.Errorf("decoding plugin binaries: %w", err)
			}
			plugin.refreshLatestBinary()
		case FieldReviews:
			if err := json.Unmarshal(results[i], &plugin.Reviews); err != nil {
				return fmt.Errorf("decoding plugin reviews: %w", err)
			}
		case FieldInfos:
			if err := json.Unmarshal(results[i], &plugin.Infos); err != nil {
				return fmt.Errorf("decoding plugin infos: %w", err)
			}
		}
		plugin.markFieldLoaded(field)
	}

	return nil
}

// SavePlugin persists the top-level plugin fields. retryCount is the number
// of attempts beyond the first, separated by exponentially growing delays;
// after exhausting the retries the last error is surfaced. The server
// response is merged back without clobbering lazily loaded relation fields.
func (c *Commander) SavePlugin(ctx context.Context, plugin *Plugin, retryCount int) (*Plugin, error) {
	c.observer.Emit(client.EventInfo, fmt.Sprintf("Saving changes in plugin %s...", plugin.Name))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.saveBaseDelay
	policy.Multiplier = 2.0

	var updated Plugin
	op := func() error {
		return c.client.Put(ctx, fmt.Sprintf("plugins/%d", plugin.ID), plugin, &updated)
	}
	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(retryCount)), ctx))
	if err != nil {
		return nil, fmt.Errorf("saving plugin %s: %w", plugin.Name, err)
	}

	plugin.applyUpdate(&updated)
	return plugin, nil
}

// UploadBinary multipart-uploads a new binary artifact. The response replaces
// the plugin's binary list and the latest-binary view.
func (c *Commander) UploadBinary(ctx context.Context, plugin *Plugin, filename string, contents []byte) (*Plugin, error) {
	c.observer.Emit(client.EventInfo, fmt.Sprintf("Uploading binary %s for plugin %s...", filename, plugin.Name))

	var binaries []Binary
	path := fmt.Sprintf("plugins/%d/binaries", plugin.ID)
	if err := c.client.Upload(ctx, path, filename, contents, &binaries); err != nil {
		return nil, fmt.Errorf("uploading binary for plugin %s: %w", plugin.Name, err)
	}

	plugin.Binaries = binaries
	plugin.refreshLatestBinary()
	return plugin, nil
}

// UpdateBinary replaces the file of an existing binary.
func (c *Commander) UpdateBinary(ctx context.Context, plugin *Plugin, binary *Binary, filename string, contents []byte) (*Plugin, error) {
	c.observer.Emit(client.EventInfo, fmt.Sprintf("Uploading updated binary %s for plugin %s...", filename, plugin.Name))

	var binaries []Binary
	path := fmt.Sprintf("plugins/%d/binaries/%d/file", plugin.ID, binary.ID)
	if err := c.client.Upload(ctx, path, filename, contents, &binaries); err != nil {
		return nil, fmt.Errorf("updating binary for plugin %s: %w", plugin.Name, err)
	}

	plugin.Binaries = binaries
	plugin.refreshLatestBinary()
	return plugin, nil
}

// PushBinary uploads contents as version, refusing to overwrite an existing
// binary of the same version unless force is set, in which case the existing
// binary's file is replaced instead.
func (c *Commander) PushBinary(ctx context.Context, plugin *Plugin, filename string, contents []byte, version string, force bool) (*Plugin, error) {
	for i := range plugin.Binaries {
		if !VersionsEqual(plugin.Binaries[i].Version, version) {
			continue
		}
		if !force {
			return nil, &VersionConflictError{Plugin: plugin.Name, Version: plugin.Binaries[i].Version}
		}
		return c.UpdateBinary(ctx, plugin, &plugin.Binaries[i], filename, contents)
	}
	return c.UploadBinary(ctx, plugin, filename, contents)
}

// SaveBinary persists a binary's metadata (changelogs, compatibility,
// encryption and license flags). Only the server-authoritative fields are
// merged back onto the local binary.
func (c *Commander) SaveBinary(ctx context.Context, plugin *Plugin, binary *Binary) (*Plugin, error) {
	c.observer.Emit(client.EventInfo, fmt.Sprintf("Saving binary version %s of plugin %s...", binary.Version, plugin.Name))

	var updated Binary
	path := fmt.Sprintf("plugins/%d/binaries/%d", plugin.ID, binary.ID)
	if err := c.client.Put(ctx, path, binary, &updated); err != nil {
		return nil, fmt.Errorf("saving binary %s of plugin %s: %w", binary.Version, plugin.Name, err)
	}

	binary.Status = updated.Status
	binary.Changelogs = updated.Changelogs
	binary.CompatibleSoftwareVersions = updated.CompatibleSoftwareVersions

	return plugin, nil
}

// EnablePartialEncryption enables the partial ionCube encryption addon for an
// encrypted plugin. It is idempotent: plugins without the encryption addon,
// or with partial encryption already enabled, are returned unchanged.
func (c *Commander) EnablePartialEncryption(ctx context.Context, plugin *Plugin) (*Plugin, error) {
	if !hasAddon(plugin.Addons, addonIonCubeEncryption) {
		return plugin, nil
	}
	if hasAddon(plugin.Addons, addonPartialIonCubeEncryption) {
		c.observer.Emit(client.EventInfo, fmt.Sprintf("Partial ionCube encryption for plugin %s already enabled", plugin.Name))
		return plugin, nil
	}

	var partialAddon *Addon
	for i := range c.statics.Addons {
		if c.statics.Addons[i].Name == addonPartialIonCubeEncryption {
			partialAddon = &c.statics.Addons[i]
			break
		}
	}
	if partialAddon == nil {
		return nil, fmt.Errorf("plugin %s: %w", plugin.Name, ErrMissingEncryptionAddon)
	}

	plugin.Addons = append(plugin.Addons, *partialAddon)
	c.observer.Emit(client.EventInfo, fmt.Sprintf("Enabling partial ionCube encryption for plugin %s...", plugin.Name))

	return c.SavePlugin(ctx, plugin, 0)
}

// RequestReview submits the plugin's latest binary for review and polls the
// review status until it leaves the pending states or the poll bound is
// exceeded. Exceeding the bound returns a ReviewTimeoutError without
// cancelling the remote review. The review's terminal status is returned
// as-is; interpreting anything other than approved as a failure is up to the
// caller.
func (c *Commander) RequestReview(ctx context.Context, plugin *Plugin) (*Plugin, error) {
	c.observer.Emit(client.EventInfo, fmt.Sprintf("Requesting review of plugin %s...", plugin.Name))

	path := fmt.Sprintf("plugins/%d/reviews", plugin.ID)
	var raw json.RawMessage
	if err := c.client.Post(ctx, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("requesting review of plugin %s: %w", plugin.Name, err)
	}
	review, err := decodeReview(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding review of plugin %s: %w", plugin.Name, err)
	}

	plugin.Reviews = append(plugin.Reviews, review)
	tracked := &plugin.Reviews[len(plugin.Reviews)-1]

	if err := c.pollReview(ctx, plugin, tracked); err != nil {
		return nil, err
	}
	return plugin, nil
}

// pollReview waits for the tracked review to reach a terminal status,
// fetching the review list once per interval. The review id is never
// mutated; only status and comment are updated from the poll responses.
func (c *Commander) pollReview(ctx context.Context, plugin *Plugin, review *Review) error {
	path := fmt.Sprintf("plugins/%d/reviews", plugin.ID)

	for polls := 1; ; polls++ {
		c.observer.Emit(client.EventWaitingForReview, fmt.Sprintf("Waiting for review of plugin %s to finish...", plugin.Name))

		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}

		var reviews []Review
		if err := c.client.Get(ctx, path, nil, &reviews); err != nil {
			return fmt.Errorf("polling review status of plugin %s: %w", plugin.Name, err)
		}
		for i := range reviews {
			if reviews[i].ID == review.ID {
				review.Status = reviews[i].Status
				review.Comment = reviews[i].Comment
				break
			}
		}

		if !c.pendingStatuses[review.Status.ID] {
			return nil
		}
		if polls >= c.maxPolls {
			return &ReviewTimeoutError{Plugin: plugin.Name, Polls: polls}
		}
	}
}

// decodeReview accepts both response shapes of the review endpoint: a single
// review object or a list, in which case the most recent entry counts.
func decodeReview(raw json.RawMessage) (Review, error) {
	var list []Review
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return Review{}, fmt.Errorf("review endpoint returned an empty list")
		}
		return list[len(list)-1], nil
	}
	var review Review
	if err := json.Unmarshal(raw, &review); err != nil {
		return Review{}, err
	}
	return review, nil
}

func hasAddon(addons []Addon, name string) bool {
	for _, addon := range addons {
		if addon.Name == name {
			return true
		}
	}
	return false
}
