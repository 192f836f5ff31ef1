// Package release announces completed plugin releases to an optional
// outbound webhook endpoint.
package release

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	packageurl "github.com/package-url/packageurl-go"
)

// Event is the payload announcing one published plugin version. Changelog
// texts are HTML, keyed by language.
type Event struct {
	PluginName      string            `json:"pluginName"`
	PluginVersion   string            `json:"pluginVersion"`
	PluginLabel     string            `json:"pluginLabel"`
	PluginChangelog map[string]string `json:"pluginChangelog"`
	PackageURL      string            `json:"packageUrl"`
}

// NewEvent assembles the event for one released plugin. producer and name
// form the package identity, expressed as a composer package URL.
func NewEvent(producer, name, version, label string, notes map[string]string) Event {
	purl := packageurl.NewPackageURL(
		packageurl.TypeComposer,
		strings.ToLower(producer),
		strings.ToLower(name),
		version,
		nil,
		"",
	)
	return Event{
		PluginName:      name,
		PluginVersion:   version,
		PluginLabel:     label,
		PluginChangelog: notes,
		PackageURL:      purl.ToString(),
	}
}

// Publisher posts release events to a webhook endpoint.
type Publisher struct {
	endpoint string
	http     *http.Client
}

// NewPublisher creates a publisher for the given endpoint.
func NewPublisher(endpoint string) *Publisher {
	return &Publisher{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Publish posts the event. A failed publish must never fail the release
// itself; callers report the error and move on.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding release event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating release event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("publishing release event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("publishing release event: unexpected status %d", resp.StatusCode)
	}
	return nil
}
