package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestServer wires a login endpoint plus a caller-provided handler for
// everything else, and counts logins.
func newTestServer(t *testing.T, logins *atomic.Int64, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/accesstokens" {
			logins.Add(1)
			var body struct {
				ShopwareID string `json:"shopwareId"`
				Password   string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decoding login body: %v", err)
			}
			if body.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"token": "tok-1", "userId": 42})
			return
		}
		handler(w, r)
	}))
}

func TestTokenCaching(t *testing.T) {
	var logins, requests atomic.Int64
	server := newTestServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if got := r.Header.Get("X-Shopware-Token"); got != "tok-1" {
			t.Errorf("expected token header 'tok-1', got %q", got)
		}
		w.Write([]byte(`{}`))
	})
	defer server.Close()

	c := New(server.URL, "user", "secret")
	for i := 0; i < 5; i++ {
		if err := c.Get(context.Background(), "plugins", nil, nil); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}

	if logins.Load() != 1 {
		t.Errorf("expected exactly 1 login, got %d", logins.Load())
	}
	if requests.Load() != 5 {
		t.Errorf("expected 5 requests, got %d", requests.Load())
	}
	if token, ok := c.Auth().Session().Token(); !ok || token != "tok-1" {
		t.Errorf("expected cached token 'tok-1', got %q", token)
	}
	if c.Auth().Session().UserID() != 42 {
		t.Errorf("expected user id 42, got %d", c.Auth().Session().UserID())
	}
}

func TestInvalidateForcesRelogin(t *testing.T) {
	var logins atomic.Int64
	server := newTestServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer server.Close()

	c := New(server.URL, "user", "secret")
	if err := c.Get(context.Background(), "plugins", nil, nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	c.Auth().Invalidate()
	if err := c.Get(context.Background(), "plugins", nil, nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if logins.Load() != 2 {
		t.Errorf("expected 2 logins after invalidation, got %d", logins.Load())
	}
}

func TestUnauthorizedRetriesOnce(t *testing.T) {
	var logins, attempts atomic.Int64
	server := newTestServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			// token expired
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})
	defer server.Close()

	c := New(server.URL, "user", "secret")
	if err := c.Get(context.Background(), "plugins", nil, nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
	if logins.Load() != 2 {
		t.Errorf("expected exactly one re-login (2 logins total), got %d", logins.Load())
	}
}

func TestUnauthorizedTwiceIsFatal(t *testing.T) {
	var logins, attempts atomic.Int64
	server := newTestServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	c := New(server.URL, "user", "secret")
	err := c.Get(context.Background(), "plugins", nil, nil)

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected no third attempt, got %d attempts", attempts.Load())
	}
}

func TestRateLimitBackoff(t *testing.T) {
	var logins, attempts atomic.Int64
	server := newTestServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	})
	defer server.Close()

	c := New(server.URL, "user", "secret", WithRateLimitDelay(time.Millisecond))
	start := time.Now()
	if err := c.Get(context.Background(), "plugins", nil, nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts (one per 429 plus success), got %d", attempts.Load())
	}
	if elapsed := time.Since(start); elapsed < 2*time.Millisecond {
		t.Errorf("expected at least one delay per 429, finished after %v", elapsed)
	}
}

func TestRateLimitRespectsContext(t *testing.T) {
	var logins atomic.Int64
	server := newTestServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := New(server.URL, "user", "secret", WithRateLimitDelay(10*time.Millisecond))
	err := c.Get(ctx, "plugins", nil, nil)
	if err == nil {
		t.Fatal("expected error after context deadline")
	}
}

func TestHTTPErrorPassthrough(t *testing.T) {
	var logins atomic.Int64
	server := newTestServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})
	defer server.Close()

	c := New(server.URL, "user", "secret")
	err := c.Get(context.Background(), "plugins", nil, nil)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", httpErr.StatusCode)
	}
	if httpErr.Body != "boom" {
		t.Errorf("expected body 'boom', got %q", httpErr.Body)
	}
}

func TestObserverEvents(t *testing.T) {
	var logins atomic.Int64
	server := newTestServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer server.Close()

	var events []Event
	observer := func(event Event, message string) {
		events = append(events, event)
	}

	c := New(server.URL, "user", "secret", WithObserver(observer))
	if err := c.Get(context.Background(), "plugins", nil, nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	want := []Event{
		EventLoggingIn,
		EventRequestStarted, EventRequestEnded, // the login call itself
		EventLoginSuccessful,
		EventRequestStarted, EventRequestEnded, // the actual request
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(events), events)
	}
	for i, event := range want {
		if events[i] != event {
			t.Errorf("event %d: expected %s, got %s", i, event, events[i])
		}
	}
}

func TestUpload(t *testing.T) {
	var logins atomic.Int64
	server := newTestServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("reading file field: %v", err)
		}
		defer file.Close()
		if header.Filename != "MyPlugin.zip" {
			t.Errorf("expected filename 'MyPlugin.zip', got %q", header.Filename)
		}
		w.Write([]byte(`[{"id":1}]`))
	})
	defer server.Close()

	c := New(server.URL, "user", "secret")
	var out []struct {
		ID int64 `json:"id"`
	}
	err := c.Upload(context.Background(), "plugins/1/binaries", "MyPlugin.zip", []byte("zip-bytes"), &out)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if len(out) != 1 || out[0].ID != 1 {
		t.Errorf("unexpected upload response: %+v", out)
	}
}
