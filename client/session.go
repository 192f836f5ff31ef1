package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// Session holds the bearer credential obtained from the session-exchange
// endpoint. It is created empty, populated by a successful login and reset
// whenever the server signals that the token has expired. The Authenticator
// is its only writer.
type Session struct {
	mu          sync.Mutex
	accessToken string
	userID      int64
}

// Token returns the cached access token, if any.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.accessToken != ""
}

// UserID returns the user id recorded by the last successful login.
func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) set(token string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
	s.userID = userID
}

// Invalidate clears the access token, forcing the next Token call on the
// Authenticator to log in again.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
}

type loginRequest struct {
	ShopwareID string `json:"shopwareId"`
	Password   string `json:"password"`
}

// Authenticator exchanges credentials for an access token and caches it in a
// Session for the lifetime of the process.
type Authenticator struct {
	username string
	password string
	session  *Session
	client   *Client
}

// Session exposes the session, primarily so callers can read the user id.
func (a *Authenticator) Session() *Session {
	return a.session
}

// Token returns a valid access token. The cached token is returned without a
// network call; if none is held, a login is performed first.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	if token, ok := a.session.Token(); ok {
		return token, nil
	}
	return a.Login(ctx)
}

// Login exchanges the configured credentials for an access token and stores
// it in the session. The login request itself bypasses token injection.
// A 401 response is translated into an AuthError carrying the upstream
// message; every other failure propagates unchanged.
func (a *Authenticator) Login(ctx context.Context) (string, error) {
	a.client.observer.Emit(EventLoggingIn, "Logging in...")

	var res loginResponse
	req := &request{
		method: http.MethodPost,
		path:   "accesstokens",
		body:   jsonBody(loginRequest{ShopwareID: a.username, Password: a.password}),
		noAuth: true,
	}
	if err := a.client.do(ctx, req, &res); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
			return "", &AuthError{Message: "login failed: " + httpErr.Error()}
		}
		return "", err
	}

	a.session.set(res.Token, res.UserID)
	a.client.observer.Emit(EventLoginSuccessful, "Login successful")

	return res.Token, nil
}

// Invalidate clears the cached token.
func (a *Authenticator) Invalidate() {
	a.session.Invalidate()
}
