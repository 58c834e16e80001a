package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotctl/internal/server"
	"github.com/desertthunder/spotctl/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// defaultSkew is the clock-skew tolerance: tokens expiring within this
	// window are refreshed before use.
	defaultSkew = 30 * time.Second

	// defaultLoginTimeout bounds the wait for the authorization callback.
	defaultLoginTimeout = 2 * time.Minute
)

// Scopes requested during authorization. Playback control needs read and
// modify; playlist browsing needs the private-playlist scope.
var Scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-private",
	"playlist-read-private",
}

// SessionState describes the lifecycle of the in-memory session.
type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticating
	Authenticated
	Refreshing
)

func (s SessionState) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

// SessionManager owns the OAuth2 credential lifecycle: the authorization-code
// exchange, silent token refresh, and persistence through the [Store].
//
// All token mutations hit the store before they are handed to callers, so a
// crash immediately after a refresh never loses the new token. Concurrent
// refreshes are collapsed into a single in-flight exchange, since the
// provider may rotate the refresh token on every grant.
type SessionManager struct {
	config       *oauth2.Config
	store        *Store
	logger       *log.Logger
	serverAddr   string
	skew         time.Duration
	loginTimeout time.Duration
	clock        func() time.Time

	mu     sync.Mutex
	record *Record
	state  SessionState
	group  singleflight.Group
}

// NewSessionManager creates a SessionManager from the application config.
func NewSessionManager(conf *shared.Config, store *Store, logger *log.Logger) *SessionManager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	sp := conf.Credentials.Spotify
	redirect := sp.RedirectURI
	if redirect == "" {
		redirect = fmt.Sprintf("http://%s:%d/callback", conf.Server.Host, conf.Server.Port)
	}

	return &SessionManager{
		config: &oauth2.Config{
			ClientID:     sp.ClientID,
			ClientSecret: sp.ClientSecret,
			RedirectURL:  redirect,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		store:        store,
		logger:       logger,
		serverAddr:   fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port),
		skew:         defaultSkew,
		loginTimeout: defaultLoginTimeout,
		clock:        time.Now,
	}
}

// State returns the current session lifecycle state.
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Record returns a copy of the current credential record, or nil.
func (m *SessionManager) Record() *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return nil
	}
	rec := *m.record
	return &rec
}

// StoredRecord reads the credential record from disk, bypassing the
// in-memory cache. A nil record with no error means no stored credentials.
func (m *SessionManager) StoredRecord() (*Record, error) {
	return m.store.Load()
}

// StorePath returns the location of the credential store on disk.
func (m *SessionManager) StorePath() string {
	return m.store.Path()
}

// EnsureValidToken returns a bearer token guaranteed valid for at least the
// clock-skew tolerance. The cached token is returned without I/O when still
// valid; otherwise a refresh-token exchange runs, the store is updated, and
// the new token returned. A rejected refresh token surfaces
// [shared.ErrAuthExpired] and the caller must run [SessionManager.InteractiveLogin].
func (m *SessionManager) EnsureValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.record == nil {
		rec, err := m.store.Load()
		if err != nil {
			m.mu.Unlock()
			return "", err
		}
		m.record = rec
		if rec != nil {
			m.state = Authenticated
		}
	}

	if m.record.Valid(m.clock(), m.skew) {
		token := m.record.AccessToken
		m.mu.Unlock()
		return token, nil
	}

	if m.record == nil || m.record.RefreshToken == "" {
		m.state = Unauthenticated
		m.mu.Unlock()
		return "", shared.ErrNotAuthenticated
	}
	m.state = Refreshing
	m.mu.Unlock()

	v, err, _ := m.group.Do("refresh", func() (any, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// refresh performs the refresh-token grant. Runs inside the singleflight
// group so concurrent callers share one exchange.
func (m *SessionManager) refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	rec := m.record
	if rec == nil || rec.RefreshToken == "" {
		m.state = Unauthenticated
		m.mu.Unlock()
		return "", shared.ErrNotAuthenticated
	}
	// Another waiter may have completed the refresh already.
	if rec.Valid(m.clock(), m.skew) {
		token := rec.AccessToken
		m.state = Authenticated
		m.mu.Unlock()
		return token, nil
	}
	refreshToken := rec.RefreshToken
	m.mu.Unlock()

	stale := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       m.clock().Add(-time.Hour),
	}

	token, err := m.config.TokenSource(ctx, stale).Token()
	if err != nil {
		return "", m.classifyRefreshError(err)
	}

	updated := &Record{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		Scopes:       Scopes,
	}
	if updated.RefreshToken == "" {
		// Provider did not rotate the refresh token; keep the old one.
		updated.RefreshToken = refreshToken
	}

	// Persist before handing the token to the caller.
	if err := m.store.Save(updated); err != nil {
		m.mu.Lock()
		m.state = Authenticated
		m.mu.Unlock()
		return "", fmt.Errorf("failed to persist refreshed credentials: %w", err)
	}

	m.mu.Lock()
	m.record = updated
	m.state = Authenticated
	m.mu.Unlock()

	m.logger.Debug("access token refreshed", "expires_at", updated.ExpiresAt)

	return updated.AccessToken, nil
}

// classifyRefreshError maps a failed refresh exchange to the error taxonomy.
//
// Only a rejected refresh token invalidates the session. Transient failures
// leave the record in place and return the state to Authenticated so the next
// call retries the exchange.
func (m *SessionManager) classifyRefreshError(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" ||
			strings.Contains(string(retrieveErr.Body), "invalid_grant") {
			m.state = Unauthenticated
			return fmt.Errorf("%w: refresh token rejected", shared.ErrAuthExpired)
		}
		m.state = Authenticated
		return fmt.Errorf("%w: token refresh failed: %v", shared.ErrAPIRequest, err)
	}

	m.state = Authenticated
	return fmt.Errorf("%w: %v", shared.ErrUnreachable, err)
}

// Invalidate drops the cached access token so the next [SessionManager.EnsureValidToken]
// call performs a refresh. Used by the gateway's single forced-refresh on 401.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record != nil {
		m.record.AccessToken = ""
		m.record.ExpiresAt = time.Time{}
	}
}

// AuthURL returns the consent URL for the given state token.
func (m *SessionManager) AuthURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// InteractiveLogin runs the authorization-code grant: opens the consent URL,
// listens on the loopback callback port, exchanges the returned code, and
// persists the resulting record.
//
// Fails with [shared.ErrAuthDenied] when the user rejects consent and with
// [shared.ErrAuthTimeout] when no callback arrives within the bounded window.
// The listener is shut down on success, timeout, or cancellation.
func (m *SessionManager) InteractiveLogin(ctx context.Context) error {
	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	m.mu.Lock()
	m.state = Authenticating
	m.mu.Unlock()

	handler := server.NewOAuthHandler(m.config, state)
	router := server.NewBasicRouter()
	router.Handler(handler)

	httpServer := &http.Server{Addr: m.serverAddr, Handler: router}

	serverErrors := make(chan error, 1)
	go func() {
		m.logger.Infof("starting OAuth callback listener at %v", m.serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			m.logger.Warn("error shutting down callback listener", "error", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	authURL := m.AuthURL(state)
	if err := shared.OpenBrowser(authURL); err != nil {
		m.logger.Warnf("failed to open browser automatically %v", err)
		m.logger.Infof("open this URL in your browser: %s", authURL)
	}

	timeout := time.NewTimer(m.loginTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
		// Got result from callback
	case err := <-serverErrors:
		m.setState(Unauthenticated)
		return fmt.Errorf("callback listener error: %w", err)
	case <-timeout.C:
		m.setState(Unauthenticated)
		return fmt.Errorf("%w: no callback within %s", shared.ErrAuthTimeout, m.loginTimeout)
	case <-ctx.Done():
		m.setState(Unauthenticated)
		return ctx.Err()
	}

	if result.Denied {
		m.setState(Unauthenticated)
		return fmt.Errorf("%w: consent rejected", shared.ErrAuthDenied)
	}
	if result.Error() != nil {
		m.setState(Unauthenticated)
		return fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		m.setState(Unauthenticated)
		return fmt.Errorf("no token received")
	}

	record := &Record{
		AccessToken:  result.Token.AccessToken,
		RefreshToken: result.Token.RefreshToken,
		ExpiresAt:    result.Token.Expiry,
		Scopes:       Scopes,
	}

	if err := m.store.Save(record); err != nil {
		m.setState(Unauthenticated)
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	m.mu.Lock()
	m.record = record
	m.state = Authenticated
	m.mu.Unlock()

	m.logger.Info("authorization successful", "expires_at", record.ExpiresAt)

	return nil
}

// Logout deletes the persisted record and resets the session.
func (m *SessionManager) Logout() error {
	m.mu.Lock()
	m.record = nil
	m.state = Unauthenticated
	m.mu.Unlock()

	return m.store.Delete()
}

func (m *SessionManager) setState(s SessionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
