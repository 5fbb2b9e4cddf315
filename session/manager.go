package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Pery99/billpay/backend"
	"github.com/Pery99/billpay/internal/util"
)

// Session lifetimes. When the backend token is a JWT carrying an exp claim,
// the earlier of that claim and the computed lifetime wins.
const (
	shortSessionTTL = time.Hour
	longSessionTTL  = 30 * 24 * time.Hour
)

// ErrNotAuthenticated is returned by operations that need a valid token
// when none is present.
var ErrNotAuthenticated = errors.New("not authenticated")

// State is the session lifecycle state.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	StateProfileLoading
	StateError
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateProfileLoading:
		return "profile-loading"
	case StateError:
		return "error"
	}
	return "unknown"
}

// ErrorKind classifies the last failure so readers can tell recoverable
// connectivity problems from session-ending ones.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorNetwork
	ErrorAuth
	ErrorBusiness
)

// Snapshot is a read-only copy of the session state. Other components read
// snapshots and never mutate the session directly.
type Snapshot struct {
	State        State
	TokenPresent bool
	User         *backend.User
	CachedRole   string
	UserFetched  bool
	LastError    string
	ErrorKind    ErrorKind
}

// Authenticated reports whether a valid (unexpired) token is held.
func (s Snapshot) Authenticated() bool {
	return s.TokenPresent
}

// NeedsProfile reports whether a profile fetch is due: token present, no
// profile loaded, and no fetch attempt concluded for this token lifetime.
func (s Snapshot) NeedsProfile() bool {
	return s.TokenPresent && s.User == nil && !s.UserFetched
}

// Manager owns the session. All mutation goes through its operations; the
// live bearer token is kept in a memguard enclave between uses.
type Manager struct {
	store Store
	api   *backend.Client
	log   zerolog.Logger
	now   func() time.Time

	mu           sync.Mutex
	state        State
	token        *memguard.Enclave
	refreshToken string
	expiresAt    time.Time
	user         *backend.User
	cachedRole   string
	userFetched  bool
	lastErr      string
	errKind      ErrorKind
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// WithNow sets the clock (for tests).
func WithNow(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager rehydrated from the store: a persisted,
// unexpired record restores the token and cached role but not the profile,
// which is re-fetched so the authoritative role can reconcile the cache.
func NewManager(store Store, api *backend.Client, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		api:   api,
		log:   zerolog.Nop(),
		now:   time.Now,
		state: StateAnonymous,
	}
	for _, opt := range opts {
		opt(m)
	}

	if rec, ok := store.Get(); ok {
		m.token = memguard.NewEnclave([]byte(rec.Token))
		m.refreshToken = rec.RefreshToken
		m.expiresAt = rec.ExpiresAt
		m.cachedRole = rec.Role
		m.state = StateAuthenticated
		m.log.Debug().Time("expires_at", rec.ExpiresAt).Msg("session restored from store")
	}
	return m
}

// Login authenticates with the backend. persistLong extends the session
// lifetime from one hour to thirty days.
func (m *Manager) Login(ctx context.Context, email, password string, persistLong bool) error {
	m.beginAuth()
	resp, err := m.api.Login(ctx, util.NormalizeEmail(email), password)
	if err != nil {
		m.failAuth(err)
		return err
	}
	m.commitAuth(resp, persistLong)
	return nil
}

// Register creates an account and authenticates in one step.
func (m *Manager) Register(ctx context.Context, fullName, email, password string) error {
	m.beginAuth()
	resp, err := m.api.Register(ctx, util.Normalize(strings.TrimSpace(fullName)), util.NormalizeEmail(email), password)
	if err != nil {
		m.failAuth(err)
		return err
	}
	m.commitAuth(resp, false)
	return nil
}

// FetchProfile loads the authenticated profile when one is due. A network
// failure leaves the token untouched so a retry can succeed without
// re-login; an authorization failure resets the whole session.
func (m *Manager) FetchProfile(ctx context.Context) error {
	tok, ok := m.Token()
	if !ok {
		return ErrNotAuthenticated
	}

	m.mu.Lock()
	if m.user != nil || m.userFetched {
		m.mu.Unlock()
		return nil
	}
	m.state = StateProfileLoading
	m.lastErr = ""
	m.errKind = ErrorNone
	m.mu.Unlock()

	user, err := m.api.Me(ctx, tok)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case err == nil:
		m.user = user
		m.cachedRole = user.Role
		m.userFetched = true
		m.state = StateAuthenticated
		if err := m.store.Put(Record{Token: tok, ExpiresAt: m.expiresAt, RefreshToken: m.refreshToken, Role: user.Role, User: user}); err != nil {
			m.log.Warn().Err(err).Msg("persisting profile failed")
		}
		return nil

	case errors.Is(err, backend.ErrUnauthorized):
		// The token is dead; holding onto it only produces more 401s.
		m.resetLocked()
		return err

	case backend.IsNetwork(err):
		// Connectivity blip: keep the token, allow a later retry.
		m.lastErr = err.Error()
		m.errKind = ErrorNetwork
		return err

	default:
		m.userFetched = true
		m.lastErr = err.Error()
		m.errKind = ErrorBusiness
		m.state = StateError
		return err
	}
}

// Logout invalidates the session. The backend call is best-effort; local
// state is cleared unconditionally.
func (m *Manager) Logout(ctx context.Context) error {
	if tok, ok := m.Token(); ok {
		if err := m.api.Logout(ctx, tok); err != nil {
			m.log.Debug().Err(err).Msg("remote logout failed, clearing locally")
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

// Token returns the bearer token if an unexpired one is held. Detecting
// expiry clears the session as a side effect.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		return "", false
	}
	if m.now().After(m.expiresAt) {
		m.log.Debug().Msg("token expired, clearing session")
		m.resetLocked()
		return "", false
	}

	buf, err := m.token.Open()
	if err != nil {
		m.resetLocked()
		return "", false
	}
	defer buf.Destroy()
	return strings.Clone(buf.String()), true
}

// IsAuthenticated reports whether an unexpired token is held.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.Token()
	return ok
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var user *backend.User
	if m.user != nil {
		u := *m.user
		user = &u
	}
	return Snapshot{
		State:        m.state,
		TokenPresent: m.token != nil && m.now().Before(m.expiresAt),
		User:         user,
		CachedRole:   m.cachedRole,
		UserFetched:  m.userFetched,
		LastError:    m.lastErr,
		ErrorKind:    m.errKind,
	}
}

func (m *Manager) beginAuth() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAuthenticating
	m.lastErr = ""
	m.errKind = ErrorNone
}

func (m *Manager) failAuth(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err.Error()
	m.state = StateError
	switch {
	case backend.IsNetwork(err):
		m.errKind = ErrorNetwork
	case errors.Is(err, backend.ErrUnauthorized):
		m.errKind = ErrorAuth
	default:
		m.errKind = ErrorBusiness
	}
	// No token was written; the session stays anonymous in substance.
	m.token = nil
	m.user = nil
}

func (m *Manager) commitAuth(resp *backend.AuthResponse, persistLong bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expiresAt := tokenExpiry(resp.Token, persistLong, now)

	user := resp.User
	rec := Record{Token: resp.Token, ExpiresAt: expiresAt, RefreshToken: resp.RefreshToken, Role: user.Role, User: &user}
	if err := m.store.Put(rec); err != nil {
		m.log.Warn().Err(err).Msg("persisting session failed")
	}

	m.token = memguard.NewEnclave([]byte(resp.Token))
	m.refreshToken = resp.RefreshToken
	m.expiresAt = expiresAt
	m.user = &user
	m.cachedRole = user.Role
	m.state = StateAuthenticated
	m.lastErr = ""
	m.errKind = ErrorNone
	m.log.Info().Str("email", user.Email).Time("expires_at", expiresAt).Msg("session established")
}

// resetLocked clears all session state. Callers hold m.mu.
func (m *Manager) resetLocked() {
	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("clearing session store failed")
	}
	m.token = nil
	m.refreshToken = ""
	m.expiresAt = time.Time{}
	m.user = nil
	m.cachedRole = ""
	m.userFetched = false
	m.state = StateAnonymous
	m.lastErr = ""
	m.errKind = ErrorNone
}

// tokenExpiry computes when the session should lapse. JWT exp claims are
// read without signature verification: the client only uses the claim to
// expire earlier, never to extend trust.
func tokenExpiry(token string, persistLong bool, now time.Time) time.Time {
	ttl := shortSessionTTL
	if persistLong {
		ttl = longSessionTTL
	}
	expiresAt := now.Add(ttl)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return expiresAt
	}
	claim, err := parsed.Claims.GetExpirationTime()
	if err != nil || claim == nil {
		return expiresAt
	}
	if claim.Time.Before(expiresAt) {
		return claim.Time
	}
	return expiresAt
}
