package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/apiclient"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/session"
	"github.com/nestfeed/client/internal/model/social"
)

var (
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrSessionExpired      = errors.New("session expired")
	ErrCredentialsRequired = errors.New("email and password are required")
)

// DefaultRetention is how long a login stays valid.
const DefaultRetention = 7 * 24 * time.Hour

// AuthAPI is the slice of the REST API the session needs.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (apiclient.LoginResult, error)
	Me(ctx context.Context) (social.User, error)
}

// Manager is the single owner of the persisted session. Every token handed out
// passes the retention check first.
type Manager struct {
	store     session.Store
	api       AuthAPI
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger

	mu sync.Mutex

	hooksMu sync.Mutex
	onEnd   []func()
}

// NewManager wires a Manager over store.
func NewManager(store session.Store, api AuthAPI, retention time.Duration, logger *zap.Logger) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{
		store:     store,
		api:       api,
		retention: retention,
		now:       time.Now,
		logger:    logging.OrNop(logger),
	}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Retention returns the configured retention window.
func (m *Manager) Retention() time.Duration {
	return m.retention
}

// OnEnd registers fn to run whenever the current session ends: on logout, on
// expiry, and when a login replaces it. Hooks run after the store has changed,
// without the manager's lock held, so they may call back into the Manager.
func (m *Manager) OnEnd(fn func()) {
	m.hooksMu.Lock()
	m.onEnd = append(m.onEnd, fn)
	m.hooksMu.Unlock()
}

func (m *Manager) sessionEnded() {
	m.hooksMu.Lock()
	hooks := append([]func(){}, m.onEnd...)
	m.hooksMu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Current returns the live session. An expired session is cleared from the
// store before ErrSessionExpired is returned.
func (m *Manager) Current(_ context.Context) (session.Session, error) {
	m.mu.Lock()
	current, err := m.currentLocked()
	m.mu.Unlock()

	if errors.Is(err, ErrSessionExpired) {
		m.sessionEnded()
	}
	return current, err
}

func (m *Manager) currentLocked() (session.Session, error) {
	token, ok, err := m.store.Get(session.KeyToken)
	if err != nil {
		return session.Session{}, fmt.Errorf("read session: %w", err)
	}
	if !ok || token == "" {
		return session.Session{}, ErrNotLoggedIn
	}

	rawLogin, _, err := m.store.Get(session.KeyLoginTime)
	if err != nil {
		return session.Session{}, fmt.Errorf("read session: %w", err)
	}
	millis, parseErr := strconv.ParseInt(strings.TrimSpace(rawLogin), 10, 64)
	if parseErr != nil {
		// a token of unknown age cannot be shown to be inside the window
		return session.Session{}, m.expireLocked("login time missing or invalid")
	}

	current := session.Session{
		Token:         token,
		EstablishedAt: time.UnixMilli(millis),
	}
	if current.Expired(m.now(), m.retention) {
		return session.Session{}, m.expireLocked("retention window exceeded")
	}

	current.Identity.DisplayName, _, err = m.store.Get(session.KeyName)
	if err != nil {
		return session.Session{}, fmt.Errorf("read session: %w", err)
	}
	current.Identity.ID, _, err = m.store.Get(session.KeyUserID)
	if err != nil {
		return session.Session{}, fmt.Errorf("read session: %w", err)
	}
	current.ProfilePic, _, err = m.store.Get(session.KeyProfilePic)
	if err != nil {
		return session.Session{}, fmt.Errorf("read session: %w", err)
	}
	return current, nil
}

func (m *Manager) expireLocked(reason string) error {
	if err := m.store.Clear(); err != nil {
		m.logger.Error("failed to clear expired session", zap.Error(err))
	}
	m.logger.Info("session expired, credentials cleared", zap.String("reason", reason))
	return ErrSessionExpired
}

// Token returns the bearer token of the live session.
func (m *Manager) Token(ctx context.Context) (string, error) {
	current, err := m.Current(ctx)
	if err != nil {
		return "", err
	}
	return current.Token, nil
}

// Login authenticates against the API and persists the new session.
func (m *Manager) Login(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.Session{}, ErrCredentialsRequired
	}

	result, err := m.api.Login(ctx, email, password)
	if err != nil {
		return session.Session{}, err
	}
	if result.Token == "" {
		return session.Session{}, fmt.Errorf("login response carried no token")
	}

	m.mu.Lock()
	err = m.store.Clear()
	if err == nil {
		err = m.store.Set(map[string]string{
			session.KeyToken:      result.Token,
			session.KeyProfilePic: result.ProfilePic,
			session.KeyLoginTime:  strconv.FormatInt(m.now().UnixMilli(), 10),
			session.KeyName:       nameFromGreeting(result.Message),
		})
	}
	m.mu.Unlock()
	// whatever was live before, possibly ended by another process, is gone
	m.sessionEnded()
	if err != nil {
		return session.Session{}, fmt.Errorf("persist session: %w", err)
	}

	if _, err := m.Refresh(ctx); err != nil {
		m.logger.Warn("profile sync after login failed", zap.Error(err))
	}

	m.logger.Info("logged in", zap.String("email", email))
	return m.Current(ctx)
}

// nameFromGreeting takes the display name from a "<name> logged in" message.
func nameFromGreeting(message string) string {
	fields := strings.Fields(message)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Logout drops every persisted key.
func (m *Manager) Logout(_ context.Context) error {
	m.mu.Lock()
	err := m.store.Clear()
	m.mu.Unlock()

	// session-bound state goes even when the store refused to clear
	m.sessionEnded()
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.logger.Info("logged out")
	return nil
}

// Refresh pulls the current user from the API and stores its identity.
func (m *Manager) Refresh(ctx context.Context) (session.Session, error) {
	user, err := m.api.Me(ctx)
	if err != nil {
		return session.Session{}, err
	}
	if err := m.Remember(ctx, user); err != nil {
		return session.Session{}, err
	}
	return m.Current(ctx)
}

// Remember stores identity fields from user, keeping stored values the user lacks.
func (m *Manager) Remember(ctx context.Context, user social.User) error {
	if _, err := m.Current(ctx); err != nil {
		return err
	}

	values := make(map[string]string, 3)
	if user.ID != "" {
		values[session.KeyUserID] = user.ID
	}
	if name := user.DisplayName(); name != "" {
		values[session.KeyName] = name
	}
	if user.ProfilePic != "" {
		values[session.KeyProfilePic] = user.ProfilePic
	}
	if len(values) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Set(values); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}
