// Package session holds the session and preference synchronizer: it owns
// the single current user snapshot, keeps it durable in the local store,
// and reconciles it with the remote account service. Local mutations apply
// immediately; remote pushes are best-effort and never rolled back.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"

	"aniview/models"
	"aniview/services/account"
)

// State describes how much trust the current snapshot carries.
type State int

const (
	// LoggedOut means no credential and no snapshot exist.
	LoggedOut State = iota
	// LoggedInProvisional means the cached snapshot is exposed but has not
	// been confirmed against the account service since startup.
	LoggedInProvisional
	// LoggedInSynced means the snapshot was confirmed by a remote fetch.
	LoggedInSynced
)

func (s State) String() string {
	switch s {
	case LoggedInProvisional:
		return "provisional"
	case LoggedInSynced:
		return "synced"
	default:
		return "logged_out"
	}
}

// ErrNotAuthenticated is returned by explicit operations that require a
// session when none exists.
var ErrNotAuthenticated = errors.New("not authenticated")

type accountAPI interface {
	Login(ctx context.Context, email, password string) (*account.AuthResponse, error)
	Register(ctx context.Context, username, email, password string) (*account.AuthResponse, error)
	CurrentUser(ctx context.Context, token string) (*account.UserRecord, error)
	UpdateAvatar(ctx context.Context, token, avatar string) error
	UpdatePreferences(ctx context.Context, token string, patch account.PreferencesPayload) error
	UpdateLists(ctx context.Context, token string, patch account.ListsPatch) error
}

var _ accountAPI = (*account.Client)(nil)

type snapshotStore interface {
	Load() (string, *models.UserSnapshot, error)
	SaveSession(token string, snap *models.UserSnapshot) error
	SaveSnapshot(snap *models.UserSnapshot) error
	Clear() error
}

// Service is the synchronizer. All state lives behind one mutex and every
// visible change is a whole-snapshot replace, so readers never observe a
// torn snapshot.
type Service struct {
	api   accountAPI
	store snapshotStore
	log   *slog.Logger
	clock clockwork.Clock

	// background refresh and optimistic pushes; drained by Close
	inflight conc.WaitGroup

	mu       sync.RWMutex
	state    State
	token    string
	snap     *models.UserSnapshot
	gen      uint64
	loading  bool
	lastSync time.Time
}

// NewService creates a synchronizer. The clock is injected so staleness
// tracking is testable.
func NewService(api accountAPI, store snapshotStore, logger *slog.Logger, clock clockwork.Clock) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		api:   api,
		store: store,
		log:   logger,
		clock: clock,
	}
}

// Bootstrap establishes the initial state from the local store. The
// synchronous portion never touches the network; when a cached credential
// and snapshot both exist the snapshot is exposed provisionally and a
// single background refresh is attempted. Refresh failures are logged and
// swallowed so transient connectivity never degrades a working cache.
func (s *Service) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	token, snap, err := s.store.Load()
	if err != nil {
		s.log.Warn("load local session state", "op", "bootstrap", "err", err)
		token, snap = "", nil
	}

	if token == "" || snap == nil {
		// One remnant without the other is inconsistent; clear both.
		if token != "" || snap != nil {
			if err := s.store.Clear(); err != nil {
				s.log.Warn("clear inconsistent session state", "op", "bootstrap", "err", err)
			}
		}
		s.mu.Lock()
		s.state = LoggedOut
		s.loading = false
		s.mu.Unlock()
		return
	}

	norm := snap.Normalized()

	s.mu.Lock()
	s.state = LoggedInProvisional
	s.token = token
	s.snap = &norm
	s.loading = false
	gen := s.gen
	s.mu.Unlock()

	s.inflight.Go(func() {
		s.refresh(gen, token)
	})
}

// refresh pulls the current user record and replaces the snapshot when the
// owning session is still alive. Used by the background bootstrap path.
func (s *Service) refresh(gen uint64, token string) {
	rec, err := s.api.CurrentUser(context.Background(), token)
	if err != nil {
		// Silent degraded mode: the cached snapshot stays current.
		s.log.Warn("background refresh failed", "op", "refresh", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// Session logged out or replaced while the fetch was in flight.
		return
	}
	s.adoptRecordLocked(rec)
}

// Login authenticates against the account service. On failure nothing is
// committed. On success the credential and reshaped snapshot are persisted
// together before the state becomes visible.
func (s *Service) Login(ctx context.Context, email, password string) error {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.log.Warn("login failed", "op", "login", "err", err)
		return err
	}
	return s.adoptAuth(resp)
}

// Register creates an account and adopts the returned session, with the
// same commit semantics as Login.
func (s *Service) Register(ctx context.Context, username, email, password string) error {
	resp, err := s.api.Register(ctx, username, email, password)
	if err != nil {
		s.log.Warn("registration failed", "op", "register", "err", err)
		return err
	}
	return s.adoptAuth(resp)
}

// Logout clears all local session state synchronously. It deliberately
// never calls the account service: there is no server-side session
// invalidation in this design.
func (s *Service) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		s.log.Warn("clear local session state", "op", "logout", "err", err)
	}
	s.gen++
	s.state = LoggedOut
	s.token = ""
	s.snap = nil
	s.lastSync = time.Time{}
}

// Resync explicitly pulls the remote record and overwrites local state.
// Unlike the background refresh, failures propagate to the caller because
// the sync was requested.
func (s *Service) Resync(ctx context.Context) error {
	s.mu.RLock()
	token := s.token
	gen := s.gen
	loggedIn := s.state != LoggedOut
	s.mu.RUnlock()

	if !loggedIn {
		return ErrNotAuthenticated
	}

	rec, err := s.api.CurrentUser(ctx, token)
	if err != nil {
		s.log.Warn("manual resync failed", "op", "resync", "err", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return ErrNotAuthenticated
	}
	s.adoptRecordLocked(rec)
	return nil
}

func (s *Service) adoptAuth(resp *account.AuthResponse) error {
	snap := snapshotFromRecord(&resp.User, nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveSession(resp.AccessToken, &snap); err != nil {
		s.log.Error("persist session", "op", "login", "err", err)
		return err
	}
	s.gen++
	s.state = LoggedInSynced
	s.token = resp.AccessToken
	s.snap = &snap
	s.lastSync = s.clock.Now()
	return nil
}

// adoptRecordLocked replaces the snapshot with a fetched record, keeping
// the local-only history, and marks the session synced. Persistence happens
// before the exposed state changes. Callers hold s.mu.
func (s *Service) adoptRecordLocked(rec *account.UserRecord) {
	snap := snapshotFromRecord(rec, s.snap)
	if err := s.store.SaveSnapshot(&snap); err != nil {
		s.log.Warn("persist refreshed snapshot", "op", "refresh", "err", err)
	}
	s.snap = &snap
	s.state = LoggedInSynced
	s.lastSync = s.clock.Now()
}

// Current returns a copy of the exposed snapshot, or false when logged out.
func (s *Service) Current() (models.UserSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return models.UserSnapshot{}, false
	}
	return s.snap.Clone(), true
}

// State reports the session state machine's current state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsLoading reports whether the synchronous portion of Bootstrap is still
// running. The view layer gates protected pages on it.
func (s *Service) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastSyncedAt returns when the snapshot was last confirmed remotely, or a
// zero time if never. Observability only; it carries no behavior.
func (s *Service) LastSyncedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// Close waits for in-flight background work (refresh and pushes) to settle.
func (s *Service) Close() {
	s.inflight.Wait()
}

// snapshotFromRecord reshapes the account service's record into a
// defaults-repaired snapshot. The remote record has no history field, so
// the previous snapshot's history survives a wholesale replace.
func snapshotFromRecord(rec *account.UserRecord, prev *models.UserSnapshot) models.UserSnapshot {
	snap := models.UserSnapshot{
		ID:          rec.ID,
		Username:    rec.Username,
		Email:       rec.Email,
		Avatar:      rec.Avatar,
		Role:        rec.Role,
		Preferences: models.DefaultPreferences(),
		Favorites:   append([]string(nil), rec.Favorites...),
		Watchlist:   append([]string(nil), rec.Watchlist...),
	}
	if p := rec.Preferences; p != nil {
		if p.Theme != nil {
			snap.Preferences.Theme = *p.Theme
		}
		if p.Language != nil && *p.Language != "" {
			snap.Preferences.Language = *p.Language
		}
		if p.Notifications != nil {
			snap.Preferences.Notifications = *p.Notifications
		}
	}
	if prev != nil {
		snap.History = append([]string(nil), prev.History...)
	}
	return snap.Normalized()
}
