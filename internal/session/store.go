// Package session keeps the signed-in user and their favorites, persisted
// in a key-value store under a fixed namespace.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"futmap/internal/domain"
	"futmap/internal/events"
	"futmap/internal/logging"
	"futmap/internal/metrics"
	"futmap/internal/models"
	"futmap/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const authenticatedFlag = "true"

// Store holds at most one identity. All methods are safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	user *models.User

	kv      domain.KVStore
	auth    domain.Authenticator
	events  domain.EventPublisher
	logger  *zerolog.Logger
	retry   worker.RetryPolicy
	timeout time.Duration
	now     func() time.Time

	authKey string
	userKey string
}

type Option func(*Store)

// WithNamespace sets the key prefix; keys are <ns>_auth and <ns>_user.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.authKey = ns + "_auth"
			s.userKey = ns + "_user"
		}
	}
}

func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Store) { s.logger = logging.Component(logger, "session") }
}

func WithEvents(publisher domain.EventPublisher) Option {
	return func(s *Store) { s.events = publisher }
}

// WithRetry sets the backoff applied to transient store failures.
func WithRetry(policy worker.RetryPolicy) Option {
	return func(s *Store) { s.retry = policy }
}

// WithTimeout bounds each store attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func New(kv domain.KVStore, auth domain.Authenticator, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		auth:    auth,
		logger:  logging.Component(nil, "session"),
		retry:   worker.RetryPolicy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second, BackoffFactor: 2},
		timeout: models.DefaultStoreTimeout * time.Second,
		now:     time.Now,
	}
	WithNamespace(models.DefaultSessionNamespace)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads a persisted session. Missing or unreadable state leaves
// the store unauthenticated; corrupt entries are cleared.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil

	var flag, raw string
	var hasFlag, hasUser bool
	err := s.do(ctx, "restore session", func(ctx context.Context) error {
		var err error
		if flag, hasFlag, err = s.kv.Get(ctx, s.authKey); err != nil {
			return err
		}
		raw, hasUser, err = s.kv.Get(ctx, s.userKey)
		return err
	})
	if err != nil {
		return err
	}
	if !hasFlag || flag != authenticatedFlag || !hasUser {
		return nil
	}

	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		s.logger.Warn().Err(err).Msg("corrupt persisted user, clearing session")
		return s.clear(ctx)
	}
	normalize(&u)
	s.user = &u
	s.logger.Debug().Str("user_id", u.ID).Msg("session restored")
	return nil
}

// Login authenticates and persists the identity.
func (s *Store) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.auth.Authenticate(ctx, email, password)
	if err != nil {
		metrics.IncLogin(false)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.logger.Info().Str("email", email).Msg("login rejected")
		}
		return nil, err
	}
	metrics.IncLogin(true)
	normalize(u)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	s.user = u
	s.publish(events.EventSessionLogin, events.SessionEventPayload{UserID: u.ID, Email: u.Email})

	out := u.Clone()
	return &out, nil
}

// Signup creates a new local user and signs them in.
func (s *Store) Signup(ctx context.Context, name, email, phone, password string) (*models.User, error) {
	if password == "" {
		return nil, domain.Validation("password is required")
	}

	u := &models.User{
		ID:             "user-" + uuid.NewString(),
		Name:           name,
		Email:          email,
		Phone:          phone,
		Avatar:         models.DefaultAvatar,
		FavoriteFields: []string{},
		Bookings:       []models.Booking{},
		CreatedAt:      s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	s.user = u
	s.publish(events.EventSessionLogin, events.SessionEventPayload{UserID: u.ID, Email: u.Email})
	s.logger.Info().Str("user_id", u.ID).Msg("user signed up")

	out := u.Clone()
	return &out, nil
}

// Logout clears the identity and its persisted keys. Safe to repeat.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.user
	s.user = nil
	if err := s.clear(ctx); err != nil {
		return err
	}
	if prev != nil {
		s.publish(events.EventSessionLogout, events.SessionEventPayload{UserID: prev.ID, Email: prev.Email})
	}
	return nil
}

// AddFavorite inserts fieldID into the favorites set. No-op when signed out.
func (s *Store) AddFavorite(ctx context.Context, fieldID string) error {
	return s.updateFavorites(ctx, fieldID, true)
}

// RemoveFavorite drops fieldID from the favorites set. No-op when signed out.
func (s *Store) RemoveFavorite(ctx context.Context, fieldID string) error {
	return s.updateFavorites(ctx, fieldID, false)
}

func (s *Store) updateFavorites(ctx context.Context, fieldID string, add bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil || fieldID == "" {
		return nil
	}
	if s.user.IsFavorite(fieldID) == add {
		return nil
	}

	next := s.user.Clone()
	eventType := events.EventFavoriteAdded
	if add {
		next.FavoriteFields = append(next.FavoriteFields, fieldID)
	} else {
		eventType = events.EventFavoriteRemoved
		kept := next.FavoriteFields[:0]
		for _, id := range next.FavoriteFields {
			if id != fieldID {
				kept = append(kept, id)
			}
		}
		next.FavoriteFields = kept
	}

	if err := s.persistUser(ctx, &next); err != nil {
		return err
	}
	s.user = &next
	s.publish(eventType, events.SessionEventPayload{UserID: next.ID, FieldID: fieldID})
	return nil
}

// Current returns a copy of the signed-in user.
func (s *Store) Current() (*models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil, false
	}
	u := s.user.Clone()
	return &u, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

func (s *Store) IsFavorite(fieldID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.IsFavorite(fieldID)
}

// Close drops the in-memory identity. Persisted state is kept.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	return nil
}

func (s *Store) persist(ctx context.Context, u *models.User) error {
	if err := s.persistUser(ctx, u); err != nil {
		return err
	}
	return s.do(ctx, "persist auth flag", func(ctx context.Context) error {
		return s.kv.Set(ctx, s.authKey, authenticatedFlag)
	})
}

func (s *Store) persistUser(ctx context.Context, u *models.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.do(ctx, "persist user", func(ctx context.Context) error {
		return s.kv.Set(ctx, s.userKey, string(raw))
	})
}

func (s *Store) clear(ctx context.Context) error {
	return s.do(ctx, "clear session", func(ctx context.Context) error {
		return s.kv.Delete(ctx, s.authKey, s.userKey)
	})
}

// do runs fn with a per-attempt timeout, retrying transient failures.
func (s *Store) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return s.retry.Do(ctx, func(ctx context.Context) error {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		err := domain.Transient(op, fn(ctx))
		if err != nil && domain.IsRetryable(err) {
			s.logger.Warn().Err(err).Str("op", op).Msg("transient store failure")
		}
		return err
	})
}

func (s *Store) publish(eventType string, payload events.SessionEventPayload) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("publish event")
	}
}

// normalize keeps collection fields non-nil so they encode as [].
func normalize(u *models.User) {
	if u.FavoriteFields == nil {
		u.FavoriteFields = []string{}
	}
	if u.Bookings == nil {
		u.Bookings = []models.Booking{}
	}
}
