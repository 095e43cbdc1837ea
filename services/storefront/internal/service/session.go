package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/services/storefront/internal/auth"
	"github.com/utafrali/storefront/services/storefront/internal/client"
	"github.com/utafrali/storefront/services/storefront/internal/domain"
	"github.com/utafrali/storefront/services/storefront/internal/notify"
	"github.com/utafrali/storefront/services/storefront/internal/repository"
	"github.com/utafrali/storefront/services/storefront/internal/state"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "storefront_active_sessions",
	Help: "Storefront sessions currently held in memory",
})

// Storefront is everything one shopper's browser session owns. It is created
// by SessionService and handed to request handlers explicitly.
type Storefront struct {
	ID       string
	Auth     *auth.Session
	Cart     *state.Cart
	Wishlist *state.Wishlist
	Toasts   *notify.Queue

	createdAt time.Time
	lastSeen  time.Time
}

// CartAPIFactory builds the remote cart collaborator for one session.
type CartAPIFactory func(tokens client.TokenSource) state.CartAPI

// SessionEvents receives sign-in state changes.
type SessionEvents interface {
	PublishSessionChange(ctx context.Context, sessionID, userID string, authenticated bool) error
}

// SessionConfig tunes the session registry.
type SessionConfig struct {
	IdleTimeout time.Duration
	QueueSize   int
}

// SessionService is the application-level owner of every storefront
// session. Sessions live in memory; only the identity token is persisted so
// a session survives a restart or eviction.
type SessionService struct {
	repo     repository.SessionRepository
	cartAPI  CartAPIFactory
	validate middleware.TokenValidator
	notifier notify.Notifier
	events   SessionEvents
	logger   *slog.Logger
	cfg      SessionConfig
	now      func() time.Time

	sf       singleflight.Group
	mu       sync.Mutex
	sessions map[string]*Storefront
}

// NewSessionService creates a session registry. notifier receives every
// toast in addition to the session's own queue; events may be nil.
func NewSessionService(
	repo repository.SessionRepository,
	cartAPI CartAPIFactory,
	validate middleware.TokenValidator,
	notifier notify.Notifier,
	events SessionEvents,
	logger *slog.Logger,
	cfg SessionConfig,
) *SessionService {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	return &SessionService{
		repo:     repo,
		cartAPI:  cartAPI,
		validate: validate,
		notifier: notifier,
		events:   events,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]*Storefront),
	}
}

// Open returns the session for id, rehydrating it from the store if it is
// not in memory. An empty or unknown id starts a new session with a fresh
// id; callers must use the returned Storefront's ID from then on.
func (s *SessionService) Open(ctx context.Context, id string) (*Storefront, error) {
	if id != "" {
		if sf := s.touch(id); sf != nil {
			return sf, nil
		}
	}

	if id == "" {
		return s.create(ctx)
	}

	v, err, _ := s.sf.Do(id, func() (any, error) {
		if sf := s.touch(id); sf != nil {
			return sf, nil
		}
		return s.rehydrate(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Storefront), nil
}

// Login signs the session in, runs any pending action, and persists the
// token.
func (s *SessionService) Login(ctx context.Context, sf *Storefront, token string) error {
	if err := sf.Auth.Login(ctx, token); err != nil {
		return err
	}
	s.persist(ctx, sf, token)
	s.logger.InfoContext(ctx, "storefront session signed in",
		slog.String("session_id", sf.ID),
		slog.String("user_id", sf.Auth.UserID()),
	)
	return nil
}

// Logout signs the session out and forgets the persisted token.
func (s *SessionService) Logout(ctx context.Context, sf *Storefront) {
	sf.Auth.Logout(ctx)
	s.persist(ctx, sf, "")
	s.logger.InfoContext(ctx, "storefront session signed out",
		slog.String("session_id", sf.ID),
	)
}

// Abandon closes the login prompt without signing in.
func (s *SessionService) Abandon(_ context.Context, sf *Storefront) {
	sf.Auth.Abandon()
}

// Close ends a session for good, dropping it from memory and the store.
func (s *SessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		activeSessions.Dec()
	}
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Len returns the number of in-memory sessions.
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run evicts idle sessions from memory until ctx is canceled. Evicted
// sessions keep their persisted token and are rehydrated on next use.
func (s *SessionService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				s.logger.Debug("evicted idle storefront sessions", slog.Int("count", n))
			}
		}
	}
}

// EvictIdle drops sessions not seen within the idle timeout and returns how
// many were removed.
func (s *SessionService) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for id, sf := range s.sessions {
		if now.Sub(sf.lastSeen) > s.cfg.IdleTimeout {
			delete(s.sessions, id)
			evicted++
		}
	}
	activeSessions.Sub(float64(evicted))
	return evicted
}

func (s *SessionService) touch(id string) *Storefront {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf, ok := s.sessions[id]
	if !ok {
		return nil
	}
	sf.lastSeen = s.now()
	return sf
}

func (s *SessionService) create(ctx context.Context) (*Storefront, error) {
	sf := s.build(uuid.New().String())

	record := &domain.SessionRecord{ID: sf.ID, CreatedAt: sf.createdAt, UpdatedAt: sf.createdAt}
	if err := s.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.register(sf)
	s.logger.DebugContext(ctx, "storefront session created", slog.String("session_id", sf.ID))
	return sf, nil
}

func (s *SessionService) rehydrate(ctx context.Context, id string) (*Storefront, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.create(ctx)
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	sf := s.build(record.ID)
	sf.createdAt = record.CreatedAt

	if record.Token != "" {
		if err := sf.Auth.Restore(ctx, record.Token); err != nil {
			s.logger.InfoContext(ctx, "persisted session token rejected, continuing signed out",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
			s.persist(ctx, sf, "")
		}
	}

	s.register(sf)
	return sf, nil
}

func (s *SessionService) build(id string) *Storefront {
	now := s.now()
	session := auth.NewSession(s.validate)
	toasts := notify.NewQueue(s.cfg.QueueSize)

	sf := &Storefront{
		ID:        id,
		Auth:      session,
		Wishlist:  state.NewWishlist(),
		Toasts:    toasts,
		createdAt: now,
		lastSeen:  now,
	}
	sf.Cart = state.NewCart(
		s.cartAPI(session),
		session,
		notify.Fanout{toasts, s.notifier},
		s.logger.With(slog.String("session_id", id)),
	)

	session.OnChange(sf.Cart.OnAuthChange)
	if s.events != nil {
		session.OnChange(func(ctx context.Context, authenticated bool) {
			if err := s.events.PublishSessionChange(ctx, id, session.UserID(), authenticated); err != nil {
				s.logger.WarnContext(ctx, "failed to publish session change",
					slog.String("session_id", id),
					slog.String("error", err.Error()),
				)
			}
		})
	}
	return sf
}

func (s *SessionService) register(sf *Storefront) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sf.ID]; !exists {
		activeSessions.Inc()
	}
	s.sessions[sf.ID] = sf
}

// persist stores the session's token. Failures are logged: the in-memory
// session stays usable, it just will not survive eviction.
func (s *SessionService) persist(ctx context.Context, sf *Storefront, token string) {
	record := &domain.SessionRecord{
		ID:        sf.ID,
		Token:     token,
		CreatedAt: sf.createdAt,
		UpdatedAt: s.now(),
	}
	if err := s.repo.Save(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "failed to persist storefront session",
			slog.String("session_id", sf.ID),
			slog.String("error", err.Error()),
		)
	}
}
