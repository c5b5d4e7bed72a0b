package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/xpdash/internal/model"
	"github.com/verte-zerg/xpdash/internal/store"
)

// DefaultTimeout bounds every request to the platform.
const DefaultTimeout = 30 * time.Second

// Options configure a Gateway.
type Options struct {
	SignInURL  string
	GraphQLURL string
	Timeout    time.Duration
	Logger     *zap.Logger
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	// Now overrides the clock used for token expiry checks.
	Now func() time.Time
}

// Gateway owns the bearer token and the cached profile.
type Gateway struct {
	store      *store.Store
	client     *http.Client
	signInURL  string
	graphQLURL string
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	seeded   bool
	issued   int64
	applied  int64
	onLogout []func()
}

// New returns a gateway backed by the given cache.
func New(st *store.Store, opts Options) *Gateway {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		store:      st,
		client:     client,
		signInURL:  opts.SignInURL,
		graphQLURL: opts.GraphQLURL,
		logger:     logger,
		now:        now,
	}
}

// SignIn exchanges credentials for a token and stores it.
func (g *Gateway) SignIn(ctx context.Context, login, password string) error {
	if login == "" || password == "" {
		return fmt.Errorf("%w: login and password are required", ErrInvalidCredentials)
	}
	token, err := signIn(ctx, g.client, g.signInURL, login, password)
	if err != nil {
		g.logger.Warn("Sign-in failed", zap.String("login", login), zap.Error(err))
		return err
	}
	if err := g.store.SaveToken(ctx, token); err != nil {
		return err
	}
	if exp, ok, err := TokenExpiry(token); err == nil && ok {
		g.logger.Info("Signed in", zap.String("login", login), zap.Time("expires", exp))
	} else {
		g.logger.Info("Signed in", zap.String("login", login))
	}
	return nil
}

// SignOut wipes the token and the cached profile.
func (g *Gateway) SignOut(ctx context.Context) error {
	if err := g.store.Clear(ctx); err != nil {
		return err
	}
	// Refreshes still in flight must not repopulate the cache.
	g.mu.Lock()
	g.applied = g.issued
	g.seeded = true
	g.mu.Unlock()
	g.logger.Info("Signed out")
	return nil
}

// Authenticated reports whether a token is stored and not known to be expired.
func (g *Gateway) Authenticated(ctx context.Context) bool {
	token, err := g.store.Token(ctx)
	if err != nil {
		return false
	}
	return !tokenExpired(token, g.now())
}

// OnForceLogout registers a callback run after the session is dropped
// because the platform rejected the token.
func (g *Gateway) OnForceLogout(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.onLogout = append(g.onLogout, fn)
	g.mu.Unlock()
}

// CachedProfile returns the last fetched profile; store.ErrNotFound when the
// cache is empty.
func (g *Gateway) CachedProfile(ctx context.Context) (*model.UserProfile, error) {
	cached, err := g.store.Profile(ctx)
	if err != nil {
		return nil, err
	}
	return cached.Profile, nil
}

// RefreshProfile fetches the profile and replaces the cache. Concurrent
// refreshes are ordered by start; a completion older than one already
// applied returns ErrStaleFetch and leaves the cache untouched.
func (g *Gateway) RefreshProfile(ctx context.Context) (*model.UserProfile, error) {
	seq, err := g.nextSeq(ctx)
	if err != nil {
		return nil, err
	}
	token, err := g.store.Token(ctx)
	if errors.Is(err, store.ErrNotFound) {
		g.forceLogout(ctx, "no token")
		return nil, fmt.Errorf("%w: not signed in", ErrAuthExpired)
	}
	if err != nil {
		return nil, err
	}
	if tokenExpired(token, g.now()) {
		g.forceLogout(ctx, "token expired")
		return nil, fmt.Errorf("%w: token expired", ErrAuthExpired)
	}

	started := g.now()
	profile, requestID, err := fetchProfile(ctx, g.client, g.graphQLURL, token)
	log := g.logger.With(zap.String("request_id", requestID), zap.Int64("seq", seq))
	if err != nil {
		log.Warn("Profile fetch failed", zap.Error(err))
		if errors.Is(err, ErrAuthExpired) {
			g.forceLogout(ctx, "token rejected")
		}
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if seq <= g.applied {
		log.Debug("Discarding stale profile", zap.Int64("applied", g.applied))
		return nil, ErrStaleFetch
	}
	ok, err := g.store.SaveProfile(ctx, seq, profile, g.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Debug("Discarding stale profile")
		return nil, ErrStaleFetch
	}
	g.applied = seq
	log.Info("Profile refreshed",
		zap.String("login", profile.Login),
		zap.Int("transactions", len(profile.Transactions)),
		zap.Int("progresses", len(profile.Progresses)),
		zap.Duration("elapsed", g.now().Sub(started)))
	return profile, nil
}

// nextSeq issues the sequence number of a new refresh. Numbering continues
// from the cached profile so a new process never undercuts it.
func (g *Gateway) nextSeq(ctx context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.seeded {
		cached, err := g.store.Profile(ctx)
		switch {
		case err == nil:
			g.issued = cached.Seq
			g.applied = cached.Seq
		case !errors.Is(err, store.ErrNotFound):
			return 0, err
		}
		g.seeded = true
	}
	g.issued++
	return g.issued, nil
}

func (g *Gateway) forceLogout(ctx context.Context, reason string) {
	g.logger.Warn("Forcing logout", zap.String("reason", reason))
	if err := g.SignOut(ctx); err != nil {
		g.logger.Error("Failed to clear session", zap.Error(err))
	}
	g.mu.Lock()
	callbacks := append([]func(){}, g.onLogout...)
	g.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}
