package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/xpdash/internal/model"
	"github.com/verte-zerg/xpdash/internal/store"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func profileJSON(login string) string {
	return fmt.Sprintf(`{"data":{"user":[{
		"id": 42, "login": %q, "totalUp": 3000, "totalDown": 1500, "auditRatio": 2,
		"transactions": [{"id": 1, "type": "xp", "amount": 1500, "createdAt": "2024-01-01T00:00:00+00:00", "path": "/school/div-01/graphql"}],
		"progresses": [{"id": 2, "grade": 1, "path": "/school/div-01/graphql", "updatedAt": "2024-01-02T00:00:00+00:00",
			"object": {"name": "graphql", "type": "project"}, "group": {"members": [{"userLogin": %q}, {"userLogin": "bob"}]}}]
	}]}}`, login, login)
}

type fixture struct {
	gateway *Gateway
	store   *store.Store
	server  *httptest.Server
}

func newFixture(t *testing.T, handler http.Handler, opts Options) fixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	st, err := store.Open(filepath.Join(t.TempDir(), "xpdash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, st.Close()) })
	opts.SignInURL = srv.URL + "/api/auth/signin"
	opts.GraphQLURL = srv.URL + "/api/graphql-engine/v1/graphql"
	return fixture{gateway: New(st, opts), store: st, server: srv}
}

func TestSignIn(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"User does not exist or password incorrect"}`)
			return
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewEncoder(w).Encode(token))
	})
	f := newFixture(t, mux, Options{})
	ctx := context.Background()

	err := f.gateway.SignIn(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "password incorrect")
	assert.False(t, f.gateway.Authenticated(ctx))

	require.NoError(t, f.gateway.SignIn(ctx, "alice", "secret"))
	stored, err := f.store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, stored, "quotes around the token must be stripped")
	assert.True(t, f.gateway.Authenticated(ctx))
}

func TestSignInRequiresCredentials(t *testing.T) {
	f := newFixture(t, http.NotFoundHandler(), Options{})
	assert.ErrorIs(t, f.gateway.SignIn(context.Background(), "", ""), ErrInvalidCredentials)
}

func TestRefreshProfile(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("/api/graphql-engine/v1/graphql", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err, "request id must be a uuid")
		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ProfileQuery, req.Query)
		fmt.Fprint(w, profileJSON("alice"))
	})
	f := newFixture(t, mux, Options{})
	ctx := context.Background()
	require.NoError(t, f.store.SaveToken(ctx, token))

	_, err := f.gateway.CachedProfile(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	profile, err := f.gateway.RefreshProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Login)
	require.Len(t, profile.Transactions, 1)
	assert.EqualValues(t, "1500", profile.Transactions[0].Amount)
	require.NotNil(t, profile.Progresses[0].Group)

	cached, err := f.gateway.CachedProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, profile, cached)
}

func TestRefreshAuthFailuresForceLogout(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"graphql jwt error": func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"errors":[{"message":"Could not verify JWT: JWTExpired"}]}`)
		},
		"graphql token error": func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"errors":[{"message":"invalid token"}]}`)
		},
		"http 401": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, handler, Options{})
			ctx := context.Background()
			require.NoError(t, f.store.SaveToken(ctx, signedToken(t, time.Now().Add(time.Hour))))

			var loggedOut atomic.Int32
			f.gateway.OnForceLogout(func() { loggedOut.Add(1) })

			_, err := f.gateway.RefreshProfile(ctx)
			require.ErrorIs(t, err, ErrAuthExpired)
			assert.EqualValues(t, 1, loggedOut.Load())
			_, err = f.store.Token(ctx)
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestRefreshOtherGraphQLErrorsKeepSession(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"field 'foo' not found"}]}`)
	}), Options{})
	ctx := context.Background()
	require.NoError(t, f.store.SaveToken(ctx, signedToken(t, time.Now().Add(time.Hour))))

	_, err := f.gateway.RefreshProfile(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthExpired)
	assert.True(t, f.gateway.Authenticated(ctx))
}

func TestRefreshWithExpiredTokenSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	f := newFixture(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }), Options{})
	ctx := context.Background()
	require.NoError(t, f.store.SaveToken(ctx, signedToken(t, time.Now().Add(-time.Minute))))
	assert.False(t, f.gateway.Authenticated(ctx))

	_, err := f.gateway.RefreshProfile(ctx)
	require.ErrorIs(t, err, ErrAuthExpired)
	assert.Zero(t, hits.Load())
}

func TestRefreshWithoutToken(t *testing.T) {
	f := newFixture(t, http.NotFoundHandler(), Options{})
	var loggedOut bool
	f.gateway.OnForceLogout(func() { loggedOut = true })
	_, err := f.gateway.RefreshProfile(context.Background())
	require.ErrorIs(t, err, ErrAuthExpired)
	assert.True(t, loggedOut)
}

func TestRefreshNetworkErrors(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		f := newFixture(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-release }), Options{Timeout: 50 * time.Millisecond})
		defer close(release)
		ctx := context.Background()
		require.NoError(t, f.store.SaveToken(ctx, "opaque-token"))
		_, err := f.gateway.RefreshProfile(ctx)
		require.ErrorIs(t, err, ErrNetwork)
		assert.True(t, f.gateway.Authenticated(ctx), "a network failure must not log out")
	})
	t.Run("connection refused", func(t *testing.T) {
		f := newFixture(t, http.NotFoundHandler(), Options{})
		f.server.Close()
		ctx := context.Background()
		require.NoError(t, f.store.SaveToken(ctx, "opaque-token"))
		_, err := f.gateway.RefreshProfile(ctx)
		require.ErrorIs(t, err, ErrNetwork)
	})
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	var calls atomic.Int32
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			close(firstStarted)
			<-release
			fmt.Fprint(w, profileJSON("old"))
			return
		}
		fmt.Fprint(w, profileJSON("new"))
	}), Options{})
	ctx := context.Background()
	require.NoError(t, f.store.SaveToken(ctx, signedToken(t, time.Now().Add(time.Hour))))

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.gateway.RefreshProfile(ctx)
		firstErr <- err
	}()
	<-firstStarted

	newer, err := f.gateway.RefreshProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", newer.Login)

	close(release)
	require.ErrorIs(t, <-firstErr, ErrStaleFetch)

	cached, err := f.gateway.CachedProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", cached.Login)
}

func TestSequenceContinuesFromCache(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, profileJSON("alice"))
	}), Options{})
	ctx := context.Background()
	require.NoError(t, f.store.SaveToken(ctx, "opaque-token"))
	_, err := f.store.SaveProfile(ctx, 41, &model.UserProfile{Login: "cached"}, time.Now())
	require.NoError(t, err)

	_, err = f.gateway.RefreshProfile(ctx)
	require.NoError(t, err)
	cached, err := f.store.Profile(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 42, cached.Seq)
}

func TestSignOutClearsCache(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, profileJSON("alice"))
	}), Options{})
	ctx := context.Background()
	require.NoError(t, f.store.SaveToken(ctx, "opaque-token"))
	_, err := f.gateway.RefreshProfile(ctx)
	require.NoError(t, err)

	require.NoError(t, f.gateway.SignOut(ctx))
	_, err = f.gateway.CachedProfile(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, f.gateway.Authenticated(ctx))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok, err := TokenExpiry(signedToken(t, exp))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, exp.Equal(got))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok, err = TokenExpiry(noExp)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = TokenExpiry("not-a-jwt")
	assert.Error(t, err)
}

func TestParseToken(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", parseToken([]byte(`"abc.def.ghi"`)))
	assert.Equal(t, "abc.def.ghi", parseToken([]byte("abc.def.ghi\n")))
}
