package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/account"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
)

// fakeGithub serves the token endpoint and the two API calls.
func fakeGithub(t *testing.T, publicEmail string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_abc","token_type":"bearer","scope":"read:user"}`))
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(GithubUser{ID: 99, Login: "octo", Email: publicEmail, Name: "Octo Cat"})
	})
	mux.HandleFunc("GET /user/emails", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"email":"old@example.com","primary":false,"verified":true},{"email":"octo@example.com","primary":true,"verified":true}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server) *GithubClient {
	return NewGithubClient(GithubConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/api/oauth/github/callback",
		Timeout:      time.Second,
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/login/oauth/authorize",
			TokenURL: srv.URL + "/login/oauth/access_token",
		},
		APIBase: srv.URL,
	})
}

func TestGithubClient(t *testing.T) {
	ctx := context.Background()

	t.Run("private email resolved through /user/emails", func(t *testing.T) {
		c := newClient(fakeGithub(t, ""))
		tok, err := c.Exchange(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, "gho_abc", tok.AccessToken)

		u, err := c.FetchUser(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, int64(99), u.ID)
		assert.Equal(t, "octo@example.com", u.Email)
	})

	t.Run("bad code", func(t *testing.T) {
		c := newClient(fakeGithub(t, ""))
		_, err := c.Exchange(ctx, "bad")
		assert.Error(t, err)
	})

	t.Run("auth url carries state", func(t *testing.T) {
		c := newClient(fakeGithub(t, ""))
		u, err := url.Parse(c.AuthURL("st-1"))
		require.NoError(t, err)
		assert.Equal(t, "st-1", u.Query().Get("state"))
		assert.Equal(t, "id", u.Query().Get("client_id"))
		assert.True(t, c.Enabled())
		assert.False(t, NewGithubClient(GithubConfig{}).Enabled())
	})
}

type fakeAccounts struct {
	got       account.GithubIdentity
	token     string
	authorize error
}

func (f *fakeAccounts) UpsertGithub(ctx context.Context, gh account.GithubIdentity, token string) (*entity.Account, error) {
	f.got, f.token = gh, token
	return &entity.Account{ID: 5, Nickname: gh.Login, Enabled: true}, nil
}

func (f *fakeAccounts) Authorize(a entity.Account) error { return f.authorize }

func (f *fakeAccounts) IssueFor(ctx context.Context, a entity.Account) (*account.LoginResult, error) {
	return &account.LoginResult{Tokens: auth.Tokens{AccessToken: "jwt"}, Account: a.Profile()}, nil
}

func TestServiceLogin(t *testing.T) {
	ctx := context.Background()
	srv := fakeGithub(t, "public@example.com")

	accounts := &fakeAccounts{}
	svc := NewService(newClient(srv), accounts, zap.NewNop().Sugar())
	res, err := svc.Login(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Tokens.AccessToken)
	assert.Equal(t, "gho_abc", accounts.token)
	assert.Equal(t, "public@example.com", accounts.got.Email)

	_, err = svc.Login(ctx, "bad")
	assert.Equal(t, CodeOAuthFailed, apperror.From(err).Code())
	assert.Equal(t, http.StatusBadRequest, apperror.From(err).Status())

	pending := apperror.BusinessRule(account.CodeDeletionPending, "pending")
	svc = NewService(newClient(srv), &fakeAccounts{authorize: pending}, zap.NewNop().Sugar())
	_, err = svc.Login(ctx, "good")
	assert.True(t, errors.Is(err, pending))
}

func TestHandlerStateCheck(t *testing.T) {
	srv := fakeGithub(t, "public@example.com")
	h := NewHandler(NewService(newClient(srv), &fakeAccounts{}, zap.NewNop().Sugar()), zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodGet, "/api/oauth/github", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	state := cookies[0].Value
	assert.Contains(t, rec.Header().Get("Location"), "state="+state)

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/github/callback?code=good&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: state})
	rec = httptest.NewRecorder()
	h.Callback(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), CodeOAuthFailed))

	req = httptest.NewRequest(http.MethodGet, "/api/oauth/github/callback?code=good&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: state})
	rec = httptest.NewRecorder()
	h.Callback(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accessToken":"jwt"`)
}
