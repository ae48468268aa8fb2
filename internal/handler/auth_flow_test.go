package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todo-api/internal/config"
	"go-todo-api/internal/handler"
	"go-todo-api/internal/middleware"
	"go-todo-api/internal/model"
	"go-todo-api/internal/notify"
	"go-todo-api/internal/router"
	"go-todo-api/internal/service"
	"go-todo-api/internal/token"
)

// memUserStore is an in-memory credential store for handler tests.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]model.User{}}
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[strings.ToLower(username)]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *memUserStore) ExistsByEmailOrUsername(_ context.Context, email string, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) || strings.EqualFold(user.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUserStore) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, exists := s.users[key]; exists {
		return model.ErrUserAlreadyExists
	}
	s.users[key] = u
	return nil
}

func (s *memUserStore) List(_ context.Context) ([]model.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.PublicUser, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user.Public())
	}
	return out, nil
}

func (s *memUserStore) delete(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, strings.ToLower(username))
}

// memTodoStore is an in-memory todo store for handler tests.
type memTodoStore struct {
	mu    sync.Mutex
	todos map[string]model.Todo
}

func newMemTodoStore() *memTodoStore {
	return &memTodoStore{todos: map[string]model.Todo{}}
}

func (s *memTodoStore) FindAllByOwner(_ context.Context, ownerID string) ([]model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Todo, 0)
	for _, todo := range s.todos {
		if todo.OwnerID == ownerID {
			out = append(out, todo)
		}
	}
	return out, nil
}

func (s *memTodoStore) FindOne(_ context.Context, ownerID string, todoID string) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, ok := s.todos[todoID]
	if !ok || todo.OwnerID != ownerID {
		return model.Todo{}, model.ErrTodoNotFound
	}
	return todo, nil
}

func (s *memTodoStore) Create(_ context.Context, t model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos[t.ID] = t
	return nil
}

func (s *memTodoStore) Update(_ context.Context, t model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.todos[t.ID]
	if !ok || existing.OwnerID != t.OwnerID {
		return model.ErrTodoNotFound
	}
	s.todos[t.ID] = t
	return nil
}

func (s *memTodoStore) Delete(_ context.Context, ownerID string, todoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, ok := s.todos[todoID]
	if !ok || todo.OwnerID != ownerID {
		return model.ErrTodoNotFound
	}
	delete(s.todos, todoID)
	return nil
}

func (s *memTodoStore) DeleteCompleted(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, todo := range s.todos {
		if todo.OwnerID == ownerID && todo.IsCompleted {
			delete(s.todos, id)
			removed++
		}
	}
	return removed, nil
}

type failingMailer struct{}

func (failingMailer) SendWelcome(context.Context, string, string) error {
	return errors.New("smtp unreachable")
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

type testServer struct {
	*httptest.Server
	users  *memUserStore
	tokens *token.Manager
}

func newTestServer(t *testing.T, mailer notify.EmailSender) *testServer {
	t.Helper()

	cfg := &config.Config{
		RequestTimeout:   5 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
		CSRFEnabled:      true,
		CSRFCookieName:   "csrf_token",
		CSRFHeaderName:   "X-CSRF-Token",
		CookieHTTPOnly:   true,
		CookieSameSite:   http.SameSiteLaxMode,
	}

	tokens, err := token.NewManager("test-secret", "HS256", 30*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	users := newMemUserStore()
	authService := service.NewAuthService(users, tokens, mailer)
	todoService := service.NewTodoService(newMemTodoStore())

	authMiddleware := middleware.NewAuthMiddleware(authService, authService)
	csrf := middleware.NewCSRF(middleware.CSRFOptions{
		Secret:     "test-secret",
		CookieName: cfg.CSRFCookieName,
		HeaderName: cfg.CSRFHeaderName,
		Enabled:    true,
		SameSite:   http.SameSiteLaxMode,
	})

	cookieOptions := handler.CookieOptions{
		HTTPOnly: cfg.CookieHTTPOnly,
		SameSite: cfg.CookieSameSite,
	}

	server := httptest.NewServer(router.New(cfg, authMiddleware, csrf, nil, router.Handlers{
		Auth: handler.NewAuthHandler(authService, csrf, cookieOptions),
		Todo: handler.NewTodoHandler(todoService),
		User: handler.NewUserHandler(authService),
	}))
	t.Cleanup(server.Close)

	return &testServer{Server: server, users: users, tokens: tokens}
}

func postJSON(t *testing.T, url string, payload any, decorate func(*http.Request)) (*http.Response, envelope) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	}
	return env
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func signUpAlice(t *testing.T, ts *testServer) {
	t.Helper()

	resp, _ := postJSON(t, ts.URL+"/api/v1/auth/sign-up", model.SignUpRequest{
		Username: "alice",
		Email:    "a@x.com",
		Password: "pw",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func loginAlice(t *testing.T, ts *testServer) (model.LoginResponse, *http.Response) {
	t.Helper()

	resp, env := postJSON(t, ts.URL+"/api/v1/auth/login", model.LoginRequest{
		Username: "alice",
		Password: "pw",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	return login, resp
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	// Sign-up.
	signUpAlice(t, ts)

	// Duplicate sign-up fails with 400 and creates nothing.
	resp, env := postJSON(t, ts.URL+"/api/v1/auth/sign-up", model.SignUpRequest{
		Username: "alice",
		Email:    "other@x.com",
		Password: "pw2",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)

	// Login returns non-empty tokens, cookies and the CSRF pair.
	login, loginResp := loginAlice(t, ts)
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)
	require.NotEmpty(t, login.CSRFToken)
	assert.Equal(t, "Bearer", login.TokenType)

	accessCookie := cookieByName(loginResp, "access_token")
	require.NotNil(t, accessCookie)
	assert.True(t, accessCookie.HttpOnly)
	require.NotNil(t, cookieByName(loginResp, "refresh_token"))
	csrfCookie := cookieByName(loginResp, "csrf_token")
	require.NotNil(t, csrfCookie)

	// Issued tokens verify back to the same subject and user id.
	claims, err := ts.tokens.Verify(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, login.User.ID, claims.IssuerID)

	// Protected resource with the access token.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/todos", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	listResp.Body.Close()
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	// Same resource without a token.
	anonResp, err := http.Get(ts.URL + "/api/v1/todos")
	require.NoError(t, err)
	anonResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, anonResp.StatusCode)

	// Refresh via cookie mints a new access token for the same subject.
	refreshResp, refreshEnv := postJSON(t, ts.URL+"/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: login.RefreshToken})
	})
	require.Equal(t, http.StatusOK, refreshResp.StatusCode)

	var refreshed model.RefreshResponse
	require.NoError(t, json.Unmarshal(refreshEnv.Data, &refreshed))
	require.NotEmpty(t, refreshed.AccessToken)

	claims, err = ts.tokens.Verify(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)

	// Logout clears the cookies.
	logoutResp, _ := postJSON(t, ts.URL+"/api/v1/auth/logout", nil, nil)
	assert.Equal(t, http.StatusNoContent, logoutResp.StatusCode)
	cleared := cookieByName(logoutResp, "access_token")
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestLogin_UniformFailure(t *testing.T) {
	ts := newTestServer(t, nil)
	signUpAlice(t, ts)

	wrongResp, wrongEnv := postJSON(t, ts.URL+"/api/v1/auth/login", model.LoginRequest{
		Username: "alice",
		Password: "nope",
	}, nil)
	unknownResp, unknownEnv := postJSON(t, ts.URL+"/api/v1/auth/login", model.LoginRequest{
		Username: "ghost",
		Password: "pw",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongResp.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownResp.StatusCode)
	// The error shape must not reveal which field was wrong.
	require.NotNil(t, wrongEnv.Error)
	require.NotNil(t, unknownEnv.Error)
	assert.Equal(t, wrongEnv.Error, unknownEnv.Error)
}

func TestRefresh_DeletedUser(t *testing.T) {
	ts := newTestServer(t, nil)
	signUpAlice(t, ts)
	login, _ := loginAlice(t, ts)

	ts.users.delete("alice")

	resp, _ := postJSON(t, ts.URL+"/api/v1/auth/refresh", model.RefreshRequest{
		RefreshToken: login.RefreshToken,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTodos_CSRFEnforcement(t *testing.T) {
	ts := newTestServer(t, nil)
	signUpAlice(t, ts)
	login, loginResp := loginAlice(t, ts)
	csrfCookie := cookieByName(loginResp, "csrf_token")
	require.NotNil(t, csrfCookie)

	authorize := func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+login.AccessToken)
	}

	// State-changing request without the CSRF pair is rejected.
	resp, _ := postJSON(t, ts.URL+"/api/v1/todos", model.CreateTodoRequest{Title: "buy milk"}, authorize)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// With cookie and header it goes through.
	resp, env := postJSON(t, ts.URL+"/api/v1/todos", model.CreateTodoRequest{Title: "buy milk"}, func(r *http.Request) {
		authorize(r)
		r.AddCookie(csrfCookie)
		r.Header.Set("X-CSRF-Token", login.CSRFToken)
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var todo model.Todo
	require.NoError(t, json.Unmarshal(env.Data, &todo))
	assert.Equal(t, "buy milk", todo.Title)
	assert.Equal(t, login.User.ID, todo.OwnerID)
}

func TestSignUp_EmailFailureIsDistinct(t *testing.T) {
	ts := newTestServer(t, failingMailer{})

	resp, env := postJSON(t, ts.URL+"/api/v1/auth/sign-up", model.SignUpRequest{
		Username: "alice",
		Email:    "a@x.com",
		Password: "pw",
	}, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DOWNSTREAM_ERROR", env.Error.Code)

	// The sign-up itself committed: the user can log in.
	loginResp, _ := postJSON(t, ts.URL+"/api/v1/auth/login", model.LoginRequest{
		Username: "alice",
		Password: "pw",
	}, nil)
	assert.Equal(t, http.StatusOK, loginResp.StatusCode)
}

func TestUsers_AdminOnly(t *testing.T) {
	ts := newTestServer(t, nil)

	// A regular user and an admin.
	signUpAlice(t, ts)
	resp, _ := postJSON(t, ts.URL+"/api/v1/auth/sign-up", model.SignUpRequest{
		Username: "root",
		Email:    "root@x.com",
		Password: "pw",
		IsAdmin:  true,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	fetchUsers := func(accessToken string) int {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/users", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+accessToken)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	login, _ := loginAlice(t, ts)
	assert.Equal(t, http.StatusForbidden, fetchUsers(login.AccessToken))

	_, env := postJSON(t, ts.URL+"/api/v1/auth/login", model.LoginRequest{
		Username: "root",
		Password: "pw",
	}, nil)
	var adminLogin model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &adminLogin))
	assert.Equal(t, http.StatusOK, fetchUsers(adminLogin.AccessToken))
}
