package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ani-canvas-backend/internal/auth"
	"ani-canvas-backend/internal/handlers"
	"ani-canvas-backend/internal/middleware"
	"ani-canvas-backend/internal/models"
	"ani-canvas-backend/internal/realtime"
	"ani-canvas-backend/internal/supabase"
)

type fakeAuthClient struct {
	signUpCalls int
	signInCalls int
}

func (f *fakeAuthClient) SignUp(email, password string) (*auth.Identity, error) {
	f.signUpCalls++
	return &auth.Identity{ID: "uid-1", Email: email}, nil
}

func (f *fakeAuthClient) SignInWithPassword(email, password string) (*auth.TokenPair, error) {
	f.signInCalls++
	return &auth.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600, UserID: "uid-1"}, nil
}

func (f *fakeAuthClient) AuthorizeURL(provider string) (string, error) {
	return "https://auth.test/authorize?provider=" + provider, nil
}

func (f *fakeAuthClient) SignOut(accessToken string) error            { return nil }
func (f *fakeAuthClient) SendPasswordReset(email string) error        { return nil }
func (f *fakeAuthClient) SendEmailVerification(email string) error    { return nil }
func (f *fakeAuthClient) UpdatePassword(token, password string) error { return nil }

type fakeDocs struct {
	users       map[string]models.User
	emailCounts map[string]int
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{users: make(map[string]models.User), emailCounts: make(map[string]int)}
}

func (f *fakeDocs) CreateUser(user models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeDocs) GetUser(userID string) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, supabase.ErrNotFound
	}
	return &user, nil
}

func (f *fakeDocs) CountUsersByEmail(email string) (int, error) {
	return f.emailCounts[email], nil
}

type fakeKV struct{}

func (f *fakeKV) Set(path string, value interface{}) error { return nil }
func (f *fakeKV) Remove(path string) error                 { return nil }
func (f *fakeKV) Subscribe(path string) (<-chan realtime.Event, func()) {
	ch := make(chan realtime.Event)
	return ch, func() { close(ch) }
}
func (f *fakeKV) OnDisconnect(connID, path string)    {}
func (f *fakeKV) CloseConnection(connID string) error { return nil }

func newAuthRouter(client *fakeAuthClient, docs *fakeDocs) *gin.Engine {
	gin.SetMode(gin.TestMode)
	service := auth.NewService(client, docs, &fakeKV{}, "share", zap.NewNop())
	handler := handlers.NewAuthHandler(service, realtime.NewHub(zap.NewNop()))

	router := gin.New()
	router.POST("/auth/signup", handler.SignUp)
	router.POST("/auth/signin", handler.SignIn)
	router.GET("/auth/oauth/:provider", handler.OAuth)
	router.GET("/auth/email-check", handler.EmailCheck)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSignUp_PasswordConfirmMismatch(t *testing.T) {
	client := &fakeAuthClient{}
	router := newAuthRouter(client, newFakeDocs())

	w := postJSON(t, router, "/auth/signup", models.SignUpRequest{
		Email:           "hana@example.com",
		Name:            "hana",
		Password:        "secret-one",
		PasswordConfirm: "secret-two",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Password Confirm does not match.")
	assert.Zero(t, client.signUpCalls, "provider must not be called on a validation failure")
}

func TestSignUp_EmailAlreadyInUse(t *testing.T) {
	client := &fakeAuthClient{}
	docs := newFakeDocs()
	docs.emailCounts["taken@example.com"] = 1
	router := newAuthRouter(client, docs)

	w := postJSON(t, router, "/auth/signup", models.SignUpRequest{
		Email:           "taken@example.com",
		Name:            "hana",
		Password:        "secret",
		PasswordConfirm: "secret",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, client.signUpCalls)
}

func TestSignUp_Success(t *testing.T) {
	docs := newFakeDocs()
	router := newAuthRouter(&fakeAuthClient{}, docs)

	w := postJSON(t, router, "/auth/signup", models.SignUpRequest{
		Email:           "hana@example.com",
		Name:            "hana",
		Password:        "secret",
		PasswordConfirm: "secret",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SignUpResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "uid-1", resp.UserID)
	assert.Equal(t, "hana", resp.Name)

	_, ok := docs.users["uid-1"]
	assert.True(t, ok, "user document written during sign-up")
}

func TestSignUp_MissingFieldsRejected(t *testing.T) {
	router := newAuthRouter(&fakeAuthClient{}, newFakeDocs())

	w := postJSON(t, router, "/auth/signup", map[string]string{"email": "hana@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignIn_ReturnsTokensAndSessionID(t *testing.T) {
	router := newAuthRouter(&fakeAuthClient{}, newFakeDocs())

	w := postJSON(t, router, "/auth/signin", models.SignInRequest{
		Email:    "hana@example.com",
		Password: "secret",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SignInResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "access", resp.AccessToken)
	assert.Contains(t, resp.SessionID, "uid-1_")
}

func TestOAuth_ReturnsAuthorizationURL(t *testing.T) {
	router := newAuthRouter(&fakeAuthClient{}, newFakeDocs())

	req, _ := http.NewRequest("GET", "/auth/oauth/google", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.OAuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "google", resp.Provider)
	assert.Contains(t, resp.AuthorizationURL, "provider=google")
}

func TestEmailCheck(t *testing.T) {
	docs := newFakeDocs()
	docs.emailCounts["taken@example.com"] = 1
	router := newAuthRouter(&fakeAuthClient{}, docs)

	req, _ := http.NewRequest("GET", "/auth/email-check?email=free@example.com", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.EmailCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Available)

	req, _ = http.NewRequest("GET", "/auth/email-check?email=taken@example.com", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Available)

	req, _ = http.NewRequest("GET", "/auth/email-check", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileEvents_StreamsInitialProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	docs := newFakeDocs()
	docs.users["uid-1"] = models.User{ID: "uid-1", Ref: "share/users/uid-1", Name: "hana", Email: "hana@example.com"}
	service := auth.NewService(&fakeAuthClient{}, docs, &fakeKV{}, "share", zap.NewNop())
	handler := handlers.NewAuthHandler(service, realtime.NewHub(zap.NewNop()))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "uid-1")
		c.Set(middleware.UserEmailKey, "hana@example.com")
		c.Next()
	})
	router.GET("/profile/events", handler.ProfileEvents)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/profile/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event realtime.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, realtime.EventSnapshot, event.Type)
	assert.Equal(t, "share/users/uid-1", event.Path)

	profile, ok := event.Value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "hana@example.com", profile["email"])
	assert.Equal(t, "hana", profile["name"])
}
