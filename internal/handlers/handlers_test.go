package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"whisply/internal/database"
	"whisply/internal/engine"
	"whisply/internal/middleware"
	"whisply/internal/models"
	"whisply/internal/realtime"
	"whisply/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopMailer struct{}

func (noopMailer) Send(to, subject, body string) error { return nil }

// newTestServer wires the full stack on the in-memory adapter, the same
// way main does for production backends.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	system := actor.NewActorSystem()
	db := database.NewMemoryAdapter()
	metrics := utils.NewMetricsCollector()
	eng := engine.NewEngine(system, db, nil, noopMailer{}, "http://localhost:3000", metrics)

	hub := realtime.NewHub()
	go hub.Run()

	server := NewServer(system, eng, hub, metrics, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", server.HandleSignup())
	mux.HandleFunc("POST /auth/login", server.HandleLogin())
	mux.HandleFunc("GET /auth/me", middleware.RequireAuth(server.HandleMe()))
	mux.HandleFunc("POST /auth/forgot-password", server.HandleForgotPassword())
	mux.HandleFunc("GET /posts", server.HandleListPosts())
	mux.HandleFunc("POST /posts", middleware.RequireAuth(server.HandleCreatePost()))
	mux.HandleFunc("GET /posts/{id}", server.HandleGetPost())
	mux.HandleFunc("PUT /posts/{id}", middleware.RequireAuth(server.HandleUpdatePost()))
	mux.HandleFunc("DELETE /posts/{id}", middleware.RequireAuth(server.HandleDeletePost()))
	mux.HandleFunc("POST /posts/{id}/comments", server.HandleCreateComment())
	mux.HandleFunc("GET /dashboard", middleware.RequireAuth(server.HandleDashboard()))
	mux.HandleFunc("GET /dashboard/posts", middleware.RequireAuth(server.HandleMyPosts()))
	mux.HandleFunc("GET /ws", server.HandleWebSocket())
	mux.HandleFunc("GET /health", server.HandleHealth())

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func signupAndLogin(t *testing.T, baseURL, username string) string {
	t.Helper()

	email := username + "@test.local"
	resp, _ := doJSON(t, http.MethodPost, baseURL+"/auth/signup", "", map[string]string{
		"username":        username,
		"email":           email,
		"password":        "test-pw-123",
		"confirmPassword": "test-pw-123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, baseURL+"/auth/login", "", map[string]string{
		"email":    email,
		"password": "test-pw-123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func TestSignupValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"username":        "alice",
		"email":           "alice@test.local",
		"password":        "one",
		"confirmPassword": "two",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	signupAndLogin(t, ts.URL, "alice")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"email":    "alice@test.local",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequiredForProtectedRoutes(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/posts", "", map[string]string{"title": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/dashboard", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPostLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := signupAndLogin(t, ts.URL, "alice")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/posts", token, map[string]interface{}{
		"title":     "My first post",
		"content":   "Hello",
		"published": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var post models.Post
	require.NoError(t, json.Unmarshal(body, &post))
	assert.Equal(t, "alice", post.AuthorUsername)

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/posts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Posts []*models.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing.Posts, 1)

	resp, body = doJSON(t, http.MethodPut, ts.URL+"/posts/"+post.ID.String(), token, map[string]interface{}{
		"title": "Renamed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Post
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Renamed", updated.Title)

	// Another user cannot touch the post.
	otherToken := signupAndLogin(t, ts.URL, "mallory")
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/posts/"+post.ID.String(), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/posts/"+post.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/posts/"+post.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCommentPersistenceAssignsSequence(t *testing.T) {
	ts := newTestServer(t)
	token := signupAndLogin(t, ts.URL, "alice")

	_, body := doJSON(t, http.MethodPost, ts.URL+"/posts", token, map[string]interface{}{
		"title": "Commented post", "content": "x", "published": true,
	})
	var post models.Post
	require.NoError(t, json.Unmarshal(body, &post))

	commentsURL := fmt.Sprintf("%s/posts/%s/comments", ts.URL, post.ID)

	resp, body := doJSON(t, http.MethodPost, commentsURL, "", map[string]string{
		"text": "first!", "author": "reader1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var c1 models.Comment
	require.NoError(t, json.Unmarshal(body, &c1))
	assert.Equal(t, int64(1), c1.Seq)
	assert.NotEqual(t, uuid.Nil, c1.ID)

	resp, body = doJSON(t, http.MethodPost, commentsURL, "", map[string]string{
		"text": "second", "author": "reader2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var c2 models.Comment
	require.NoError(t, json.Unmarshal(body, &c2))
	assert.Equal(t, int64(2), c2.Seq)

	// Whitespace-only text never becomes part of the log.
	resp, _ = doJSON(t, http.MethodPost, commentsURL, "", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/posts/"+post.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view PostWithCommentsResponse
	require.NoError(t, json.Unmarshal(body, &view))
	require.Len(t, view.Comments, 2)
	assert.Equal(t, "first!", view.Comments[0].Text)
	assert.Equal(t, "second", view.Comments[1].Text)
}

func TestDashboardStats(t *testing.T) {
	ts := newTestServer(t)
	token := signupAndLogin(t, ts.URL, "alice")

	doJSON(t, http.MethodPost, ts.URL+"/posts", token, map[string]interface{}{
		"title": "Pub", "content": "x", "published": true,
	})
	doJSON(t, http.MethodPost, ts.URL+"/posts", token, map[string]interface{}{
		"title": "Draft", "content": "x", "published": false,
	})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/dashboard", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dashboard struct {
		Name         string `json:"name"`
		SummaryStats []struct {
			Title string `json:"title"`
			Value int    `json:"value"`
		} `json:"summaryStats"`
	}
	require.NoError(t, json.Unmarshal(body, &dashboard))
	assert.Equal(t, "alice", dashboard.Name)

	values := make(map[string]int)
	for _, stat := range dashboard.SummaryStats {
		values[stat.Title] = stat.Value
	}
	assert.Equal(t, 2, values["Total Posts"])
	assert.Equal(t, 1, values["Published"])
	assert.Equal(t, 1, values["Drafts"])

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/dashboard/posts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine struct {
		Posts []*models.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(body, &mine))
	assert.Len(t, mine.Posts, 2, "author listing includes drafts")
}

func TestWebSocketRequiresExistingPost(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/ws?postId="+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/ws?postId=not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketRelaysBetweenViewers(t *testing.T) {
	ts := newTestServer(t)
	token := signupAndLogin(t, ts.URL, "alice")

	_, body := doJSON(t, http.MethodPost, ts.URL+"/posts", token, map[string]interface{}{
		"title": "Live post", "content": "x", "published": true,
	})
	var post models.Post
	require.NoError(t, json.Unmarshal(body, &post))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?postId=" + post.ID.String()

	sender, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer sender.Close()

	receiver, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer receiver.Close()

	// Both connections must be registered before the event is relayed.
	time.Sleep(100 * time.Millisecond)

	payload, err := json.Marshal(realtime.TypingPayload{Author: "alice"})
	require.NoError(t, err)
	require.NoError(t, sender.WriteJSON(realtime.Envelope{
		Event:   realtime.EventTyping,
		PostID:  post.ID.String(),
		Payload: payload,
	}))

	receiver.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env realtime.Envelope
	require.NoError(t, receiver.ReadJSON(&env))
	assert.Equal(t, realtime.EventSomeoneTyping, env.Event)
	assert.Equal(t, post.ID.String(), env.PostID)

	var typing realtime.TypingPayload
	require.NoError(t, json.Unmarshal(env.Payload, &typing))
	assert.Equal(t, "alice", typing.Author)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
}
