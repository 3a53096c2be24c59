package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipball-backend/internal/handlers"
	"flipball-backend/internal/monitoring"
	"flipball-backend/internal/services"
)

// firstBox always picks box 1 on odd attempts.
type firstBox struct{}

func (firstBox) IntN(int) int { return 0 }

type testServer struct {
	router *gin.Engine
	mr     *miniredis.Miniredis
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	store := services.NewRedisServiceFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.Out = io.Discard

	ws := handlers.NewWebSocketHandler(store, log)
	t.Cleanup(ws.Close)

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	svc := services.NewService(store, services.Options{
		Random:      firstBox{},
		Broadcaster: ws,
		Metrics:     metrics,
		Logger:      log,
	})

	router := handlers.NewRouter(handlers.RouterConfig{
		Service:   svc,
		WebSocket: ws,
		Logger:    log,
		Metrics:   metrics,
		Gatherer:  reg,
	})

	return &testServer{router: router, mr: mr}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func (s *testServer) signup(t *testing.T, email string) {
	t.Helper()
	code, resp := s.do(t, http.MethodPost, "/signup", map[string]string{
		"firstname": "Pat",
		"lastname":  "Player",
		"email":     email,
		"password":  "hunter2",
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, resp["success"])
}

func TestSignupAndLogin(t *testing.T) {
	s := setupServer(t)
	s.signup(t, "pat@example.com")

	code, resp := s.do(t, http.MethodPost, "/signup", map[string]string{"email": "pat@example.com", "password": "x"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "User already exists!", resp["message"])

	code, resp = s.do(t, http.MethodPost, "/login", map[string]string{"email": "pat@example.com", "password": "hunter2"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Login successful!", resp["message"])
	assert.Equal(t, "pat@example.com", resp["email"])

	_, resp = s.do(t, http.MethodPost, "/login", map[string]string{"email": "pat@example.com", "password": "nope"})
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Invalid credentials!", resp["message"])
	assert.NotContains(t, resp, "email")
}

func TestBalanceAndProfile(t *testing.T) {
	s := setupServer(t)
	s.signup(t, "pat@example.com")

	code, resp := s.do(t, http.MethodGet, "/balance?email=pat@example.com", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(100), resp["balance"])
	assert.Equal(t, float64(0), resp["attempts"])

	_, resp = s.do(t, http.MethodGet, "/balance", nil)
	assert.Equal(t, "No email provided!", resp["message"])

	_, resp = s.do(t, http.MethodGet, "/balance?email=ghost@example.com", nil)
	assert.Equal(t, "User not found!", resp["message"])

	code, resp = s.do(t, http.MethodGet, "/profile?email=pat@example.com", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Pat", resp["firstname"])
	assert.Equal(t, "Player", resp["lastname"])
	assert.Equal(t, "pat@example.com", resp["email"])
	assert.Equal(t, float64(100), resp["balance"])
	assert.NotContains(t, resp, "password")
}

func TestProfileStorageErrorIs500(t *testing.T) {
	s := setupServer(t)
	s.mr.Close()

	code, resp := s.do(t, http.MethodGet, "/profile?email=pat@example.com", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Server error", resp["message"])

	code, resp = s.do(t, http.MethodGet, "/balance?email=pat@example.com", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, resp["success"])
}

func TestUpdateBalanceIsPartialOverwrite(t *testing.T) {
	s := setupServer(t)
	s.signup(t, "pat@example.com")

	_, resp := s.do(t, http.MethodPost, "/update-balance", map[string]interface{}{
		"email":    "pat@example.com",
		"balance":  -40,
		"attempts": -2,
	})
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Balance updated!", resp["message"])

	_, resp = s.do(t, http.MethodPost, "/update-balance", map[string]interface{}{
		"email":   "pat@example.com",
		"balance": 75,
	})
	assert.Equal(t, true, resp["success"])

	_, resp = s.do(t, http.MethodGet, "/balance?email=pat@example.com", nil)
	assert.Equal(t, float64(75), resp["balance"])
	assert.Equal(t, float64(-2), resp["attempts"])

	_, resp = s.do(t, http.MethodPost, "/update-balance", map[string]interface{}{"email": "ghost@example.com", "balance": 1})
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "User not found!", resp["message"])
}

func TestAddFunds(t *testing.T) {
	s := setupServer(t)
	s.signup(t, "pat@example.com")

	_, resp := s.do(t, http.MethodPost, "/addFunds", map[string]interface{}{"email": "pat@example.com", "amount": 999})
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Minimum ₹1000 required!", resp["message"])

	_, resp = s.do(t, http.MethodPost, "/addFunds", map[string]interface{}{"email": "pat@example.com", "amount": 1000})
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(1100), resp["balance"])
	assert.Equal(t, float64(25), resp["attempts"])

	_, resp = s.do(t, http.MethodPost, "/addFunds", map[string]interface{}{"email": "ghost@example.com", "amount": 1000})
	assert.Equal(t, "User not found", resp["message"])
}

func TestPlay(t *testing.T) {
	s := setupServer(t)
	s.signup(t, "pat@example.com")

	code, resp := s.do(t, http.MethodPost, "/play", map[string]interface{}{"bet": 10, "choice": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing email!", resp["message"])

	code, resp = s.do(t, http.MethodPost, "/play", map[string]interface{}{"email": "pat@example.com", "bet": 10, "choice": 1})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "No attempts left! Add more funds to play again.", resp["message"])

	s.do(t, http.MethodPost, "/update-balance", map[string]interface{}{"email": "pat@example.com", "attempts": 2})

	_, resp = s.do(t, http.MethodPost, "/play", map[string]interface{}{"email": "pat@example.com", "bet": 500, "choice": 1})
	assert.Equal(t, "Insufficient balance!", resp["message"])

	// Attempt 1 is odd: the test random source puts the blue box at 1.
	_, resp = s.do(t, http.MethodPost, "/play", map[string]interface{}{"email": "pat@example.com", "bet": 20, "choice": "3"})
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(1), resp["attemptNumber"])
	assert.Equal(t, float64(1), resp["blueBox"])
	assert.Equal(t, false, resp["win"])
	assert.Equal(t, float64(0), resp["winAmount"])
	assert.Equal(t, float64(20), resp["lost"])
	assert.Equal(t, float64(80), resp["newBalance"])
	assert.Equal(t, float64(1), resp["remainingAttempts"])

	// Attempt 2 is even: the blue box is the first entry of the fixed cycle.
	_, resp = s.do(t, http.MethodPost, "/play", map[string]interface{}{"email": "pat@example.com", "bet": 80, "choice": "2"})
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(2), resp["blueBox"])
	assert.Equal(t, true, resp["win"])
	assert.Equal(t, float64(400), resp["winAmount"])
	assert.Equal(t, float64(0), resp["lost"])
	assert.Equal(t, float64(480), resp["newBalance"])
	assert.Equal(t, float64(0), resp["remainingAttempts"])

	_, resp = s.do(t, http.MethodPost, "/play", map[string]interface{}{"email": "ghost@example.com", "bet": 1, "choice": 1})
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "User not found!", resp["message"])

	_, resp = s.do(t, http.MethodGet, "/history?email=pat@example.com&limit=2", nil)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(2), resp["count"])
	txs := resp["transactions"].([]interface{})
	assert.Equal(t, "win", txs[0].(map[string]interface{})["type"])
	assert.Equal(t, "bet", txs[1].(map[string]interface{})["type"])
}

func TestPlayMalformedBody(t *testing.T) {
	s := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/play", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	code, resp := s.do(t, http.MethodPost, "/play", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing email!", resp["message"])
}

func TestLogoutAndNotFound(t *testing.T) {
	s := setupServer(t)

	code, resp := s.do(t, http.MethodGet, "/logout", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Logged out!", resp["message"])

	code, resp = s.do(t, http.MethodGet, "/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Route not found", resp["message"])

	code, _ = s.do(t, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupServer(t)
	s.do(t, http.MethodGet, "/health", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestWebSocketBalanceUpdates(t *testing.T) {
	s := setupServer(t)
	s.signup(t, "pat@example.com")

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?email=pat@example.com"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readMessage := func() handlers.Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg handlers.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	msg := readMessage()
	assert.Equal(t, handlers.MessageBalanceUpdate, msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, float64(100), data["balance"])

	require.NoError(t, conn.WriteJSON(handlers.Message{Type: handlers.MessagePing}))
	assert.Equal(t, handlers.MessagePong, readMessage().Type)

	s.do(t, http.MethodPost, "/addFunds", map[string]interface{}{"email": "pat@example.com", "amount": 1000})

	msg = readMessage()
	assert.Equal(t, handlers.MessageBalanceUpdate, msg.Type)
	data = msg.Data.(map[string]interface{})
	assert.Equal(t, float64(1100), data["balance"])
	assert.Equal(t, float64(25), data["attempts"])
}
