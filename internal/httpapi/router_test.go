package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkoehle/habit-coach/internal/auth"
	"github.com/fkoehle/habit-coach/internal/config"
	"github.com/fkoehle/habit-coach/internal/db"
	"github.com/fkoehle/habit-coach/internal/store/redisstore"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	cfg := config.Load()
	cfg.JWTSecret = "test-secret"

	broker := auth.NewBroker()
	t.Cleanup(broker.Close)

	// the identity endpoints under test never touch redis
	rds := redisstore.New("127.0.0.1:0", "", 0)
	t.Cleanup(func() { _ = rds.Close() })

	return NewRouter(gdb, cfg, rds, broker, nil)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/users", gin.H{
		"email":        "anna@example.com",
		"password":     "hunter22",
		"display_name": "Anna",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Token string `json:"token"`
			Email string `json:"email"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.NotEmpty(t, resp.Data.Token)
	assert.Equal(t, "anna@example.com", resp.Data.Email)

	// duplicate email is rejected
	w = doJSON(t, r, http.MethodPost, "/users", gin.H{
		"email":    "anna@example.com",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// wrong password
	w = doJSON(t, r, http.MethodPost, "/login", gin.H{
		"email":    "anna@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// correct credentials
	w = doJSON(t, r, http.MethodPost, "/login", gin.H{
		"email":    "anna@example.com",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRouter(t)

	// malformed email caught before any write
	w := doJSON(t, r, http.MethodPost, "/users", gin.H{
		"email":    "not-an-email",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// short password
	w = doJSON(t, r, http.MethodPost, "/users", gin.H{
		"email":    "anna@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/habits", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
