package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkoehle/habit-coach/internal/auth"
)

type fakeDenylist struct {
	revoked map[string]bool
	err     error
}

func (d *fakeDenylist) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	_ = ctx
	if d.err != nil {
		return false, d.err
	}
	return d.revoked[jti], nil
}

func newAuthRouter(secret string, denylist TokenDenylist) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthRequired(secret, denylist), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": c.MustGet(UserIDKey)})
	})
	return r
}

func getProtected(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired_RevokedTokenRejected(t *testing.T) {
	const secret = "test-secret"
	token, err := auth.SignJWT(42, secret, time.Hour)
	require.NoError(t, err)
	claims, err := auth.ParseJWT(token, secret)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	deny := &fakeDenylist{revoked: map[string]bool{}}
	r := newAuthRouter(secret, deny)

	assert.Equal(t, http.StatusOK, getProtected(r, token).Code)

	// logout denylists the jti; the still-valid token must stop working
	deny.revoked[claims.ID] = true
	assert.Equal(t, http.StatusUnauthorized, getProtected(r, token).Code)

	delete(deny.revoked, claims.ID)
	assert.Equal(t, http.StatusOK, getProtected(r, token).Code)
}

func TestAuthRequired_MissingOrInvalidToken(t *testing.T) {
	r := newAuthRouter("test-secret", &fakeDenylist{revoked: map[string]bool{}})

	assert.Equal(t, http.StatusUnauthorized, getProtected(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, getProtected(r, "not-a-jwt").Code)
}

func TestAuthRequired_DenylistErrorFailsClosed(t *testing.T) {
	const secret = "test-secret"
	token, err := auth.SignJWT(9, secret, time.Hour)
	require.NoError(t, err)

	r := newAuthRouter(secret, &fakeDenylist{err: errors.New("redis down")})
	assert.Equal(t, http.StatusInternalServerError, getProtected(r, token).Code)
}
