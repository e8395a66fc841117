package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"needboard/internal/core/auth"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthJWT(t *testing.T) {
	j := &auth.JWTer{Secret: []byte("k"), Issuer: "needboard", TTL: time.Minute}
	r := gin.New()
	r.GET("/x", AuthJWT(j, "fulfiller"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(KeyUserID)+"/"+c.GetString(KeyRole))
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, map[string]string{"Authorization": "Bearer nope"}).Code)

	tok, err := j.Issue("u1", "asker")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(r, map[string]string{"Authorization": "Bearer " + tok}).Code)

	tok, err = j.Issue("u2", "fulfiller")
	require.NoError(t, err)
	w := serve(r, map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u2/fulfiller", w.Body.String())

	expired := &auth.JWTer{Secret: []byte("k"), Issuer: "needboard", TTL: -time.Minute}
	tok, err = expired.Issue("u3", "fulfiller")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, map[string]string{"Authorization": "Bearer " + tok}).Code)
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimitPerIP(0.001, 2), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, nil).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(r, nil).Code)
}

func TestRecoveryReturnsJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()))
	r.GET("/x", func(*gin.Context) { panic("boom") })

	w := serve(r, map[string]string{KeyRequestID: "rid-1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"internal error"`)
	assert.Equal(t, "rid-1", w.Header().Get(KeyRequestID))
}

func TestConcurrencyLimitPassesThrough(t *testing.T) {
	r := gin.New()
	r.GET("/x", ConcurrencyLimit(1), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusNoContent, serve(r, nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, nil).Code)
}

func TestRequestIDKeepsValidClientID(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequestID(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	const id = "7b0c6a4e-3f55-4a5e-9a57-1d7d2a0c9e11"
	w := serve(r, map[string]string{KeyRequestID: id})
	assert.Equal(t, id, w.Body.String())
	assert.Equal(t, id, w.Header().Get(KeyRequestID))

	w = serve(r, map[string]string{KeyRequestID: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", w.Body.String())
	assert.Len(t, w.Body.String(), 36)
}
