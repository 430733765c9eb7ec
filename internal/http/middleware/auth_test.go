package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/brightmoss/quizcraft-backend/internal/pkg/ctxutil"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
)

const testSecret = "auth-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authTestRouter(t *testing.T) (*gin.Engine, *ctxutil.RequestData) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	require.NoError(t, err)

	captured := &ctxutil.RequestData{}
	r := gin.New()
	am := NewAuthMiddleware(log, testSecret)
	r.GET("/protected", am.RequireAuth(), func(c *gin.Context) {
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			*captured = *rd
		}
		c.Status(http.StatusNoContent)
	})
	return r, captured
}

func TestRequireAuthAcceptsSignedToken(t *testing.T) {
	r, captured := authTestRouter(t)
	userID := uuid.New()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  userID.String(),
		"role": "student",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, userID, captured.UserID)
	require.Equal(t, "student", captured.Role)
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	r, _ := authTestRouter(t)
	userID := uuid.New()

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", jwt.MapClaims{
			"sub":  userID.String(),
			"role": "student",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"sub":  userID.String(),
			"role": "student",
			"exp":  time.Now().Add(-time.Hour).Unix(),
		})},
		{"missing role", "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"sub": userID.String(),
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"sub not a uuid", "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"sub":  "user-42",
			"role": "student",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.Contains(t, w.Body.String(), `"code":"unauthorized"`)
		})
	}
}
