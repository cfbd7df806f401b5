package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	manager, err := NewJWTManager("test-secret")
	require.NoError(t, err)
	return manager
}

func TestNewJWTManager_RequiresSecret(t *testing.T) {
	_, err := NewJWTManager("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestValidateAccessToken(t *testing.T) {
	manager := newTestManager(t)

	token, err := manager.GenerateAccessJWT(7, time.Minute)
	require.NoError(t, err)

	userID, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	manager := newTestManager(t)

	token, err := manager.GenerateAccessJWT(7, -time.Minute)
	require.NoError(t, err)

	_, err = manager.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredJWTToken)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	other, err := NewJWTManager("other-secret")
	require.NoError(t, err)
	token, err := other.GenerateAccessJWT(7, time.Minute)
	require.NoError(t, err)

	_, err = newTestManager(t).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_MissingUserID(t *testing.T) {
	claims := &AccessTokenCustomClaims{
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Minute).Unix()},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newTestManager(t).ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidJWTToken)
}

func TestJWTAccessTokenMiddleware(t *testing.T) {
	manager := newTestManager(t)
	validToken, err := manager.GenerateAccessJWT(42, time.Minute)
	require.NoError(t, err)
	expiredToken, err := manager.GenerateAccessJWT(42, -time.Minute)
	require.NoError(t, err)

	var seenUserID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		seenUserID = userID
		w.WriteHeader(http.StatusNoContent)
	})
	handler := JWTAccessTokenMiddleware(manager)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantMsg: "Authorization header is required"},
		{name: "not bearer", header: "Token " + validToken, wantStatus: http.StatusUnauthorized, wantMsg: "Invalid token format"},
		{name: "garbage", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantMsg: "Invalid or expired token"},
		{name: "expired", header: "Bearer " + expiredToken, wantStatus: http.StatusUnauthorized, wantMsg: ErrExpiredJWTToken.Error()},
		{name: "valid", header: "Bearer " + validToken, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/protected/categories", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatus, res.StatusCode)

			if tt.wantMsg != "" {
				var response ErrorResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&response))
				assert.Equal(t, "error", response.Status)
				assert.Equal(t, tt.wantMsg, response.Message)
			}
		})
	}

	assert.Equal(t, int64(42), seenUserID)
}

func TestUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserIDFromContext(req.Context())
	assert.False(t, ok)
}
