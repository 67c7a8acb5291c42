package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/online-store/internal/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough"

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(testSecret, 15*time.Minute, 7*24*time.Hour)
}

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[jti], nil
}

func captureClaims(dst **auth.Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := GetUserFromContext(r.Context()); ok {
			*dst = claims
		}
		w.WriteHeader(http.StatusOK)
	})
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthMiddleware_ValidToken_Header(t *testing.T) {
	jwtService := newTestJWTService()
	middleware := AuthMiddleware(jwtService, nil)

	userID := uuid.New().String()
	token, _, err := jwtService.GenerateAccessToken(userID, "alice", auth.RoleCustomer)
	require.NoError(t, err)

	var capturedClaims *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware(captureClaims(&capturedClaims)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, capturedClaims)
	assert.Equal(t, userID, capturedClaims.UserID)
	assert.Equal(t, "alice", capturedClaims.Username)
	assert.Equal(t, auth.RoleCustomer, capturedClaims.Role)
}

func TestAuthMiddleware_ValidToken_Cookie(t *testing.T) {
	jwtService := newTestJWTService()
	middleware := AuthMiddleware(jwtService, nil)

	token, _, err := jwtService.GenerateAccessToken("user-456", "root", auth.RoleAdmin)
	require.NoError(t, err)

	var capturedClaims *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()

	middleware(captureClaims(&capturedClaims)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, capturedClaims)
	assert.Equal(t, "user-456", capturedClaims.UserID)
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	middleware := AuthMiddleware(newTestJWTService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	middleware(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	middleware := AuthMiddleware(newTestJWTService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()

	middleware(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	jwtService := auth.NewJWTService(testSecret, -time.Minute, 7*24*time.Hour)
	middleware := AuthMiddleware(jwtService, nil)

	token, _, err := jwtService.GenerateAccessToken("user-123", "alice", auth.RoleCustomer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_WrongSignature(t *testing.T) {
	issuer := auth.NewJWTService("secret-one-secret-one-secret-one", 15*time.Minute, time.Hour)
	verifier := auth.NewJWTService("secret-two-secret-two-secret-two", 15*time.Minute, time.Hour)

	token, _, err := issuer.GenerateAccessToken("user-123", "alice", auth.RoleCustomer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(verifier, nil)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	jwtService := newTestJWTService()
	pair, err := jwtService.GeneratePair("user-123", "alice", auth.RoleCustomer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	rec := httptest.NewRecorder()

	AuthMiddleware(jwtService, nil)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_CookieTakesPrecedence(t *testing.T) {
	jwtService := newTestJWTService()
	middleware := AuthMiddleware(jwtService, nil)

	cookieToken, _, _ := jwtService.GenerateAccessToken("cookie-user", "cookie", auth.RoleCustomer)
	headerToken, _, _ := jwtService.GenerateAccessToken("header-user", "header", auth.RoleAdmin)

	var capturedClaims *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: cookieToken})
	req.Header.Set("Authorization", "Bearer "+headerToken)
	rec := httptest.NewRecorder()

	middleware(captureClaims(&capturedClaims)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, capturedClaims)
	assert.Equal(t, "cookie-user", capturedClaims.UserID)
}

// ============================================
// Revocation Tests
// ============================================

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	jwtService := newTestJWTService()
	token, _, err := jwtService.GenerateAccessToken("user-123", "alice", auth.RoleCustomer)
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(token)
	require.NoError(t, err)

	revocations := &fakeRevocations{revoked: map[string]bool{claims.ID: true}}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(jwtService, revocations)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "revoked")
}

func TestAuthMiddleware_NotRevoked(t *testing.T) {
	jwtService := newTestJWTService()
	token, _, err := jwtService.GenerateAccessToken("user-123", "alice", auth.RoleCustomer)
	require.NoError(t, err)

	revocations := &fakeRevocations{revoked: map[string]bool{"some-other-jti": true}}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(jwtService, revocations)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_RevocationLookupFails(t *testing.T) {
	jwtService := newTestJWTService()
	token, _, err := jwtService.GenerateAccessToken("user-123", "alice", auth.RoleCustomer)
	require.NoError(t, err)

	revocations := &fakeRevocations{err: errors.New("connection refused")}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(jwtService, revocations)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ============================================
// Require Role Middleware Tests
// ============================================

func TestRequireRole_HasRole(t *testing.T) {
	claims := &auth.Claims{UserID: "user-123", Username: "root", Role: auth.RoleAdmin}
	ctx := context.WithValue(context.Background(), UserContextKey, claims)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	RequireRole(auth.RoleAdmin)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_HasAlternateRole(t *testing.T) {
	claims := &auth.Claims{UserID: "user-123", Role: auth.RoleCustomer}
	ctx := context.WithValue(context.Background(), UserContextKey, claims)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	RequireRole(auth.RoleAdmin, auth.RoleCustomer)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_NoRole(t *testing.T) {
	claims := &auth.Claims{UserID: "user-123", Role: auth.RoleCustomer}
	ctx := context.WithValue(context.Background(), UserContextKey, claims)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	RequireRole(auth.RoleAdmin)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}

func TestRequireRole_NoClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()

	RequireRole(auth.RoleAdmin)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================
// Helper Functions Tests
// ============================================

func TestGetUserFromContext_NoClaims(t *testing.T) {
	result, ok := GetUserFromContext(context.Background())

	assert.False(t, ok)
	assert.Nil(t, result)
}

func TestGetUserID_WithClaims(t *testing.T) {
	id := uuid.New()
	ctx := context.WithValue(context.Background(), UserContextKey, &auth.Claims{UserID: id.String()})

	result, ok := GetUserID(ctx)

	assert.True(t, ok)
	assert.Equal(t, id, result)
}

func TestGetUserID_MalformedClaim(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserContextKey, &auth.Claims{UserID: "user-123"})

	_, ok := GetUserID(ctx)

	assert.False(t, ok)
}

func TestGetUserID_NoClaims(t *testing.T) {
	result, ok := GetUserID(context.Background())

	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, result)
}
