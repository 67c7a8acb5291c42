package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/example/online-store/internal/api/middleware"
	"github.com/example/online-store/internal/auth"
	"github.com/example/online-store/internal/domain/user"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const refreshCookiePath = "/auth/refresh"

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	userService *user.Service
	jwtService  *auth.JWTService
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(userService *user.Service, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{
		userService: userService,
		jwtService:  jwtService,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token for API clients. Browsers send
// it as a cookie instead.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      auth.RoleFor(u.IsSuperuser),
		CreatedAt: u.CreatedAt,
	}
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	newUser, err := h.userService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toUserResponse(newUser))
}

// Login exchanges credentials for a token pair
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	u, err := h.userService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pair, err := h.jwtService.GeneratePair(u.ID.String(), u.Username, auth.RoleFor(u.IsSuperuser))
	if err != nil {
		respondError(w, r, err)
		return
	}

	log.Info().Str("component", "auth").Str("user_id", u.ID.String()).Msg("user logged in")
	h.setAuthCookies(w, r, pair)
	respondJSON(w, http.StatusOK, pair)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshToken(r)
	if token == "" {
		respondJSONError(w, "no refresh token", http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(token)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		respondJSONError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}
	u, err := h.userService.Get(r.Context(), userID)
	if errors.Is(err, user.ErrUserNotFound) {
		h.clearAuthCookies(w)
		respondJSONError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	} else if err != nil {
		respondError(w, r, err)
		return
	}
	if !u.IsActive {
		h.clearAuthCookies(w)
		respondError(w, r, user.ErrUserDeactivated)
		return
	}

	// Revoking the old token is the rotation step; only one concurrent
	// refresh with the same token gets through.
	fresh, err := h.userService.RevokeToken(r.Context(), claims.ID, claims.ExpiresAtTime())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !fresh {
		h.clearAuthCookies(w)
		respondJSONError(w, "token has been revoked", http.StatusUnauthorized)
		return
	}

	pair, err := h.jwtService.GeneratePair(u.ID.String(), u.Username, auth.RoleFor(u.IsSuperuser))
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.setAuthCookies(w, r, pair)
	respondJSON(w, http.StatusOK, pair)
}

// Logout revokes the access token in use and, when presented, the refresh
// token alongside it.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := h.userService.RevokeToken(r.Context(), claims.ID, claims.ExpiresAtTime()); err != nil {
		respondError(w, r, err)
		return
	}

	if token := refreshToken(r); token != "" {
		if rc, err := h.jwtService.ValidateRefreshToken(token); err == nil && rc.UserID == claims.UserID {
			if _, err := h.userService.RevokeToken(r.Context(), rc.ID, rc.ExpiresAtTime()); err != nil {
				respondError(w, r, err)
				return
			}
		}
	}

	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logout successful",
	})
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	u, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(u))
}

// ChangePassword handles password change requests
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	err = h.userService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, user.ErrInvalidCredentials) {
		respondJSONError(w, "current password is incorrect", http.StatusBadRequest)
		return
	} else if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password changed successfully",
	})
}

// refreshToken reads the refresh token from the JSON body or the cookie.
func refreshToken(r *http.Request) string {
	if r.Body != nil && r.ContentLength != 0 {
		var req RefreshRequest
		if err := decodeJSON(r, &req); err == nil && req.RefreshToken != "" {
			return req.RefreshToken
		}
	}
	if cookie, err := r.Cookie("refresh_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *AuthHandlers) setAuthCookies(w http.ResponseWriter, r *http.Request, pair *auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    pair.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
	})
}
