package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/juleba580/Foot-Perf-IA/internal/metrics"
	"github.com/juleba580/Foot-Perf-IA/internal/storage"
)

const minPasswordLen = 6

// Handlers carries the authentication service's HTTP endpoints.
type Handlers struct {
	store       *storage.Store
	tokens      *TokenManager
	google      *GoogleClient
	frontendURL string
	metrics     *metrics.Metrics
}

// NewHandlers wires the auth endpoints. metrics may be nil.
func NewHandlers(store *storage.Store, tokens *TokenManager, google *GoogleClient, frontendURL string, m *metrics.Metrics) *Handlers {
	return &Handlers{
		store:       store,
		tokens:      tokens,
		google:      google,
		frontendURL: frontendURL,
		metrics:     m,
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates a local account and returns an access token.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for field, value := range map[string]string{
		"email": req.Email, "password": req.Password,
		"first_name": req.FirstName, "last_name": req.LastName,
	} {
		if value == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s is required", field))
			return
		}
	}

	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	email := strings.ToLower(addr.Address)

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("password hashing failed")
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := &storage.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		AuthProvider: "local",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
		IsActive:     true,
	}

	if err := h.store.CreateUser(user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "user already exists with this email")
			return
		}
		log.Error().Err(err).Msg("user creation failed")
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Email)
	if err != nil {
		log.Error().Err(err).Msg("token generation failed")
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if h.metrics != nil {
		h.metrics.Registrations.Inc()
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "User registered successfully",
		"access_token": token,
		"user":         user.Public(),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies local credentials and returns an access token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(strings.ToLower(req.Email))
	if err != nil || !CheckPassword(user.PasswordHash, req.Password) {
		if h.metrics != nil {
			h.metrics.LoginFailures.Inc()
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Email)
	if err != nil {
		log.Error().Err(err).Msg("token generation failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if h.metrics != nil {
		h.metrics.LoginsTotal.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Login successful",
		"access_token": token,
		"user":         user.Public(),
	})
}

const oauthStateCookie = "oauth_state"

// GoogleLogin redirects the browser to the Google consent screen.
func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.google.Enabled() {
		writeError(w, http.StatusBadRequest, "Google authentication is not configured")
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(h.callbackURL(r), state), http.StatusFound)
}

// GoogleCallback completes the code flow: exchanges the code, finds or
// creates the user, then hands the token to the opener window.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "OAuth state mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	accessToken, err := h.google.Exchange(r.Context(), code, h.callbackURL(r))
	if err != nil {
		log.Error().Err(err).Msg("google token exchange failed")
		writeError(w, http.StatusBadRequest, "Google authentication failed")
		return
	}

	info, err := h.google.Userinfo(r.Context(), accessToken)
	if err != nil {
		log.Error().Err(err).Msg("google userinfo failed")
		writeError(w, http.StatusBadRequest, "failed to get user information from Google")
		return
	}

	email := strings.ToLower(info.Email)
	user, err := h.store.GetUserByEmail(email)
	if errors.Is(err, storage.ErrNotFound) {
		user = &storage.User{
			ID:           uuid.NewString(),
			Email:        email,
			FirstName:    info.GivenName,
			LastName:     info.FamilyName,
			AuthProvider: "google",
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
			IsActive:     true,
		}
		if err := h.store.CreateUser(user); err != nil {
			log.Error().Err(err).Msg("google user creation failed")
			writeError(w, http.StatusInternalServerError, "Google authentication failed")
			return
		}
		if h.metrics != nil {
			h.metrics.Registrations.Inc()
		}
	} else if err != nil {
		log.Error().Err(err).Msg("user lookup failed")
		writeError(w, http.StatusInternalServerError, "Google authentication failed")
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Google authentication failed")
		return
	}

	if h.metrics != nil {
		h.metrics.LoginsTotal.Inc()
	}

	// The popup posts the token to the opener and closes itself.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w,
		`<script>window.opener.postMessage({token: %q}, %q); window.close();</script>`,
		token, h.frontendURL)
}

// Me returns the authenticated user.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// Profile returns the authenticated user's detailed profile.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user.Public()})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the caller's password. Google-provisioned accounts
// set their first local password here and convert to local auth.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "current_password and new_password are required")
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("new password must be at least %d characters", minPasswordLen))
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if user.AuthProvider == "local" {
		if req.CurrentPassword == "" {
			writeError(w, http.StatusBadRequest, "current_password is required")
			return
		}
		if !CheckPassword(user.PasswordHash, req.CurrentPassword) {
			writeError(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		log.Error().Err(err).Msg("password hashing failed")
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}

	user.PasswordHash = hash
	user.AuthProvider = "local"
	if err := h.store.UpdateUser(user); err != nil {
		log.Error().Err(err).Msg("password update failed")
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password updated successfully",
	})
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// UpdateProfile updates the caller's display names.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}

	if err := h.store.UpdateUser(user); err != nil {
		log.Error().Err(err).Msg("profile update failed")
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Profile updated successfully",
		"user":    user.Public(),
	})
}

// Logout acknowledges a stateless logout.
func (h *Handlers) Logout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logout successful"})
}

func (h *Handlers) currentUser(w http.ResponseWriter, r *http.Request) (*storage.User, bool) {
	subject := SubjectFromContext(r.Context())
	user, err := h.store.GetUserByID(subject)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return nil, false
	}
	return user, true
}

func (h *Handlers) callbackURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/api/auth/google/callback", scheme, r.Host)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "success": false})
}
