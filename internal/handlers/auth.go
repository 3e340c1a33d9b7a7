package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/auth"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/mq"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/oauth"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/services"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/store"
	"github.com/kasundularaam/flash-feather-starter-v6/types"
)

const (
	msgEmailTaken         = "Email already registered"
	msgNameTaken          = "Name already taken"
	msgInvalidCredentials = "Invalid credentials"
	msgNotAuthenticated   = "Not authenticated"
	msgGoogleFailed       = "Google authentication failed"
)

// AuthHandler provides the cookie-based authentication endpoints.
type AuthHandler struct {
	userService   *services.UserService
	authService   *auth.Service
	authenticator *oauth.Authenticator
	events        *mq.EventPublisher
	logger        *slog.Logger
}

// NewAuthHandler constructs an AuthHandler. authenticator may be nil when
// Google login is not configured.
func NewAuthHandler(
	userService *services.UserService,
	authService *auth.Service,
	authenticator *oauth.Authenticator,
	events *mq.EventPublisher,
	logger *slog.Logger,
) *AuthHandler {
	if events == nil {
		events = mq.NewEventPublisher(nil, "", logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		userService:   userService,
		authService:   authService,
		authenticator: authenticator,
		events:        events,
		logger:        logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Get("/me", handler.Me)
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	if handler.authenticator != nil {
		r.Get("/google", handler.GoogleLogin)
		r.Get("/google/callback", handler.GoogleCallback)
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse never carries token strings; they travel only as cookies.
type AuthResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Register creates a local account and starts a session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	if _, err := h.userService.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusBadRequest, msgEmailTaken)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.logger.ErrorContext(r.Context(), "failed to check email", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.userService.CreateLocal(r.Context(), req.Name, req.Email, hashed)
	if err != nil {
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			if conflict.Constraint == store.UsersNameKey {
				writeError(w, http.StatusBadRequest, msgNameTaken)
				return
			}
			writeError(w, http.StatusBadRequest, msgEmailTaken)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	if _, err := h.authService.IssueSession(w, user.ID); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue session", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	h.events.Publish(r.Context(), mq.EventUserRegistered, user, true)

	writeJSON(w, http.StatusOK, AuthResponse{Message: "Registration successful", User: user})
}

// Login verifies credentials and starts a session. Unknown emails and wrong
// passwords get the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to load user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	if !h.authService.VerifyPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	if _, err := h.authService.IssueSession(w, user.ID); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue session", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	h.events.Publish(r.Context(), mq.EventUserLoggedIn, user, false)

	writeJSON(w, http.StatusOK, AuthResponse{Message: "Login successful", User: user})
}

// Logout clears both auth cookies. Tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearAuthCookies(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// GoogleLogin redirects the browser to Google's consent screen.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := h.authenticator.LoginURL(w, r)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to start google login", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start google login")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback binds the Google identity to a local user, sets the session
// cookies and sends the browser home.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authenticator.Callback(w, r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "google callback rejected", "error", err)
		writeError(w, http.StatusBadRequest, msgGoogleFailed)
		return
	}

	user, created, err := h.userService.BindOAuthIdentity(r.Context(), identity)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to bind google identity", "error", err)
		writeError(w, http.StatusBadRequest, msgGoogleFailed)
		return
	}

	if _, err := h.authService.IssueSession(w, user.ID); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue session", "error", err, "user_id", user.ID)
		writeError(w, http.StatusBadRequest, msgGoogleFailed)
		return
	}
	h.events.Publish(r.Context(), mq.EventOAuthLogin, user, created)

	http.Redirect(w, r, "/", http.StatusFound)
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
