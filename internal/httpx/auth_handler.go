package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-api.git/internal/audit"
	"github.com/ariefcatur/go-shop-api.git/internal/auth"
	"github.com/ariefcatur/go-shop-api.git/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type userStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (users.User, error)
	GetByEmail(ctx context.Context, email string) (users.User, error)
	GetByID(ctx context.Context, id int64) (users.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type AuthHandler struct {
	Users  userStore
	Tokens *auth.Maker
	Audit  audit.Recorder
}

func (h *AuthHandler) Register(r *chi.Mux) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Post("/auth/verify", h.verify)
	r.Get("/auth/profile", h.profile)
	r.Put("/auth/change-password", h.changePassword)
	r.With(BearerAuth(h.Tokens)).Post("/auth/logout", h.logout)
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func toUserResponse(u users.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Harap isi nama, email, dan password")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Harap isi nama, email, dan password")
		return
	}
	if len(req.Password) < 6 {
		writeMessage(w, http.StatusBadRequest, "Password harus minimal 6 karakter")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeMessage(w, http.StatusBadRequest, "Email tidak valid")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("hash password")
		writeServerError(w)
		return
	}

	u, err := h.Users.Create(r.Context(), req.Name, req.Email, hash)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			h.Audit.Warn("REGISTRASI GAGAL: Email sudah terdaftar.", audit.Fields{"email": req.Email})
			writeMessage(w, http.StatusBadRequest, "User sudah terdaftar")
			return
		}
		h.Audit.Error("REGISTRASI ERROR: Terjadi kesalahan server.", audit.Fields{"email": req.Email})
		log.Error().Err(err).Msg("create user")
		writeServerError(w)
		return
	}

	token, err := h.Tokens.CreateToken(u.ID, u.Role, u.Email)
	if err != nil {
		log.Error().Err(err).Msg("create token")
		writeServerError(w)
		return
	}

	h.Audit.Info("REGISTRASI: Pengguna baru berhasil dibuat.", audit.Fields{"email": u.Email, "userId": u.ID})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User berhasil dibuat",
		"token":   token,
		"user":    toUserResponse(u),
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Harap isi email dan password")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Harap isi email dan password")
		return
	}

	// Unknown email and wrong password answer identically so the response
	// never reveals which one was wrong.
	u, err := h.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			h.Audit.Warn("LOGIN GAGAL: Email atau password salah.", audit.Fields{"email": req.Email})
			writeMessage(w, http.StatusBadRequest, "Email atau password salah")
			return
		}
		log.Error().Err(err).Msg("get user by email")
		writeServerError(w)
		return
	}
	if err := auth.CheckPassword(req.Password, u.PasswordHash); err != nil {
		h.Audit.Warn("LOGIN GAGAL: Email atau password salah.", audit.Fields{"email": req.Email})
		writeMessage(w, http.StatusBadRequest, "Email atau password salah")
		return
	}

	token, err := h.Tokens.CreateToken(u.ID, u.Role, u.Email)
	if err != nil {
		log.Error().Err(err).Msg("create token")
		writeServerError(w)
		return
	}

	h.Audit.Info("LOGIN: Pengguna berhasil login.", audit.Fields{"email": u.Email, "userId": u.ID, "role": u.Role})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login berhasil",
		"token":   token,
		"user":    toUserResponse(u),
	})
}

// logout exists only so we know who logged out; tokens stay valid until they
// expire and the client discards its copy.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	h.Audit.Info("LOGOUT: Pengguna berhasil logout.", audit.Fields{
		"email": claims.Email, "userId": claims.UserID, "role": claims.Role,
	})
	writeMessage(w, http.StatusOK, "Logout berhasil dicatat.")
}

// profile returns the persisted row, not the token claims: role or name may
// have changed since the token was issued.
func (h *AuthHandler) profile(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeMessage(w, http.StatusUnauthorized, "Token tidak ditemukan")
		return
	}
	claims, err := h.Tokens.VerifyToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			writeMessage(w, http.StatusUnauthorized, "Token expired")
			return
		}
		writeMessage(w, http.StatusUnauthorized, "Token tidak valid")
		return
	}

	u, err := h.Users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "User tidak ditemukan")
			return
		}
		log.Error().Err(err).Msg("get user by id")
		writeServerError(w)
		return
	}

	resp := toUserResponse(u)
	resp.CreatedAt = &u.CreatedAt
	writeJSON(w, http.StatusOK, map[string]any{"user": resp})
}

type verifyReq struct {
	Token string `json:"token"`
}

// verify is best-effort: any decode failure answers {"valid":false} instead of
// an error status.
func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeMessage(w, http.StatusBadRequest, "Token diperlukan")
		return
	}

	claims, err := h.Tokens.VerifyToken(req.Token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "message": "Token tidak valid"})
		return
	}

	u, err := h.Users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, "User tidak ditemukan")
			return
		}
		log.Error().Err(err).Msg("get user by id")
		writeServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "user": toUserResponse(u)})
}

type changePasswordReq struct {
	Token           string `json:"token"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeMessage(w, http.StatusUnauthorized, "Token diperlukan")
		return
	}

	claims, err := h.Tokens.VerifyToken(req.Token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			writeMessage(w, http.StatusUnauthorized, "Token expired")
			return
		}
		writeMessage(w, http.StatusUnauthorized, "Token tidak valid")
		return
	}
	if len(req.NewPassword) < 6 {
		writeMessage(w, http.StatusBadRequest, "Password harus minimal 6 karakter")
		return
	}

	u, err := h.Users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "User tidak ditemukan")
			return
		}
		log.Error().Err(err).Msg("get user by id")
		writeServerError(w)
		return
	}

	if err := auth.CheckPassword(req.CurrentPassword, u.PasswordHash); err != nil {
		writeMessage(w, http.StatusBadRequest, "Password saat ini salah")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Error().Err(err).Msg("hash password")
		writeServerError(w)
		return
	}
	if err := h.Users.UpdatePassword(r.Context(), u.ID, hash); err != nil {
		log.Error().Err(err).Msg("update password")
		writeServerError(w)
		return
	}

	h.Audit.Info("PASSWORD: Password berhasil diubah.", audit.Fields{"userId": u.ID})
	writeMessage(w, http.StatusOK, "Password berhasil diubah")
}
