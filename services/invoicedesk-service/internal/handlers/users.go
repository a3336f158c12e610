package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/consuldesk/invoicedesk/libs/auth"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/storage"
)

type UserHandler struct {
	users     *storage.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewUserHandler(users *storage.UserRepository, jwtSecret string, tokenTTL time.Duration) *UserHandler {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &UserHandler{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        userDTO `json:"user"`
}

type userDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func userToDTO(u storage.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "email and password required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to lookup user")
		return
	}
	if err := verifyPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}

	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Role:  user.Role,
		Iat:   now.Unix(),
		Exp:   now.Add(h.tokenTTL).Unix(),
	}, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to issue token")
		return
	}

	writeData(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        userToDTO(user),
	})
}

// Users serves /api/v1/users: GET lists admin users, POST creates one.
func (h *UserHandler) Users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
	}
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to list users")
		return
	}
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, userToDTO(u))
	}
	writeList(w, http.StatusOK, out, len(out))
}

func (h *UserHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	req.Role = strings.TrimSpace(req.Role)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "email and password required")
		return
	}
	if req.Role == "" {
		req.Role = "admin"
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to hash password")
		return
	}

	user := storage.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, codeDuplicate, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to create user")
		return
	}
	writeData(w, http.StatusCreated, userToDTO(user))
}

func hashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash string, raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
}
