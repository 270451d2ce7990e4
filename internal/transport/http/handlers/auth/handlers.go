package authhandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leavelite/internal/domain/auth"
	"leavelite/internal/transport/http/api"
	"leavelite/internal/transport/http/middleware"
	"leavelite/internal/transport/http/shared"
)

type Service interface {
	Register(ctx context.Context, caller *auth.Identity, input auth.RegisterInput) (auth.User, error)
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	Profile(ctx context.Context, userID string) (auth.Profile, error)
}

type Handler struct {
	Service      Service
	SecureCookie bool
}

func NewHandler(service Service, secureCookie bool) *Handler {
	return &Handler{Service: service, SecureCookie: secureCookie}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
	})
	r.With(middleware.RequireAuth).Get("/me", h.HandleMe)
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin employee"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload registerRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
		return
	}
	if shared.Reject(w, payload, requestID) {
		return
	}

	var caller *auth.Identity
	if user, ok := middleware.GetUser(r.Context()); ok {
		caller = &user
	}
	user, err := h.Service.Register(r.Context(), caller, auth.RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, user, requestID)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
		return
	}
	if shared.Reject(w, payload, requestID) {
		return
	}

	result, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		MaxAge:   int(time.Until(result.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	api.Success(w, map[string]any{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      result.User,
	}, requestID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	profile, err := h.Service.Profile(r.Context(), user.UserID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, profile, requestID)
}
