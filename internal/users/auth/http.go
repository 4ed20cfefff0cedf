// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tradegate/internal/platform/middleware"
	"github.com/taibuivan/tradegate/internal/platform/respond"
	"github.com/taibuivan/tradegate/internal/platform/sec"
	"github.com/taibuivan/tradegate/internal/platform/validate"

	requestutil "github.com/taibuivan/tradegate/internal/platform/request"
)

// # HTTP Handler

// Handler exposes the identity service over REST.
type Handler struct {
	service *Service
	log     *slog.Logger
}

// NewHandler builds the HTTP shell over the identity service.
func NewHandler(service *Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes returns the authentication route tree, mounted under /auth.
//
// Token extraction and principal injection happen in the authentication
// middleware installed at the server level; this tree only declares which
// routes demand a principal.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints.
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/validate", handler.validateSession)

	// Endpoints requiring a live session.
	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)
		protected.Post("/logout", handler.logout)
		protected.Get("/me", handler.me)
		protected.Patch("/profile", handler.updateProfile)
		protected.Post("/change-password", handler.changePassword)

		protected.With(middleware.RequireRole(sec.RoleAdmin)).
			Get("/stats", handler.stats)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type validateRequest struct {
	Token string `json:"token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// # Endpoints

func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var payload RegisterInput
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}
	user, err := handler.service.Register(request.Context(), payload)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, map[string]any{FieldUser: user})
}

func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var payload loginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := (&validate.Validator{}).
		Required(FieldUsername, payload.Username).
		Required(FieldPassword, payload.Password).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token, user, err := handler.service.Login(request.Context(), payload.Username, payload.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{
		FieldToken: token,
		FieldUser:  user,
	})
}

// validateSession checks a token without requiring an authenticated caller.
// The token comes from the request body, falling back to the bearer header.
func (handler *Handler) validateSession(writer http.ResponseWriter, request *http.Request) {
	var payload validateRequest
	// An empty or absent body is fine when the token rides in the header.
	_ = requestutil.DecodeJSON(request, &payload)
	token := payload.Token
	if token == "" {
		token = requestutil.BearerToken(request)
	}

	valid, username := handler.service.ValidateSession(request.Context(), token)
	response := map[string]any{FieldValid: valid}
	if valid {
		response[FieldUsername] = username
	} else {
		response[FieldUsername] = nil
	}
	respond.OK(writer, response)
}

func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.BearerToken(request)
	if err := handler.service.Logout(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{FieldMessage: "Logged out"})
}

func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	username, err := requestutil.RequiredUsername(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	user, err := handler.service.GetUser(request.Context(), username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{FieldUser: user})
}

func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	username, err := requestutil.RequiredUsername(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	var payload UpdateProfileInput
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}
	user, err := handler.service.UpdateProfile(request.Context(), username, payload)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{FieldUser: user})
}

func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	username, err := requestutil.RequiredUsername(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	var payload changePasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := (&validate.Validator{}).
		Required(FieldCurrentPassword, payload.CurrentPassword).
		Required(FieldNewPassword, payload.NewPassword).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.service.ChangePassword(request.Context(), username,
		payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{FieldMessage: "Password changed"})
}

func (handler *Handler) stats(writer http.ResponseWriter, request *http.Request) {
	stats, err := handler.service.Stats(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, stats)
}
