package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go-chi-calculations/internal/handlers"
	"go-chi-calculations/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("auth")

// Handler serves the /auth endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// statusFor maps service errors onto HTTP statuses and client messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrWeakPassword):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrUserExists):
		return http.StatusConflict, ErrUserExists.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, ErrInactiveUser):
		return http.StatusForbidden, ErrInactiveUser.Error()
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound, ErrUserNotFound.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "auth.register")
	defer span.End()
	logger := observability.LoggerWithTrace(ctx)

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "register", "invalid request body", err, http.StatusBadRequest, w)
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		observability.RecordError(ctx, span, logger, errorCounter, "register", "passwords do not match", ErrInvalidInput, http.StatusBadRequest, w)
		return
	}

	u, err := h.svc.Register(ctx, RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		status, msg := statusFor(err)
		observability.RecordError(ctx, span, logger, errorCounter, "register", msg, err, status, w)
		return
	}

	authCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event", "register")))
	span.SetAttributes(attribute.String("user.id", u.ID.String()))
	span.SetStatus(codes.Ok, "")

	handlers.WriteJSON(w, http.StatusCreated, u)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "auth.login")
	defer span.End()
	logger := observability.LoggerWithTrace(ctx)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "login", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	session, err := h.svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		status, msg := statusFor(err)
		observability.RecordError(ctx, span, logger, errorCounter, "login", msg, err, status, w)
		return
	}

	authCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event", "login")))
	span.AddEvent("login.success", trace.WithAttributes(attribute.String("user.id", session.User.ID.String())))
	span.SetStatus(codes.Ok, "")

	logger.Info("user logged in",
		zap.String("user_id", session.User.ID.String()),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: session.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   session.ExpiresAt,
		User:        session.User,
	})
}

// Logout handles POST /auth/logout. Requires RequireAuth.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "auth.logout")
	defer span.End()
	logger := observability.LoggerWithTrace(ctx)

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		observability.RecordError(ctx, span, logger, errorCounter, "logout", "not authenticated", ErrMissingToken, http.StatusUnauthorized, w)
		return
	}

	if err := h.svc.Logout(ctx, claims); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "logout", "internal server error", fmt.Errorf("revoke token: %w", err), http.StatusInternalServerError, w)
		return
	}

	authCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event", "logout")))
	span.SetStatus(codes.Ok, "")
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me. Requires RequireAuth.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "auth.me")
	defer span.End()
	logger := observability.LoggerWithTrace(ctx)

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		observability.RecordError(ctx, span, logger, errorCounter, "me", "not authenticated", ErrMissingToken, http.StatusUnauthorized, w)
		return
	}

	u, err := h.svc.Me(ctx, userID)
	if err != nil {
		status, msg := statusFor(err)
		observability.RecordError(ctx, span, logger, errorCounter, "me", msg, err, status, w)
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, u)
}
