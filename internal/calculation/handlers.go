package calculation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-chi-calculations/internal/auth"
	"go-chi-calculations/internal/handlers"
	"go-chi-calculations/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("calculation")

// Handler serves the /calculations endpoints for the authenticated user.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// statusFor maps service errors onto HTTP statuses. Anything that is not a
// caller error is hidden behind a generic 500 message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMalformedInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrInsufficientOperands),
		errors.Is(err, ErrUnknownOperation),
		errors.Is(err, ErrDivisionByZero):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, ErrNotFound.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// request is the per-call state shared by every handler: the span, a
// trace-correlated logger and the caller's identity.
type request struct {
	w         http.ResponseWriter
	r         *http.Request
	span      trace.Span
	logger    *zap.Logger
	action    string
	ownerID   uuid.UUID
	requestID string
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request, action string) (*request, bool) {
	ctx := r.Context()
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculation.%s", action),
		trace.WithAttributes(
			attribute.String("calculation.action", action),
			attribute.String("request.id", requestID),
		),
	)
	req := &request{
		w:         w,
		r:         r.WithContext(ctx),
		span:      span,
		logger:    observability.LoggerWithTrace(ctx),
		action:    action,
		requestID: requestID,
	}

	ownerID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		req.fail("not authenticated", auth.ErrMissingToken, http.StatusUnauthorized)
		return req, false
	}
	req.ownerID = ownerID
	span.SetAttributes(attribute.String("user.id", ownerID.String()))
	return req, true
}

func (req *request) fail(msg string, err error, status int) {
	observability.RecordError(req.r.Context(), req.span, req.logger, errorCounter, req.action, msg, err, status, req.w)
}

func (req *request) failWith(err error) {
	req.span.SetAttributes(attribute.String("error.kind", errorKind(err)))
	status, msg := statusFor(err)
	req.fail(msg, err, status)
}

func errorKind(err error) string {
	switch {
	case IsValidationError(err):
		return "validation"
	case IsCallerError(err):
		return "not_found"
	default:
		return "internal"
	}
}

func (req *request) recordID() (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(req.r, "id"))
	if err != nil {
		req.fail(ErrNotFound.Error(), fmt.Errorf("%w: bad id: %v", ErrNotFound, err), http.StatusNotFound)
		return uuid.Nil, false
	}
	req.span.SetAttributes(attribute.String("calculation.id", id.String()))
	return id, true
}

// succeed records metrics and the span result for a written record, logs,
// and writes the JSON response.
func (req *request) succeed(status int, rec *Record, elapsedMS float64) {
	ctx := req.r.Context()
	attrs := metric.WithAttributes(
		attribute.String("action", req.action),
		attribute.String("type", rec.Operation.String()),
	)
	opsCounter.Add(ctx, 1, attrs)
	opsHistogram.Record(ctx, elapsedMS, attrs)

	req.span.AddEvent("calculation.complete", trace.WithAttributes(
		attribute.String("calculation.id", rec.ID.String()),
		attribute.Float64("result", rec.Result),
		attribute.Float64("duration_ms", elapsedMS),
	))
	req.span.SetAttributes(
		attribute.String("calculation.type", rec.Operation.String()),
		attribute.Int("calculation.operands", len(rec.Operands)),
		attribute.Float64("calculation.result", rec.Result),
	)
	req.span.SetStatus(codes.Ok, "")

	req.logger.Info("calculation "+req.action+" completed",
		zap.String("calculation_id", rec.ID.String()),
		zap.String("type", rec.Operation.String()),
		zap.Float64s("inputs", rec.Operands),
		zap.Float64("result", rec.Result),
		zap.String("request_id", req.requestID),
		zap.Float64("duration_ms", elapsedMS),
	)

	handlers.WriteJSON(req.w, status, newResponse(rec))
}

func sinceMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Create handles POST /calculations
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.begin(w, r, "create")
	defer req.span.End()
	if !ok {
		return
	}
	ctx := req.r.Context()

	// --- 1. Decode request body ---
	var body CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		req.fail("invalid request body", fmt.Errorf("%w: %v", ErrMalformedInput, err), http.StatusBadRequest)
		return
	}
	req.span.SetAttributes(attribute.String("calculation.requested_type", body.Type))

	// --- 2. Validate, evaluate and persist ---
	start := time.Now()
	rec, err := h.svc.Create(ctx, req.ownerID, body.Type, rawOperands(body.Inputs))
	elapsed := sinceMS(start)
	if err != nil {
		req.failWith(err)
		return
	}

	// --- 3. Metrics, span and response ---
	resultGauge.Record(ctx, rec.Result, metric.WithAttributes(attribute.String("type", rec.Operation.String())))
	req.succeed(http.StatusCreated, rec, elapsed)
}

// Read handles GET /calculations/{id}
func (h *Handler) Read(w http.ResponseWriter, r *http.Request) {
	req, ok := h.begin(w, r, "read")
	defer req.span.End()
	if !ok {
		return
	}

	id, ok := req.recordID()
	if !ok {
		return
	}

	start := time.Now()
	rec, err := h.svc.Read(req.r.Context(), req.ownerID, id)
	if err != nil {
		req.failWith(err)
		return
	}
	req.succeed(http.StatusOK, rec, sinceMS(start))
}

// Update handles PUT and PATCH /calculations/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.begin(w, r, "update")
	defer req.span.End()
	if !ok {
		return
	}
	ctx := req.r.Context()

	id, ok := req.recordID()
	if !ok {
		return
	}

	// --- 1. Decode request body; an empty body means no change ---
	var body UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		req.fail("invalid request body", fmt.Errorf("%w: %v", ErrMalformedInput, err), http.StatusBadRequest)
		return
	}

	// --- 2. Re-validate and recompute under the record lock ---
	start := time.Now()
	rec, err := h.svc.Update(ctx, req.ownerID, id, rawOperands(body.Inputs))
	elapsed := sinceMS(start)
	if err != nil {
		req.failWith(err)
		return
	}

	// --- 3. Metrics, span and response ---
	resultGauge.Record(ctx, rec.Result, metric.WithAttributes(attribute.String("type", rec.Operation.String())))
	req.succeed(http.StatusOK, rec, elapsed)
}

// Delete handles DELETE /calculations/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.begin(w, r, "delete")
	defer req.span.End()
	if !ok {
		return
	}

	id, ok := req.recordID()
	if !ok {
		return
	}

	if err := h.svc.Delete(req.r.Context(), req.ownerID, id); err != nil {
		req.failWith(err)
		return
	}

	opsCounter.Add(req.r.Context(), 1, metric.WithAttributes(attribute.String("action", req.action)))
	req.span.SetStatus(codes.Ok, "")
	req.logger.Info("calculation deleted",
		zap.String("calculation_id", id.String()),
		zap.String("request_id", req.requestID),
	)
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /calculations
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req, ok := h.begin(w, r, "list")
	defer req.span.End()
	if !ok {
		return
	}

	records, err := h.svc.List(req.r.Context(), req.ownerID)
	if err != nil {
		req.failWith(err)
		return
	}

	out := make([]Response, 0, len(records))
	for _, rec := range records {
		out = append(out, newResponse(rec))
	}

	opsCounter.Add(req.r.Context(), 1, metric.WithAttributes(attribute.String("action", req.action)))
	req.span.SetAttributes(attribute.Int("calculation.count", len(out)))
	req.span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, out)
}
