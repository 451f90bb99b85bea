package calculation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CreateRequest is the JSON body for POST /calculations. Inputs stays raw so
// the Validator sees exactly what the client sent.
type CreateRequest struct {
	Type   string          `json:"type"`
	Inputs json.RawMessage `json:"inputs"`
}

// UpdateRequest is the JSON body for PUT/PATCH /calculations/{id}. A missing
// or null inputs field leaves the record unchanged.
type UpdateRequest struct {
	Inputs json.RawMessage `json:"inputs"`
}

// Response is the JSON representation of a Record.
type Response struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	Type      OperationType `json:"type"`
	Inputs    []float64     `json:"inputs"`
	Result    float64       `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func newResponse(rec *Record) Response {
	return Response{
		ID:        rec.ID,
		UserID:    rec.OwnerID,
		Type:      rec.Operation,
		Inputs:    rec.Operands,
		Result:    rec.Result,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// rawOperands converts a possibly absent JSON value into Validator input;
// absent and null both become nil.
func rawOperands(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
