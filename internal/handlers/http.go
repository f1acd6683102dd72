package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ymurata/seatboard/internal/errors"
	"github.com/ymurata/seatboard/pkg/redmine"
)

// TicketsResponse is the success envelope for the aggregate endpoint
type TicketsResponse struct {
	Issues []redmine.Issue `json:"issues"`
}

// SeatTicketsResponse is the success envelope for the seat-detail endpoint
type SeatTicketsResponse struct {
	Issues     []redmine.Issue `json:"issues"`
	TotalCount int             `json:"total_count"`
}

// TicketsErrorResponse is the failure envelope for the ticket listing
// endpoints. The issues list is always present and empty so clients can
// decode both shapes with one type.
type TicketsErrorResponse struct {
	Error  string          `json:"error"`
	Issues []redmine.Issue `json:"issues"`
}

// ApproveResponse is the envelope for the approval endpoint
type ApproveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondTicketsError writes the {error, issues: []} failure envelope with a
// status derived from the error kind: 400 for validation, 500 for upstream
// and everything else.
func respondTicketsError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), TicketsErrorResponse{
		Error:  err.Error(),
		Issues: []redmine.Issue{},
	})
}

// respondApproveError writes the {success: false, error} failure envelope.
func respondApproveError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), ApproveResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// statusFor maps an application error to its HTTP status. The proxy never
// lets an upstream failure escape as anything but a well-formed envelope.
func statusFor(err error) int {
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		switch appErr.Kind {
		case errors.ErrValidation:
			return http.StatusBadRequest
		case errors.ErrNotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}

// parseIntParam extracts and parses an integer URL parameter
func parseIntParam(r *http.Request, name string) (int, error) {
	param := chi.URLParam(r, name)
	if param == "" {
		return 0, errors.Validationf("missing %s parameter", name)
	}
	n, err := strconv.Atoi(param)
	if err != nil {
		return 0, errors.Validationf("invalid %s parameter: %q", name, param)
	}
	return n, nil
}
