// Package httputil renders JSON responses and domain errors.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "storefront/pkg/domain-errors"
)

// maxBodyBytes caps request bodies decoded by DecodeJSON.
const maxBodyBytes = 1 << 20

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeValidation:         http.StatusBadRequest,
	dErrors.CodeInvalidQuantity:    http.StatusBadRequest,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeCheckoutInProgress: http.StatusConflict,
	dErrors.CodeInvariantViolation: http.StatusUnprocessableEntity,
	dErrors.CodeCheckoutNotAllowed: http.StatusUnprocessableEntity,
	dErrors.CodeOrderPersistence:   http.StatusBadGateway,
	dErrors.CodeReceiptRender:      http.StatusBadGateway,
	dErrors.CodeUnavailable:        http.StatusServiceUnavailable,
	dErrors.CodeIdentityUnresolved: http.StatusServiceUnavailable,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// StatusFor maps a domain code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError writes err as {"error": code, "error_description": message}.
// Errors without a domain code are reported as internal_error, and internal
// errors never expose a description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		message = de.Message
	}

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal && message != "" {
		body["error_description"] = message
	}
	WriteJSON(w, StatusFor(code), body)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes a bounded request body into v. Unknown fields are
// rejected.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
