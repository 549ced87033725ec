package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/markdave123-py/Auditra/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error kind to its HTTP status. Unclassified errors are not echoed.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch {
	case models.IsKind(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case models.IsKind(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case models.IsKind(err, models.ErrNotFound):
		return http.StatusNotFound
	case models.IsKind(err, models.ErrConflict):
		return http.StatusConflict
	case models.IsKind(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON body into dst and runs its validate tags.
func decodeBody(r *http.Request, dst any) error {
	const op = "decode request"
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return models.WrapError(models.ErrInvalidInput, op, errors.New("invalid body"))
	}
	if err := validate.Struct(dst); err != nil {
		return models.WrapError(models.ErrInvalidInput, op, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.New(strings.Join(fields, "; "))
}
