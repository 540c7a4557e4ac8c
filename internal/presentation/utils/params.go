package utils

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/encore/internal/infrastructure/validate"
)

// PathID reads a positive integer URL parameter. Failures are *validate.FieldError.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	if err := validate.Field(name, validate.Required(), validate.PositiveID())(raw); err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
