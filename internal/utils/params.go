package utils

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ParseID validates a positive integer id
func ParseID(name, raw string) (int64, error) {
	if err := validate.Var(raw, "required,number,max=19"); err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// URLParamID reads and validates a chi path parameter as an id
func URLParamID(r *http.Request, name string) (int64, error) {
	return ParseID(name, chi.URLParam(r, name))
}
