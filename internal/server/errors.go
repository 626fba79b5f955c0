package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/13maks37/sanctions-checker/internal/db"
	"github.com/13maks37/sanctions-checker/internal/sources"
	"github.com/13maks37/sanctions-checker/internal/spreadsheet"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNoStore is returned by the run endpoints when no store is configured.
var ErrNoStore = errors.New("run store is not configured")

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		column     *spreadsheet.ColumnNotFoundError
		cfg        *sources.ConfigError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &column),
		errors.Is(err, spreadsheet.ErrNoSheets):
		return http.StatusBadRequest
	case errors.As(err, &cfg):
		return http.StatusUnprocessableEntity
	case errors.Is(err, db.ErrNotFound), errors.Is(err, ErrNoStore):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
