package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/iliyamo/food-pantry/internal/inventory"
)

// StatusFor maps an error class to its HTTP status.
func StatusFor(k inventory.Kind) int {
	switch k {
	case inventory.KindNotFound:
		return http.StatusNotFound
	case inventory.KindBadRequest:
		return http.StatusBadRequest
	case inventory.KindConflict:
		return http.StatusConflict
	case inventory.KindInvalid:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func asValidation(err error) (*inventory.ValidationError, bool) {
	var verr *inventory.ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}

func itoa(n int) string { return strconv.Itoa(n) }
