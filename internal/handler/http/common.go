package http

import (
	apperrors "github.com/oakmart/storefront/pkg/errors"
)

// newBadBody wraps a JSON decode failure as an invalid-input error.
func newBadBody(err error) error {
	return apperrors.InvalidInput("invalid request body: " + err.Error())
}
