package orders

import (
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
)

// The message is part of the public API contract and must not be reworded.
var ErrEmptyOrder = pkgerrors.New(pkgerrors.CodeValidation, "Your cart is empty.")
