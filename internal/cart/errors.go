package cart

import (
	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
)

// Messages are part of the public API contract and must not be reworded.
var (
	ErrItemNotInCart = pkgerrors.New(pkgerrors.CodeNotFound, "Item not in cart")
	ErrCartEmpty     = pkgerrors.New(pkgerrors.CodeValidation, "Your cart is empty.")
)
