package responses

import (
	"context"
	"net/http"

	pkgerrors "github.com/uncannyvalley/comicshop-backend/pkg/errors"
	"github.com/uncannyvalley/comicshop-backend/pkg/logger"
)

// The storefront client predates the enveloped error format and still expects
// flat {"detail": ...} and {"error": ...} bodies on the cart and order action
// endpoints. These helpers keep that wire contract intact.

func WriteDetail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

// WriteDetailError renders err as a {"detail": ...} payload using the coded
// error's HTTP status mapping.
func WriteDetailError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if m := typed.Message(); m != "" && typed.Code() != pkgerrors.CodeInternal && typed.Code() != pkgerrors.CodeDependency {
		msg = m
	}

	status := meta.HTTPStatus
	// The legacy surface predates the 422 mapping; bad transitions were plain
	// 400s there and clients still branch on that.
	if typed.Code() == pkgerrors.CodeStateConflict {
		status = http.StatusBadRequest
	}

	logError(ctx, logg, err)
	writeJSON(w, status, map[string]string{"detail": msg})
}

// WriteFlatError renders err as a {"error": ...} payload using the coded
// error's HTTP status mapping.
func WriteFlatError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if m := typed.Message(); m != "" && typed.Code() != pkgerrors.CodeInternal && typed.Code() != pkgerrors.CodeDependency {
		msg = m
	}

	logError(ctx, logg, err)
	writeJSON(w, meta.HTTPStatus, map[string]string{"error": msg})
}

func logError(ctx context.Context, logg *logger.Logger, err error) {
	if logg == nil || err == nil {
		return
	}
	dump := pkgerrors.Dump(err)
	ctx = logg.WithFields(ctx, map[string]any{
		"error":       dump.TopMessage,
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
	})
	logg.Error(ctx, "request.error", err)
}
