package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"devrank/application/ports"
	"devrank/pkg/common"
	apperrors "devrank/pkg/errors"
)

// toAppError maps infrastructure failures that reach the edge untyped.
func toAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ports.ErrGraphUnavailable) && !apperrors.IsUnavailable(err):
		return apperrors.NewUnavailableError("graph database").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded) && apperrors.GetAppError(err) == nil:
		return apperrors.NewTimeoutError("request").WithCause(err)
	}
	return err
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) error {
	err := common.DecodeJSON(w, r, v, common.MaxBodyBytes)
	if err == nil || (optional && errors.Is(err, common.ErrEmptyBody)) {
		return nil
	}
	return apperrors.NewValidationError("invalid request body").WithCause(err)
}

// pathParam returns an unescaped URL parameter. Shortcut names contain
// spaces, which arrive percent-encoded when the router matches on RawPath.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
