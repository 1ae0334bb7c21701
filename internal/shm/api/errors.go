package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Borislavv/purgeable-shm/pkg/page"
	"github.com/Borislavv/purgeable-shm/pkg/rangeset"
	"github.com/Borislavv/purgeable-shm/pkg/region"
	"github.com/Borislavv/purgeable-shm/pkg/store"
	"github.com/valyala/fasthttp"
)

type errorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// kindOf maps the domain sentinels to the wire-level error kinds.
func kindOf(err error) (status int, kind string) {
	switch {
	case errors.Is(err, page.ErrInvalidRange):
		return fasthttp.StatusBadRequest, "InvalidRange"
	case errors.Is(err, region.ErrSizeNotSet):
		return fasthttp.StatusConflict, "SizeNotSet"
	case errors.Is(err, region.ErrAlreadySized):
		return fasthttp.StatusConflict, "AlreadySized"
	case errors.Is(err, region.ErrPermissionDenied):
		return fasthttp.StatusForbidden, "PermissionDenied"
	case errors.Is(err, region.ErrNameFixed):
		return fasthttp.StatusConflict, "NameFixed"
	case errors.Is(err, region.ErrNameTooLong):
		return fasthttp.StatusBadRequest, "InvalidArgument"
	case errors.Is(err, region.ErrNotFound):
		return fasthttp.StatusNotFound, "NotFound"
	case errors.Is(err, region.ErrClosed):
		return fasthttp.StatusGone, "Closed"
	case errors.Is(err, rangeset.ErrOutOfMemory):
		return fasthttp.StatusInsufficientStorage, "OutOfMemory"
	case errors.Is(err, store.ErrUnavailable):
		return fasthttp.StatusServiceUnavailable, "BackingStoreUnavailable"
	default:
		return fasthttp.StatusInternalServerError, "Internal"
	}
}

func errInvalidQuery(key string) error {
	return fmt.Errorf("query parameter %q: %w", key, page.ErrInvalidRange)
}

func writeError(ctx *fasthttp.RequestCtx, err error) {
	status, kind := kindOf(err)
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	_ = json.NewEncoder(ctx).Encode(errorResponse{Kind: kind, Error: err.Error()})
}
