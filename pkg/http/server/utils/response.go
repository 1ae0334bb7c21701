package serverutils

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

var ErrWriteResponse = errors.New("write response into *fasthttp.RequestCtx")

// Write and WriteString push raw (pre-encoded) payloads to the client and
// fold the transport error into a logged sentinel; command handlers have
// nothing useful to do with a half-written response.
func Write(b []byte, ctx *fasthttp.RequestCtx) (int, error) {
	n, err := ctx.Write(b)
	if err != nil {
		log.Error().Err(err).Msg("[server] response write failed")
		return 0, ErrWriteResponse
	}
	return n, nil
}

func WriteString(s string, ctx *fasthttp.RequestCtx) (int, error) {
	n, err := ctx.WriteString(s)
	if err != nil {
		log.Error().Err(err).Msg("[server] response write failed")
		return 0, ErrWriteResponse
	}
	return n, nil
}
