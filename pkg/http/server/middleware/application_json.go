package middleware

import (
	"github.com/valyala/fasthttp"
)

var applicationJsonBytes = []byte("application/json")

// ApplicationJsonMiddleware defaults the response Content-Type: every command
// on this surface answers JSON, so handlers only set the header when they
// deviate (the Prometheus exposition endpoint).
type ApplicationJsonMiddleware struct{}

func NewApplicationJsonMiddleware() ApplicationJsonMiddleware {
	return ApplicationJsonMiddleware{}
}

func (ApplicationJsonMiddleware) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		next(ctx)
		if len(ctx.Response.Header.ContentType()) == 0 {
			ctx.Response.Header.SetContentTypeBytes(applicationJsonBytes)
		}
	}
}
