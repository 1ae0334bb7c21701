package middleware

import (
	serverconfig "github.com/Borislavv/purgeable-shm/pkg/http/server/config"
	"github.com/valyala/fasthttp"
)

var originServerBytes = []byte("X-Origin-Server")

type ServerNameMiddleware struct {
	serverName []byte
}

func NewServerNameMiddleware(cfg serverconfig.Server) ServerNameMiddleware {
	return ServerNameMiddleware{serverName: []byte(cfg.Name)}
}

func (f ServerNameMiddleware) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		next(ctx)
		if len(ctx.Response.Header.Server()) > 0 {
			ctx.Response.Header.SetBytesKV(originServerBytes, ctx.Response.Header.Server())
		}
		ctx.Response.Header.SetServerBytes(f.serverName)
	}
}
