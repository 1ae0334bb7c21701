package httpserver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	serverconfig "github.com/Borislavv/purgeable-shm/pkg/http/server/config"
	"github.com/Borislavv/purgeable-shm/pkg/http/server/controller"
	"github.com/Borislavv/purgeable-shm/pkg/http/server/middleware"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type Server interface {
	ListenAndServe()
}

type HTTP struct {
	ctx    context.Context
	config serverconfig.Server
	server *fasthttp.Server
}

func New(
	ctx context.Context,
	config serverconfig.Server,
	controllers []controller.HttpController,
	middlewares []middleware.HttpMiddleware,
) (*HTTP, error) {
	s := &HTTP{ctx: ctx, config: config}
	s.initServer(s.buildRouter(controllers), middlewares)
	return s, nil
}

func (s *HTTP) ListenAndServe() {
	wg := &sync.WaitGroup{}
	defer wg.Wait()

	wg.Add(1)
	go s.serve(wg)

	wg.Add(1)
	go s.shutdown(wg)
}

func (s *HTTP) serve(wg *sync.WaitGroup) {
	defer wg.Done()

	name := s.config.Name
	port := s.config.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	log.Info().Msgf("[server] %v was started on %v", name, port)
	defer log.Info().Msgf("[server] %v was stopped on %v", name, port)

	if err := s.server.ListenAndServe(port); err != nil {
		log.Error().Err(err).Msgf("[server] %v failed to listen and serve port %v: %v", name, port, err.Error())
	}
}

func (s *HTTP) shutdown(wg *sync.WaitGroup) {
	defer wg.Done()

	<-s.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	if err := s.server.ShutdownWithContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn().Msgf("[server] %v shutdown failed: %v", s.config.Name, err.Error())
		}
		return
	}
}

func (s *HTTP) buildRouter(controllers []controller.HttpController) *router.Router {
	r := router.New()
	for _, contr := range controllers {
		contr.AddRoute(r)
	}
	return r
}

func (s *HTTP) wrapMiddlewaresOverRouterHandler(
	handler fasthttp.RequestHandler,
	middlewares []middleware.HttpMiddleware,
) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		s.mergeMiddlewares(handler, middlewares)(ctx)
	}
}

func (s *HTTP) mergeMiddlewares(
	handler fasthttp.RequestHandler,
	middlewares []middleware.HttpMiddleware,
) fasthttp.RequestHandler {
	// last middlewares must be applied at the end
	// in this case we must start the cycle from the end of slice
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i].Middleware(handler)
	}
	return handler
}

func (s *HTTP) initServer(r *router.Router, middlewares []middleware.HttpMiddleware) {
	s.server = &fasthttp.Server{
		Handler:                       s.wrapMiddlewaresOverRouterHandler(r.Handler, middlewares),
		ReduceMemoryUsage:             true,             // Reuse internal buffers aggressively to lower memory footprint and GC overhead.
		DisablePreParseMultipartForm:  true,             // Disable built-in multipart form parsing to avoid unnecessary allocations when not needed.
		DisableHeaderNamesNormalizing: true,             // Prevent normalization of header names to save CPU cycles when handling high request rates.
		CloseOnShutdown:               true,             // Ensure that all open connections are closed when the server shuts down gracefully.
		ReadBufferSize:                4 * 1024,         // Control-plane requests are tiny; a page-sized buffer is plenty.
		WriteBufferSize:               4 * 1024,         // Same for responses.
		ReadTimeout:                   time.Second,      // Maximum time allowed to read the full request to mitigate slowloris attacks.
		WriteTimeout:                  time.Second,      // Maximum time allowed to write the response to the client to prevent stalled connections.
		IdleTimeout:                   60 * time.Second, // Maximum idle time before a keep-alive connection is closed, balancing reuse and resource release.
		TCPKeepalive:                  true,             // Enable OS-level TCP keep-alive probes to detect and clean up dead peer connections.
		TCPKeepalivePeriod:            30 * time.Second, // Interval between TCP keep-alive probes, ensuring timely detection of dead peers.
		NoDefaultServerHeader:         true,             // Suppress the default "Server" response header to reduce server fingerprinting.
		MaxRequestBodySize:            1 << 20,          // Pin/unpin commands carry no payload to speak of; 1 MiB guards against abuse.
	}
}
