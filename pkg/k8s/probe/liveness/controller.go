package liveness

import (
	serverutils "github.com/Borislavv/purgeable-shm/pkg/http/server/utils"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

const ProbePath = "/k8s/probe"

// Controller exposes the liveness verdict over HTTP for the orchestrator.
type Controller struct {
	probe Prober
}

func NewController(probe Prober) *Controller {
	return &Controller{probe: probe}
}

func (c *Controller) Probe(ctx *fasthttp.RequestCtx) {
	if c.probe.IsAlive() {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = serverutils.WriteString(`{"alive": true}`, ctx)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	_, _ = serverutils.WriteString(`{"alive": false}`, ctx)
}

func (c *Controller) AddRoute(r *router.Router) {
	r.GET(ProbePath, c.Probe)
}
