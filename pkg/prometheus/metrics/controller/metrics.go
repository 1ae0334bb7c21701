package controller

import (
	"github.com/VictoriaMetrics/metrics"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

const MetricsPath = "/metrics"

// PrometheusMetrics serves the process metric set in Prometheus exposition
// format.
type PrometheusMetrics struct{}

func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

func (c *PrometheusMetrics) Metrics(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain; version=0.0.4")
	metrics.WritePrometheus(ctx, true)
}

func (c *PrometheusMetrics) AddRoute(r *router.Router) {
	r.GET(MetricsPath, c.Metrics)
}
