package api

import (
	"encoding/json"
	"strconv"

	"github.com/Borislavv/purgeable-shm/pkg/prometheus/metrics"
	"github.com/Borislavv/purgeable-shm/pkg/region"
	"github.com/fasthttp/router"
	gotils "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
)

// Pin command results on the wire.
const (
	WasPurged  = "WAS_PURGED"
	NotPurged  = "NOT_PURGED"
	IsPinned   = "IS_PINNED"
	IsUnpinned = "IS_UNPINNED"
)

// PinController is the pin/unpin/pin-status command surface. A zero or
// omitted length means "to the end of the region".
type PinController struct {
	registry *region.Registry
	meter    metrics.Meter
}

func NewPinController(registry *region.Registry, meter metrics.Meter) *PinController {
	return &PinController{registry: registry, meter: meter}
}

type pinResponse struct {
	Result string `json:"result"`
}

func (c *PinController) Pin(ctx *fasthttp.RequestCtx) {
	r, offset, length, err := c.target(ctx)
	if err != nil {
		c.meter.IncErrored()
		writeError(ctx, err)
		return
	}

	wasPurged, err := r.Pin(offset, length)
	if err != nil {
		c.meter.IncErrored()
		writeError(ctx, err)
		return
	}

	c.meter.IncPins()
	result := NotPurged
	if wasPurged {
		result = WasPurged
	}
	_ = json.NewEncoder(ctx).Encode(pinResponse{Result: result})
}

func (c *PinController) Unpin(ctx *fasthttp.RequestCtx) {
	r, offset, length, err := c.target(ctx)
	if err != nil {
		c.meter.IncErrored()
		writeError(ctx, err)
		return
	}

	if err = r.Unpin(offset, length); err != nil {
		c.meter.IncErrored()
		writeError(ctx, err)
		return
	}

	c.meter.IncUnpins()
	_ = json.NewEncoder(ctx).Encode(okResponse{OK: true})
}

func (c *PinController) PinStatus(ctx *fasthttp.RequestCtx) {
	r, offset, length, err := c.target(ctx)
	if err != nil {
		c.meter.IncErrored()
		writeError(ctx, err)
		return
	}

	unpinned, err := r.PinStatus(offset, length)
	if err != nil {
		c.meter.IncErrored()
		writeError(ctx, err)
		return
	}

	c.meter.IncPinStatusChecks()
	result := IsPinned
	if unpinned {
		result = IsUnpinned
	}
	_ = json.NewEncoder(ctx).Encode(pinResponse{Result: result})
}

func (c *PinController) AddRoute(r *router.Router) {
	r.POST("/shm/region/{id}/pin", c.Pin)
	r.POST("/shm/region/{id}/unpin", c.Unpin)
	r.GET("/shm/region/{id}/pin-status", c.PinStatus)
}

func (c *PinController) target(ctx *fasthttp.RequestCtx) (r *region.Region, offset, length uint64, err error) {
	id, err := regionID(ctx)
	if err != nil {
		return nil, 0, 0, err
	}
	r, ok := c.registry.Get(id)
	if !ok {
		return nil, 0, 0, region.ErrNotFound
	}

	if offset, err = queryUintDefault(ctx, "offset", 0); err != nil {
		return nil, 0, 0, err
	}
	if length, err = queryUintDefault(ctx, "length", 0); err != nil {
		return nil, 0, 0, err
	}
	return r, offset, length, nil
}

func queryUintDefault(ctx *fasthttp.RequestCtx, key string, def uint64) (uint64, error) {
	raw := gotils.B2S(ctx.QueryArgs().Peek(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errInvalidQuery(key)
	}
	return v, nil
}
