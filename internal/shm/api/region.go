package api

import (
	"encoding/json"
	"strconv"

	"github.com/Borislavv/purgeable-shm/pkg/region"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	gotils "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
)

// RegionController is the region lifecycle surface: open/close, size, name
// and protection mask, plus the first-mapping trigger that materializes the
// backing store.
type RegionController struct {
	registry *region.Registry
}

func NewRegionController(registry *region.Registry) *RegionController {
	return &RegionController{registry: registry}
}

type openResponse struct {
	ID uint64 `json:"id"`
}

type regionInfoResponse struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Size     uint64 `json:"size"`
	ProtMask uint32 `json:"protMask"`
	Mapped   bool   `json:"mapped"`
	Ranges   int    `json:"unpinnedRanges"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (c *RegionController) Open(ctx *fasthttp.RequestCtx) {
	r := c.registry.Open()

	if name := gotils.B2S(ctx.QueryArgs().Peek("name")); name != "" {
		if err := c.registry.SetName(r.ID(), name); err != nil {
			_ = c.registry.Close(r.ID())
			writeError(ctx, err)
			return
		}
	}

	log.Info().Msgf("[region] opened region id=%d", r.ID())
	ctx.SetStatusCode(fasthttp.StatusCreated)
	_ = json.NewEncoder(ctx).Encode(openResponse{ID: r.ID()})
}

func (c *RegionController) CloseRegion(ctx *fasthttp.RequestCtx) {
	id, err := regionID(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if err = c.registry.Close(id); err != nil {
		writeError(ctx, err)
		return
	}
	log.Info().Msgf("[region] closed region id=%d", id)
	_ = json.NewEncoder(ctx).Encode(okResponse{OK: true})
}

func (c *RegionController) Info(ctx *fasthttp.RequestCtx) {
	r, err := c.region(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	_, mapped := r.Store()
	_ = json.NewEncoder(ctx).Encode(regionInfoResponse{
		ID:       r.ID(),
		Name:     r.Name(),
		Size:     r.Size(),
		ProtMask: r.ProtMask(),
		Mapped:   mapped,
		Ranges:   r.RangeLen(),
	})
}

func (c *RegionController) SetSize(ctx *fasthttp.RequestCtx) {
	r, err := c.region(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	bytes, err := queryUint(ctx, "bytes")
	if err != nil {
		writeError(ctx, err)
		return
	}
	if err = r.SetSize(bytes); err != nil {
		writeError(ctx, err)
		return
	}
	_ = json.NewEncoder(ctx).Encode(okResponse{OK: true})
}

func (c *RegionController) GetSize(ctx *fasthttp.RequestCtx) {
	r, err := c.region(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	_ = json.NewEncoder(ctx).Encode(struct {
		Size uint64 `json:"size"`
	}{Size: r.Size()})
}

func (c *RegionController) SetProtMask(ctx *fasthttp.RequestCtx) {
	r, err := c.region(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	mask, err := queryUint(ctx, "mask")
	if err != nil {
		writeError(ctx, err)
		return
	}
	if err = r.SetProtMask(uint32(mask)); err != nil {
		writeError(ctx, err)
		return
	}
	_ = json.NewEncoder(ctx).Encode(okResponse{OK: true})
}

func (c *RegionController) GetProtMask(ctx *fasthttp.RequestCtx) {
	r, err := c.region(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	_ = json.NewEncoder(ctx).Encode(struct {
		ProtMask uint32 `json:"protMask"`
	}{ProtMask: r.ProtMask()})
}

func (c *RegionController) SetName(ctx *fasthttp.RequestCtx) {
	id, err := regionID(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	name := gotils.B2S(ctx.QueryArgs().Peek("name"))
	if err = c.registry.SetName(id, name); err != nil {
		writeError(ctx, err)
		return
	}
	_ = json.NewEncoder(ctx).Encode(okResponse{OK: true})
}

func (c *RegionController) GetName(ctx *fasthttp.RequestCtx) {
	r, err := c.region(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	_ = json.NewEncoder(ctx).Encode(struct {
		Name string `json:"name"`
	}{Name: r.Name()})
}

// Map materializes the backing store. The virtual-memory mapping itself is
// the collaborator's business; this is the create-once trigger.
func (c *RegionController) Map(ctx *fasthttp.RequestCtx) {
	r, err := c.region(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	s, err := r.Map()
	if err != nil {
		writeError(ctx, err)
		return
	}
	_ = json.NewEncoder(ctx).Encode(struct {
		OK    bool  `json:"ok"`
		Bytes int64 `json:"bytes"`
	}{OK: true, Bytes: s.Len()})
}

func (c *RegionController) Lookup(ctx *fasthttp.RequestCtx) {
	name := gotils.B2S(ctx.QueryArgs().Peek("name"))
	r, ok := c.registry.Lookup(name)
	if !ok {
		writeError(ctx, region.ErrNotFound)
		return
	}
	_ = json.NewEncoder(ctx).Encode(openResponse{ID: r.ID()})
}

func (c *RegionController) AddRoute(r *router.Router) {
	r.POST("/shm/region", c.Open)
	r.GET("/shm/region/by-name", c.Lookup)
	r.DELETE("/shm/region/{id}", c.CloseRegion)
	r.GET("/shm/region/{id}", c.Info)
	r.POST("/shm/region/{id}/size", c.SetSize)
	r.GET("/shm/region/{id}/size", c.GetSize)
	r.POST("/shm/region/{id}/prot", c.SetProtMask)
	r.GET("/shm/region/{id}/prot", c.GetProtMask)
	r.POST("/shm/region/{id}/name", c.SetName)
	r.GET("/shm/region/{id}/name", c.GetName)
	r.POST("/shm/region/{id}/map", c.Map)
}

func (c *RegionController) region(ctx *fasthttp.RequestCtx) (*region.Region, error) {
	id, err := regionID(ctx)
	if err != nil {
		return nil, err
	}
	r, ok := c.registry.Get(id)
	if !ok {
		return nil, region.ErrNotFound
	}
	return r, nil
}

func regionID(ctx *fasthttp.RequestCtx) (uint64, error) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, region.ErrNotFound
	}
	return id, nil
}

func queryUint(ctx *fasthttp.RequestCtx, key string) (uint64, error) {
	raw := gotils.B2S(ctx.QueryArgs().Peek(key))
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errInvalidQuery(key)
	}
	return v, nil
}
