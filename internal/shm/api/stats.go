package api

import (
	"encoding/json"

	"github.com/Borislavv/purgeable-shm/pkg/reclaim"
	"github.com/Borislavv/purgeable-shm/pkg/region"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// StatsController reports the live reclaim picture: open regions, queued
// intervals and the aggregate reclaimable byte count.
type StatsController struct {
	registry *region.Registry
	queue    *reclaim.Queue
	purger   *reclaim.Purger
}

func NewStatsController(registry *region.Registry, queue *reclaim.Queue, purger *reclaim.Purger) *StatsController {
	return &StatsController{registry: registry, queue: queue, purger: purger}
}

type statsResponse struct {
	Regions          int            `json:"regions"`
	QueueLength      int            `json:"queueLength"`
	ReclaimableBytes int64          `json:"reclaimableBytes"`
	PurgePasses      int64          `json:"purgePasses"`
	PurgedIntervals  int64          `json:"purgedIntervals"`
	RecentPasses     []passResponse `json:"recentPasses"`
}

type passResponse struct {
	UnixNano  int64 `json:"unixNano"`
	Reclaimed int64 `json:"reclaimedBytes"`
}

func (c *StatsController) Stats(ctx *fasthttp.RequestCtx) {
	history := c.purger.History()
	recent := make([]passResponse, 0, len(history))
	for _, rec := range history {
		recent = append(recent, passResponse{UnixNano: rec.UnixNano, Reclaimed: rec.Reclaimed})
	}

	_ = json.NewEncoder(ctx).Encode(statsResponse{
		Regions:          c.registry.Len(),
		QueueLength:      c.queue.Len(),
		ReclaimableBytes: c.queue.Bytes(),
		PurgePasses:      reclaim.PurgePasses.Load(),
		PurgedIntervals:  reclaim.PurgeEvicted.Load(),
		RecentPasses:     recent,
	})
}

func (c *StatsController) AddRoute(r *router.Router) {
	r.GET("/shm/stats", c.Stats)
}
