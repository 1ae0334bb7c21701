package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/Borislavv/purgeable-shm/internal/shm/config"
	"github.com/Borislavv/purgeable-shm/pkg/prometheus/metrics"
	"github.com/Borislavv/purgeable-shm/pkg/rate"
	"github.com/Borislavv/purgeable-shm/pkg/reclaim"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	gotils "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
)

// PurgeController is the privileged purge-all surface. Dropping every
// unpinned region's content is a destructive, cluster-visible action, so it
// is gated: a short-lived one-shot token has to be fetched first and
// replayed, and passes are rate limited.
type PurgeController struct {
	cfg     *config.Config
	purger  *reclaim.Purger
	meter   metrics.Meter
	limiter *rate.Limiter

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewPurgeController(ctx context.Context, cfg *config.Config, purger *reclaim.Purger, meter metrics.Meter) *PurgeController {
	rps := cfg.Shm.Shm.Purge.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &PurgeController{
		cfg:     cfg,
		purger:  purger,
		meter:   meter,
		limiter: rate.NewLimiter(ctx, rps, 0),
	}
}

type purgeTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

type purgeStatusResponse struct {
	Purged    bool   `json:"purged,omitempty"`
	Reclaimed int64  `json:"reclaimedBytes"`
	Error     string `json:"error,omitempty"`
}

// HandlePurgeAll is mounted at GET /shm/purge-all.
// Without ?token, returns a valid token (5min TTL).
// With ?token, validates it, runs a purge pass and returns bytes reclaimed.
func (c *PurgeController) HandlePurgeAll(ctx *fasthttp.RequestCtx) {
	now := time.Now()
	raw := gotils.B2S(ctx.QueryArgs().Peek("token"))

	if raw == "" {
		// return or reuse token
		c.mu.Lock()
		if c.token != "" && now.Before(c.expires) {
			tok, exp := c.token, c.expires
			c.mu.Unlock()
			ctx.SetStatusCode(fasthttp.StatusOK)
			_ = json.NewEncoder(ctx).Encode(purgeTokenResponse{tok, exp.UnixMilli()})
			return
		}
		c.mu.Unlock()

		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			log.Error().Err(err).Msg("[purge] token generation failed")
			ctx.Error("internal error", fasthttp.StatusInternalServerError)
			return
		}
		tok := hex.EncodeToString(b)
		exp := now.Add(5 * time.Minute)

		c.mu.Lock()
		c.token = tok
		c.expires = exp
		c.mu.Unlock()

		ctx.SetStatusCode(fasthttp.StatusOK)
		_ = json.NewEncoder(ctx).Encode(purgeTokenResponse{tok, exp.UnixMilli()})
		return
	}

	// validate provided token; it is single-use
	c.mu.Lock()
	valid := raw == c.token && now.Before(c.expires)
	c.token = ""
	c.expires = time.Time{}
	c.mu.Unlock()

	if !valid {
		c.meter.IncErrored()
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		_ = json.NewEncoder(ctx).Encode(purgeStatusResponse{Error: "invalid or expired token"})
		return
	}

	c.limiter.Take()

	reclaimed := c.purger.PurgeAll()
	c.meter.IncPurgePasses()
	c.meter.AddPurgedBytes(reclaimed)

	logEvent := log.Info()
	if c.cfg.Shm.IsProd() {
		logEvent.
			Str("ip", ctx.RemoteAddr().String()).
			Int64("reclaimedBytes", reclaimed)
	}
	logEvent.Msgf("[purge] purge-all pass reclaimed %d bytes", reclaimed)

	ctx.SetStatusCode(fasthttp.StatusOK)
	_ = json.NewEncoder(ctx).Encode(purgeStatusResponse{Purged: true, Reclaimed: reclaimed})
}

func (c *PurgeController) AddRoute(r *router.Router) {
	r.GET("/shm/purge-all", c.HandlePurgeAll)
}
