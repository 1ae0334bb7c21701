package api

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/fasthttp/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/Borislavv/purgeable-shm/internal/shm/config"
	shmconfig "github.com/Borislavv/purgeable-shm/pkg/config"
	"github.com/Borislavv/purgeable-shm/pkg/page"
	"github.com/Borislavv/purgeable-shm/pkg/prometheus/metrics"
	"github.com/Borislavv/purgeable-shm/pkg/rangeset"
	"github.com/Borislavv/purgeable-shm/pkg/reclaim"
	"github.com/Borislavv/purgeable-shm/pkg/region"
	"github.com/Borislavv/purgeable-shm/pkg/store"
)

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()

	q := reclaim.NewQueue(rangeset.NewArena(0))
	registry := region.NewRegistry(q, store.NewHeapProvider())
	purger := reclaim.NewPurger(q, registry)

	cfg := &config.Config{Shm: &shmconfig.Shm{
		Env: shmconfig.Test,
		Shm: shmconfig.ShmBox{Purge: shmconfig.Purge{RequestsPerSecond: 100}},
	}}

	meter := metrics.New()
	r := router.New()
	NewRegionController(registry).AddRoute(r)
	NewPinController(registry, meter).AddRoute(r)
	NewPurgeController(context.Background(), cfg, purger, meter).AddRoute(r)
	NewStatsController(registry, q, purger).AddRoute(r)
	return r
}

// do routes a synthetic request through the handler tree and returns the
// status code and a copy of the body.
func do(t *testing.T, h fasthttp.RequestHandler, method, uri string) (int, []byte) {
	t.Helper()

	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)

	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	h(&ctx)

	return ctx.Response.StatusCode(), append([]byte(nil), ctx.Response.Body()...)
}

func decode(t *testing.T, body []byte, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, out))
}

func TestCommandSurface_RegionLifecycleRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	h := r.Handler

	// open
	status, body := do(t, h, fasthttp.MethodPost, "/shm/region")
	require.Equal(t, fasthttp.StatusCreated, status)
	var opened struct {
		ID uint64 `json:"id"`
	}
	decode(t, body, &opened)

	base := fmt.Sprintf("/shm/region/%d", opened.ID)

	// pin before sizing must be rejected
	status, body = do(t, h, fasthttp.MethodPost, base+"/pin")
	assert.Equal(t, fasthttp.StatusConflict, status)
	var werr struct {
		Kind string `json:"kind"`
	}
	decode(t, body, &werr)
	assert.Equal(t, "SizeNotSet", werr.Kind)

	// size, then map
	status, _ = do(t, h, fasthttp.MethodPost, fmt.Sprintf("%s/size?bytes=%d", base, 4*page.Size))
	require.Equal(t, fasthttp.StatusOK, status)

	status, body = do(t, h, fasthttp.MethodPost, base+"/map")
	require.Equal(t, fasthttp.StatusOK, status)
	var mapped struct {
		OK    bool  `json:"ok"`
		Bytes int64 `json:"bytes"`
	}
	decode(t, body, &mapped)
	assert.True(t, mapped.OK)
	assert.Equal(t, int64(4*page.Size), mapped.Bytes)

	// everything starts pinned
	status, body = do(t, h, fasthttp.MethodGet, base+"/pin-status")
	require.Equal(t, fasthttp.StatusOK, status)
	var result struct {
		Result string `json:"result"`
	}
	decode(t, body, &result)
	assert.Equal(t, IsPinned, result.Result)

	// unpin the whole region (omitted length = to the end)
	status, _ = do(t, h, fasthttp.MethodPost, base+"/unpin")
	require.Equal(t, fasthttp.StatusOK, status)

	status, body = do(t, h, fasthttp.MethodGet, base+"/pin-status")
	require.Equal(t, fasthttp.StatusOK, status)
	decode(t, body, &result)
	assert.Equal(t, IsUnpinned, result.Result)

	// fetch the one-shot token, then spend it
	status, body = do(t, h, fasthttp.MethodGet, "/shm/purge-all")
	require.Equal(t, fasthttp.StatusOK, status)
	var token struct {
		Token string `json:"token"`
	}
	decode(t, body, &token)
	require.NotEmpty(t, token.Token)

	status, body = do(t, h, fasthttp.MethodGet, "/shm/purge-all?token="+token.Token)
	require.Equal(t, fasthttp.StatusOK, status)
	var purged struct {
		Purged    bool  `json:"purged"`
		Reclaimed int64 `json:"reclaimedBytes"`
	}
	decode(t, body, &purged)
	assert.True(t, purged.Purged)
	assert.Equal(t, int64(4*page.Size), purged.Reclaimed)

	// re-pinning the purged interval reports the loss exactly once
	status, body = do(t, h, fasthttp.MethodPost, base+"/pin")
	require.Equal(t, fasthttp.StatusOK, status)
	decode(t, body, &result)
	assert.Equal(t, WasPurged, result.Result)

	status, body = do(t, h, fasthttp.MethodPost, base+"/pin")
	require.Equal(t, fasthttp.StatusOK, status)
	decode(t, body, &result)
	assert.Equal(t, NotPurged, result.Result)

	// close, then the region is gone
	status, _ = do(t, h, fasthttp.MethodDelete, base)
	require.Equal(t, fasthttp.StatusOK, status)

	status, body = do(t, h, fasthttp.MethodGet, base)
	assert.Equal(t, fasthttp.StatusNotFound, status)
	decode(t, body, &werr)
	assert.Equal(t, "NotFound", werr.Kind)
}

func TestCommandSurface_PurgeAllRejectsBadToken(t *testing.T) {
	r := newTestRouter(t)
	h := r.Handler

	status, body := do(t, h, fasthttp.MethodGet, "/shm/purge-all?token=deadbeef")
	assert.Equal(t, fasthttp.StatusForbidden, status)

	var resp struct {
		Error string `json:"error"`
	}
	decode(t, body, &resp)
	assert.Equal(t, "invalid or expired token", resp.Error)

	// a spent token cannot be replayed
	status, body = do(t, h, fasthttp.MethodGet, "/shm/purge-all")
	require.Equal(t, fasthttp.StatusOK, status)
	var token struct {
		Token string `json:"token"`
	}
	decode(t, body, &token)

	status, _ = do(t, h, fasthttp.MethodGet, "/shm/purge-all?token="+token.Token)
	require.Equal(t, fasthttp.StatusOK, status)
	status, _ = do(t, h, fasthttp.MethodGet, "/shm/purge-all?token="+token.Token)
	assert.Equal(t, fasthttp.StatusForbidden, status)
}

func TestCommandSurface_StatsTracksQueue(t *testing.T) {
	r := newTestRouter(t)
	h := r.Handler

	status, body := do(t, h, fasthttp.MethodPost, "/shm/region?name=telemetry")
	require.Equal(t, fasthttp.StatusCreated, status)
	var opened struct {
		ID uint64 `json:"id"`
	}
	decode(t, body, &opened)

	base := fmt.Sprintf("/shm/region/%d", opened.ID)
	status, _ = do(t, h, fasthttp.MethodPost, fmt.Sprintf("%s/size?bytes=%d", base, 2*page.Size))
	require.Equal(t, fasthttp.StatusOK, status)
	status, _ = do(t, h, fasthttp.MethodPost, base+"/map")
	require.Equal(t, fasthttp.StatusOK, status)
	status, _ = do(t, h, fasthttp.MethodPost, base+"/unpin")
	require.Equal(t, fasthttp.StatusOK, status)

	status, body = do(t, h, fasthttp.MethodGet, "/shm/stats")
	require.Equal(t, fasthttp.StatusOK, status)
	var stats struct {
		Regions          int   `json:"regions"`
		QueueLength      int   `json:"queueLength"`
		ReclaimableBytes int64 `json:"reclaimableBytes"`
	}
	decode(t, body, &stats)
	assert.Equal(t, 1, stats.Regions)
	assert.Equal(t, 1, stats.QueueLength)
	assert.Equal(t, int64(2*page.Size), stats.ReclaimableBytes)

	// lookup by name resolves to the same region
	status, body = do(t, h, fasthttp.MethodGet, "/shm/region/by-name?name=telemetry")
	require.Equal(t, fasthttp.StatusOK, status)
	var looked struct {
		ID uint64 `json:"id"`
	}
	decode(t, body, &looked)
	assert.Equal(t, opened.ID, looked.ID)
}
