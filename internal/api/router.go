package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"go.uber.org/zap"

	"nifty-bank-live/internal/refresh"
	"nifty-bank-live/internal/snapshot"
	"nifty-bank-live/internal/store"
)

//go:generate mockgen -package=api -destination=mock_store_test.go nifty-bank-live/internal/store Store

const banner = "Nifty & Bank Nifty Live Stock Price API is Running!"

// updateTimeout bounds an on-demand refresh, including the wait for a
// scheduled cycle that is already running.
const updateTimeout = 30 * time.Second

// Cycler runs an on-demand refresh and reports on the last one.
// *refresh.Refresher satisfies it.
type Cycler interface {
	RunCycle(ctx context.Context) (snapshot.Snapshot, error)
	Status() refresh.Status
}

// RegisterRoutes mounts the read path. cyc may be nil when the store is
// disabled; the update route then answers 500.
func RegisterRoutes(h *server.Hertz, st store.Store, cyc Cycler, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	h.Use(cors())
	h.OPTIONS("/*path", func(_ context.Context, c *app.RequestContext) {
		c.SetStatusCode(http.StatusNoContent)
	})

	h.GET("/", func(_ context.Context, c *app.RequestContext) {
		c.String(http.StatusOK, banner)
	})

	h.GET("/healthz", func(ctx context.Context, c *app.RequestContext) {
		resp := map[string]any{
			"ok":    true,
			"store": "down",
		}
		if st != nil {
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := st.Ping(pctx)
			cancel()
			if err == nil {
				resp["store"] = "up"
			}
			resp["driver"] = st.Driver()
		}
		if cyc != nil {
			resp["refresh"] = cyc.Status()
		}
		c.JSON(http.StatusOK, resp)
	})

	h.GET("/nifty-bank-live", func(ctx context.Context, c *app.RequestContext) {
		if st == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"error": store.ErrUnavailable.Error()})
			return
		}
		snap, err := st.ReadAll(ctx)
		if err != nil {
			logger.Error("read snapshot failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		if snap == nil {
			snap = snapshot.Snapshot{}
		}
		c.JSON(http.StatusOK, snap)
	})

	h.GET("/update-stock-prices", func(ctx context.Context, c *app.RequestContext) {
		if cyc == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"error": store.ErrUnavailable.Error()})
			return
		}
		rctx, cancel := context.WithTimeout(ctx, updateTimeout)
		defer cancel()
		snap, err := cyc.RunCycle(rctx)
		if err != nil {
			if errors.Is(err, refresh.ErrPersist) {
				logger.Error("on-demand refresh not persisted", zap.Error(err))
			} else {
				logger.Error("on-demand refresh failed", zap.Error(err))
			}
			c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"message": "Stock prices updated successfully",
			"data":    snap,
		})
	})
}

// cors allows any origin and short-circuits preflight requests.
func cors() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if string(c.Method()) == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}
