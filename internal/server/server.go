// Package server exposes health, metrics and read-only state over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/registry"
	"telegram-medication-report/internal/report"
	"telegram-medication-report/internal/tracker"
)

const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// StateReader is the read side of the tracker.
type StateReader interface {
	Peek(ctx context.Context, key string) (models.InstanceState, bool)
	Now(tz string) time.Time
}

// Server wraps an *http.Server to provide start/shutdown lifecycle.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

func New(addr string, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
		log: log,
	}
}

// Run serves in the background until Shutdown.
func (s *Server) Run() {
	go func() {
		s.log.Infow("status server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorw("status server stopped", "err", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type handler struct {
	reg    *registry.Registry
	states StateReader
}

// Routes builds the gin router.
func Routes(reg *registry.Registry, states StateReader) *gin.Engine {
	h := &handler{reg: reg, states: states}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	instances := router.Group("/instances")
	{
		instances.GET("", h.listInstances)
		instances.GET("/:key", h.getInstance)
	}
	return router
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) listInstances(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"instances": h.reg.Keys()})
}

// getInstance reports progress only. Mood texts and check times stay private.
func (h *handler) getInstance(c *gin.Context) {
	inst, ok := h.reg.Get(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown instance"})
		return
	}
	now := h.states.Now(inst.Timezone)
	week := tracker.WeekStart(now, now.Location())

	st, stored := h.states.Peek(c.Request.Context(), inst.Key)
	stale := stored && st.CurrentWeekStart != week
	checked := 0
	if stored && !stale {
		checked = report.Checked(inst, st)
	}
	c.JSON(http.StatusOK, gin.H{
		"key":         inst.Key,
		"name":        inst.Name,
		"timezone":    inst.Timezone,
		"slots":       inst.Slots,
		"stored":      stored,
		"week":        week,
		"stored_week": st.CurrentWeekStart,
		"stale":       stale,
		"checked":     checked,
		"total":       7 * len(inst.Slots),
		"displays":    len(st.DisplayMessages),
	})
}
