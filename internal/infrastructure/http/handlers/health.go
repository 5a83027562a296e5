package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 3 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// MongoPinger pings the server and runs a command against db.
func MongoPinger(db *mongo.Database) Pinger {
	return PingFunc(func(ctx context.Context) error {
		if err := db.Client().Ping(ctx, nil); err != nil {
			return err
		}
		return db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
	})
}

// RedisPinger pings rdb.
func RedisPinger(rdb *redis.Client) Pinger {
	return PingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
}

// HealthHandler handles GET /health, the liveness check.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// HealthDependenciesHandler handles GET /health/ready. Every registered
// dependency is pinged concurrently; one failure makes the service degraded.
type HealthDependenciesHandler struct {
	deps map[string]Pinger
}

func NewHealthDependenciesHandler(deps map[string]Pinger) *HealthDependenciesHandler {
	return &HealthDependenciesHandler{deps: deps}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu      sync.Mutex
		deps    = make(map[string]dependencyStatus, len(names))
		healthy = true
	)
	var g errgroup.Group
	for _, name := range names {
		name := name
		pinger := h.deps[name]
		g.Go(func() error {
			st := dependencyStatus{Status: "ok"}
			if err := pinger.Ping(ctx); err != nil {
				st = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			}
			mu.Lock()
			deps[name] = st
			if st.Status != "ok" {
				healthy = false
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
