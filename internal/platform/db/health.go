package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Check is one dependency pinged by the health endpoint.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
	// Stats, if set, is reported alongside the result.
	Stats func() interface{}
}

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// PoolCheck pings a postgres pool.
func PoolCheck(pool *pgxpool.Pool) Check {
	return Check{
		Name:  "postgres",
		Ping:  pool.Ping,
		Stats: func() interface{} { return GetPoolStats(pool) },
	}
}

type checkResult struct {
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
	Stats  interface{} `json:"stats,omitempty"`
}

// HealthHandler pings every check and answers 503 if any fails.
func HealthHandler(timeout time.Duration, checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]checkResult, len(checks))
		for _, chk := range checks {
			res := checkResult{Status: "healthy"}
			if err := chk.Ping(ctx); err != nil {
				res.Status = "unhealthy"
				res.Error = err.Error()
				status = http.StatusServiceUnavailable
			}
			if chk.Stats != nil {
				res.Stats = chk.Stats()
			}
			results[chk.Name] = res
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		return c.JSON(status, map[string]interface{}{
			"status": overall,
			"checks": results,
		})
	}
}
