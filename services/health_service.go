package services

import (
	"context"
	"errors"
	"runtime"
	"tableside_server/bus"
	"tableside_server/database"
	"time"

	"github.com/MonkyMars/gecho"
)

var uptimeStart = time.Now()

var errDependencyDown = errors.New("dependency unreachable")

type serverHealthStatus struct {
	Uptime       float64   `json:"uptime"`        // in seconds
	CurrentTime  time.Time `json:"current_time"`  // server current time
	ServiceAlive bool      `json:"service_alive"` // always true if service is running
	Goroutines   int       `json:"goroutines"`
	RamStats     *RamStats `json:"ram_stats"`
}

type RamStats struct {
	TotalMB     uint64 `json:"total_mb"`
	UsedMB      uint64 `json:"used_mb"`
	FreeMB      uint64 `json:"free_mb"`
	UsedPercent uint64 `json:"used_percent"`
}

type dependencyStatus struct {
	Connected      bool   `json:"connected"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

type databaseHealthStatus struct {
	dependencyStatus
	LastChecked time.Time `json:"last_checked"`
	OpenConns   int       `json:"open_conns"`
	InUse       int       `json:"in_use"`
}

type dependenciesHealthStatus struct {
	Database dependencyStatus `json:"database"`
	Redis    dependencyStatus `json:"redis"`
	Bus      dependencyStatus `json:"bus"`
	BusName  string           `json:"bus_driver"`
	Healthy  bool             `json:"healthy"`
}

type HealthService struct {
	logger *gecho.Logger
	db     *database.DB
	cache  *CacheService
	bus    bus.Bus
}

func NewHealthService(logger *gecho.Logger, db *database.DB, cache *CacheService, b bus.Bus) *HealthService {
	return &HealthService{
		logger: logger,
		db:     db,
		cache:  cache,
		bus:    b,
	}
}

func getRamStats() *RamStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	totalMB := m.Sys / 1024 / 1024
	usedMB := m.Alloc / 1024 / 1024
	freeMB := totalMB - usedMB
	usedPercent := uint64(0)
	if totalMB > 0 {
		usedPercent = (usedMB * 100) / totalMB
	}

	return &RamStats{
		TotalMB:     totalMB,
		UsedMB:      usedMB,
		FreeMB:      freeMB,
		UsedPercent: usedPercent,
	}
}

func (hs *HealthService) GetServerHealthStatus() serverHealthStatus {
	return serverHealthStatus{
		Uptime:       time.Since(uptimeStart).Seconds(),
		CurrentTime:  time.Now(),
		ServiceAlive: true,
		Goroutines:   runtime.NumGoroutine(),
		RamStats:     getRamStats(),
	}
}

func check(ctx context.Context, ping func(context.Context) error) dependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	status := dependencyStatus{
		Connected:      err == nil,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}

func (hs *HealthService) GetDatabaseHealthStatus(ctx context.Context) (databaseHealthStatus, error) {
	status := databaseHealthStatus{
		dependencyStatus: check(ctx, hs.db.PingContext),
		LastChecked:      time.Now(),
	}
	stats := hs.db.GetStats()
	status.OpenConns = stats.OpenConnections
	status.InUse = stats.InUse

	if !status.Connected {
		hs.logger.Error("Database health check failed", gecho.Field("error", status.Error))
		return status, errDependencyDown
	}
	return status, nil
}

func (hs *HealthService) GetDependenciesHealthStatus(ctx context.Context) dependenciesHealthStatus {
	status := dependenciesHealthStatus{
		Database: check(ctx, hs.db.PingContext),
		Redis:    check(ctx, hs.cache.Ping),
		Bus:      check(ctx, hs.bus.Ping),
		BusName:  hs.bus.Name(),
	}
	status.Healthy = status.Database.Connected && status.Redis.Connected && status.Bus.Connected

	if !status.Healthy {
		hs.logger.Warn("Dependency health check failed",
			gecho.Field("database", status.Database.Connected),
			gecho.Field("redis", status.Redis.Connected),
			gecho.Field("bus", status.Bus.Connected),
		)
	}
	return status
}
