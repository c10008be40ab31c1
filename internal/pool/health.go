package pool

import (
	"time"

	"github.com/loykin/graphmigrate/internal/constants"
)

// HealthStatus classifies a pool's condition.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// severity orders statuses so the most severe classification wins.
func (s HealthStatus) severity() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

func worst(a, b HealthStatus) HealthStatus {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// Connections is a snapshot of pool connection counts.
type Connections struct {
	Active int32
	Idle   int32
	Total  int32
}

// Health is the on-demand, cached health report for one pool. It becomes
// stale until the next check.
type Health struct {
	Status      HealthStatus
	Latency     time.Duration
	Connections Connections
	LastCheck   time.Time
	Errors      []string
}

// classifyHealth derives a status from probe latency and pool utilization.
// exhausted means a client is waiting because all connections are in use.
func classifyHealth(latency time.Duration, conns Connections, exhausted bool) HealthStatus {
	status := StatusHealthy

	switch {
	case latency >= constants.HealthLatencyHigh:
		status = worst(status, StatusUnhealthy)
	case latency >= constants.HealthLatencyLow:
		status = worst(status, StatusDegraded)
	}

	if conns.Total > 0 {
		utilization := float64(conns.Total-conns.Idle) / float64(conns.Total)
		if utilization > constants.HealthUtilizationHigh {
			status = worst(status, StatusDegraded)
		}
	}

	if exhausted {
		status = worst(status, StatusDegraded)
	}

	return status
}
