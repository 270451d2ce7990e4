package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps process-lifetime HTTP counters for the admin metrics endpoint.
type Collector struct {
	started         time.Time
	inFlight        atomic.Int64
	totalRequests   atomic.Uint64
	clientErrors    atomic.Uint64
	serverErrors    atomic.Uint64
	rateLimited     atomic.Uint64
	conflicts       atomic.Uint64
	totalDurationMs atomic.Uint64
}

type Snapshot struct {
	UptimeSeconds   int64   `json:"uptimeSeconds"`
	InFlight        int64   `json:"inFlight"`
	RequestsTotal   uint64  `json:"requestsTotal"`
	ClientErrors    uint64  `json:"clientErrorsTotal"`
	ServerErrors    uint64  `json:"serverErrorsTotal"`
	RateLimited     uint64  `json:"rateLimitedTotal"`
	Conflicts       uint64  `json:"conflictsTotal"`
	AvgDurationMs   float64 `json:"avgDurationMs"`
	TotalDurationMs uint64  `json:"totalDurationMs"`
}

func New() *Collector {
	return &Collector{started: time.Now()}
}

func (c *Collector) Begin() {
	c.inFlight.Add(1)
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.inFlight.Add(-1)
	c.totalRequests.Add(1)
	switch {
	case status >= 500:
		c.serverErrors.Add(1)
	case status == 429:
		c.rateLimited.Add(1)
		c.clientErrors.Add(1)
	case status == 409:
		c.conflicts.Add(1)
		c.clientErrors.Add(1)
	case status >= 400:
		c.clientErrors.Add(1)
	}
	c.totalDurationMs.Add(uint64(duration.Milliseconds()))
}

func (c *Collector) Snapshot() Snapshot {
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return Snapshot{
		UptimeSeconds:   int64(time.Since(c.started).Seconds()),
		InFlight:        c.inFlight.Load(),
		RequestsTotal:   total,
		ClientErrors:    c.clientErrors.Load(),
		ServerErrors:    c.serverErrors.Load(),
		RateLimited:     c.rateLimited.Load(),
		Conflicts:       c.conflicts.Load(),
		AvgDurationMs:   avg,
		TotalDurationMs: totalMs,
	}
}
