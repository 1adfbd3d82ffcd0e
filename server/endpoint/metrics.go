package endpoint

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

const mib = 1 << 20

type runtimeStats struct {
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	HeapMiB       float64 `json:"heap_mib"`
	SysMiB        float64 `json:"sys_mib"`
	GCCycles      uint32  `json:"gc_cycles"`
	LastGCPauseMs float64 `json:"last_gc_pause_ms"`
}

func readRuntimeStats(now time.Time) runtimeStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := runtimeStats{
		Timestamp:     now.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(now.Sub(startTime).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		HeapMiB:       float64(ms.HeapAlloc) / mib,
		SysMiB:        float64(ms.Sys) / mib,
		GCCycles:      ms.NumGC,
	}
	if ms.NumGC > 0 {
		s.LastGCPauseMs = float64(ms.PauseNs[(ms.NumGC+255)%256]) / float64(time.Millisecond)
	}
	return s
}

// Metrics is a quick look at process health for operators without an OTLP
// collector. Request and task counters are only exported over OTLP.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, readRuntimeStats(time.Now()))
	}
}
