package vmix

import (
	"time"
)

// debugStats holds per-frame timing and source counts.
// Only populated when the session debug flag is set.
type debugStats struct {
	updateTime  time.Duration
	composeTime time.Duration
	sources     int
	active      int
	drawn       int
}

// SetDebug enables per-frame stats, logged at debug level.
func (s *Session) SetDebug(on bool) { s.debug = on }

// debugLog writes frame stats to the package logger.
func (s *Session) debugLog(stats debugStats) {
	if !s.debug {
		return
	}
	Logger().Debug("session frame",
		"update", stats.updateTime,
		"compose", stats.composeTime,
		"total", stats.updateTime+stats.composeTime,
		"sources", stats.sources,
		"active", stats.active,
		"drawn", stats.drawn,
	)
	debugCheckSourceCount(s)
}

// debugMaxSources is the source count above which a session is reported.
const debugMaxSources = 256

func debugCheckSourceCount(s *Session) {
	if n := len(s.sources); n > debugMaxSources {
		Logger().Warn("session has many sources", "sources", n, "threshold", debugMaxSources)
	}
}

// countActive counts sources that render this frame.
func countActive(sources []*Source) int {
	n := 0
	for _, src := range sources {
		if src.active && src.Initialized() {
			n++
		}
	}
	return n
}
