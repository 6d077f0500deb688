package common

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

const gib = 1024 * 1024 * 1024

// RuntimeProfile is the GC setting applied for a host size.
type RuntimeProfile struct {
	Name     string
	GOGC     int
	MemLimit int64
}

// ProfileFor picks a profile from the CPU count. The route graph and the
// per-query route copies are the bulk of the heap, so larger hosts trade
// memory for fewer collections.
func ProfileFor(numCPU int) RuntimeProfile {
	switch {
	case numCPU <= 2:
		return RuntimeProfile{Name: "small", GOGC: 200, MemLimit: 2 * gib}
	case numCPU <= 8:
		return RuntimeProfile{Name: "medium", GOGC: 400, MemLimit: 6 * gib}
	default:
		return RuntimeProfile{Name: "large", GOGC: 800, MemLimit: 12 * gib}
	}
}

// TuneRuntime applies the host profile for every setting not already
// fixed through GOGC or GOMEMLIMIT.
func TuneRuntime() {
	p := ProfileFor(runtime.NumCPU())

	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(p.GOGC)
	}
	if os.Getenv("GOMEMLIMIT") == "" {
		debug.SetMemoryLimit(p.MemLimit)
	}

	log.Info().
		Str("profile", p.Name).
		Int("num_cpu", runtime.NumCPU()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Int64("mem_limit_bytes", debug.SetMemoryLimit(-1)).
		Str("go_version", runtime.Version()).
		Msg("[runtime] settings applied")
}
