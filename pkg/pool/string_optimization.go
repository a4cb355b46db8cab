package pool

import (
	"strconv"
)

// Pre-interned synthetic keys to avoid runtime allocations.
// The map is populated once in init and never written again, so the
// fast paths below can read it without locking.
var internedSyntheticKeys = make(map[string]string)

func init() {
	// Pre-intern synthetic actor keys (actor_0 to actor_99)
	for i := 0; i < 100; i++ {
		name := "actor_" + strconv.Itoa(i)
		internedSyntheticKeys[name] = name
	}

	// Pre-intern synthetic effect keys (effect_0 to effect_99)
	for i := 0; i < 100; i++ {
		name := "effect_" + strconv.Itoa(i)
		internedSyntheticKeys[name] = name
	}

	// Pre-intern worker IDs (worker_0 to worker_63)
	for i := 0; i < 64; i++ {
		name := "worker_" + strconv.Itoa(i)
		internedSyntheticKeys[name] = name
	}
}

// GetSyntheticKey returns an interned key for common synthetic patterns
// This avoids allocations for keys generated inside workload loops
func GetSyntheticKey(prefix string, index int) string {
	// Fast path for common patterns
	if index < 100 && (prefix == "actor_" || prefix == "effect_") {
		name := prefix + strconv.Itoa(index)
		return internedSyntheticKeys[name]
	}

	if index < 64 && prefix == "worker_" {
		name := prefix + strconv.Itoa(index)
		return internedSyntheticKeys[name]
	}

	// Slow path: intern on demand
	name := prefix + strconv.Itoa(index)
	return InternString(name)
}

// GetWorkerID returns an interned worker ID
// Optimized for sequential worker numbering
func GetWorkerID(index int) string {
	if index < 64 {
		return internedSyntheticKeys["worker_"+strconv.Itoa(index)]
	}
	return InternString("worker_" + strconv.Itoa(index))
}

// PreInternKeys pre-interns a batch of lookup keys
// Useful for config-declared warmup keys or repeated patterns
func PreInternKeys(keys []string) {
	for _, key := range keys {
		InternString(key)
	}
}
