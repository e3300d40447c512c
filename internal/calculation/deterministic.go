package calculation

import "time"

// seedFunc returns a pseudo-random seed (override for deterministic tests).
var seedFunc = func() uint64 { return uint64(time.Now().UnixNano()) }

// SetSeedFunc overrides the seed provider (use only in tests).
func SetSeedFunc(f func() uint64) { seedFunc = f }

// RandomSeed returns a fresh seed for callers that did not pick one.
func RandomSeed() uint64 { return seedFunc() }
