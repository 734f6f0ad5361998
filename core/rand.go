package core

import (
	"math/rand"
	"time"

	"github.com/signalsfoundry/ride-network-sim/kb"
	"github.com/signalsfoundry/ride-network-sim/model"
)

// NewRand returns a seeded source of uniform choices. A zero seed uses the
// current time.
func NewRand(seed int64) kb.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func pickLocation(r kb.Rand, set []model.Location) (model.Location, bool) {
	if len(set) == 0 {
		return "", false
	}
	return set[r.Intn(len(set))], true
}
