package playlist

import (
	"math/rand/v2"
	"sync"

	"github.com/Fwea-Go/remix-exp/pkg/api"
)

type shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// globalRand uses the runtime-seeded top-level source, which is safe for
// concurrent use.
type globalRand struct{}

func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// lockedRand serializes access to a caller-provided source.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

func newShuffler(r *rand.Rand) shuffler {
	if r == nil {
		return globalRand{}
	}
	return &lockedRand{r: r}
}

// shufflePairs permutes pairs uniformly in place. Index fields are not
// touched; see renumber.
func shufflePairs(s shuffler, pairs []api.TrackPair) {
	s.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
}

// renumber sets each pair's index to its position in pairs.
func renumber(pairs []api.TrackPair) {
	for i := range pairs {
		pairs[i].Index = i
	}
}
