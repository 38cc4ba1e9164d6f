package vtol

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// noise draws standard normal samples from a private generator so that
// instances never share random state.
type noise struct {
	dist distuv.Normal
}

func newNoise(seed int64) *noise {
	return &noise{dist: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(uint64(seed))}}
}

// vec returns a vector of independent N(0, variance) samples.
func (n *noise) vec(variance float64) r3.Vec {
	sigma := math.Sqrt(variance)
	return r3.Vec{
		X: sigma * n.dist.Rand(),
		Y: sigma * n.dist.Rand(),
		Z: sigma * n.dist.Rand(),
	}
}
