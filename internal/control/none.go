package control

import "github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"

// None commands zero on every channel.
type None struct {
	dim int
}

func NewNone(dim int) *None {
	return &None{
		dim: dim,
	}
}

func (n *None) Compute(x dynamo.State, t float64) dynamo.Control {
	return make(dynamo.Control, n.dim)
}
