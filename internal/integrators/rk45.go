package integrators

import "github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"

// Dormand-Prince tableau.
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0
)

// RK45 advances with the fifth-order Dormand-Prince solution at exactly the
// step the caller asks for. The embedded error estimate is not used.
type RK45 struct {
	k [6]dynamo.State
	x dynamo.State
}

func NewRK45() *RK45 {
	return &RK45{}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.x) != n {
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.x = make(dynamo.State, n)
	}
}

func (r *RK45) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)
	k := r.k

	copy(k[0], sys.Derive(x, u, t))

	for i := 0; i < n; i++ {
		r.x[i] = x[i] + dt*b21*k[0][i]
	}
	copy(k[1], sys.Derive(r.x, u, t+a2*dt))

	for i := 0; i < n; i++ {
		r.x[i] = x[i] + dt*(b31*k[0][i]+b32*k[1][i])
	}
	copy(k[2], sys.Derive(r.x, u, t+a3*dt))

	for i := 0; i < n; i++ {
		r.x[i] = x[i] + dt*(b41*k[0][i]+b42*k[1][i]+b43*k[2][i])
	}
	copy(k[3], sys.Derive(r.x, u, t+a4*dt))

	for i := 0; i < n; i++ {
		r.x[i] = x[i] + dt*(b51*k[0][i]+b52*k[1][i]+b53*k[2][i]+b54*k[3][i])
	}
	copy(k[4], sys.Derive(r.x, u, t+a5*dt))

	for i := 0; i < n; i++ {
		r.x[i] = x[i] + dt*(b61*k[0][i]+b62*k[1][i]+b63*k[2][i]+b64*k[3][i]+b65*k[4][i])
	}
	copy(k[5], sys.Derive(r.x, u, t+dt))

	next := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		next[i] = x[i] + dt*(c1*k[0][i]+c3*k[2][i]+c4*k[3][i]+c5*k[4][i]+c6*k[5][i])
	}
	return next
}
