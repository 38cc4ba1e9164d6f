package vtol

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// rotationMatrix returns the body-to-world rotation of a unit quaternion.
func rotationMatrix(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	})
}

// worldToBody returns R_b_w, the transpose of the attitude rotation.
func worldToBody(q quat.Number) mat.Matrix {
	return rotationMatrix(normalize(q)).T()
}

func mulVec(m mat.Matrix, v r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// integrateAttitude applies q += 0.5*dt*(q * (0, w)) and renormalizes.
func integrateAttitude(q quat.Number, w r3.Vec, dt float64) quat.Number {
	delta := quat.Mul(q, quat.Number{Imag: w.X, Jmag: w.Y, Kmag: w.Z})
	return normalize(quat.Add(q, quat.Scale(0.5*dt, delta)))
}

// angularAcceleration solves Euler's rotation equation I*dw = M - w x (I*w).
func angularAcceleration(p *Params, moment, w r3.Vec) r3.Vec {
	gyroscopic := r3.Cross(w, mulVec(p.Inertia, w))
	return mulVec(p.InertiaInv, r3.Sub(moment, gyroscopic))
}
