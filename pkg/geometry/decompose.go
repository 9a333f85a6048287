package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Decompose splits the linear part of t into a rotation followed by an axis
// scale (polar decomposition M = R*P via SVD). It returns the scale along the
// rotated axes and the rotation in degrees. Shear is folded into the nearest
// scale; a reflection is reported as a negative sy.
func Decompose(t AffineTransform) (sx, sy, rotationDeg float64) {
	m := mat.NewDense(2, 2, []float64{t.A, t.B, t.C, t.D})

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return 1, 1, 0
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	var r mat.Dense
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		// Push the reflection into the scale so R stays a proper rotation.
		u.Set(0, 1, -u.At(0, 1))
		u.Set(1, 1, -u.At(1, 1))
		values[1] = -values[1]
		r.Mul(&u, v.T())
	}

	var p mat.Dense
	p.Product(&v, mat.NewDiagDense(2, values), v.T())

	sx = p.At(0, 0)
	sy = p.At(1, 1)
	rotationDeg = math.Atan2(r.At(1, 0), r.At(0, 0)) * 180 / math.Pi
	return sx, sy, rotationDeg
}
