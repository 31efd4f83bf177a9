package ops

import (
	"gonum.org/v1/gonum/mat"
)

// Mat2 is a row-major 2×2 matrix: {m00, m01, m10, m11}.
type Mat2 [4]float64

// SVD factors 2×2 matrices as U·diag(S)·Vᵀ.
type SVD interface {
	Factorize(m Mat2) (u Mat2, s [2]float64, v Mat2, ok bool)
}

// GonumSVD is the SVD backed by gonum's LAPACK implementation.
type GonumSVD struct{}

// Factorize implements SVD. Singular values are returned in descending
// order.
func (GonumSVD) Factorize(m Mat2) (u Mat2, s [2]float64, v Mat2, ok bool) {
	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(2, 2, m[:]), mat.SVDFull) {
		return u, s, v, false
	}
	vals := svd.Values(nil)
	s[0], s[1] = vals[0], vals[1]

	var ud, vd mat.Dense
	svd.UTo(&ud)
	svd.VTo(&vd)
	u = Mat2{ud.At(0, 0), ud.At(0, 1), ud.At(1, 0), ud.At(1, 1)}
	v = Mat2{vd.At(0, 0), vd.At(0, 1), vd.At(1, 0), vd.At(1, 1)}
	return u, s, v, true
}

// Compose returns U·diag(s)·Vᵀ.
func Compose(u Mat2, s [2]float64, v Mat2) Mat2 {
	var out Mat2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			out[i*2+j] = u[i*2]*s[0]*v[j*2] + u[i*2+1]*s[1]*v[j*2+1]
		}
	}
	return out
}

// Inverse returns the inverse of m, guarding the determinant with eps.
func (m Mat2) Inverse(eps float64) Mat2 {
	det := m[0]*m[3] - m[1]*m[2]
	if det >= 0 && det < eps {
		det = eps
	} else if det < 0 && det > -eps {
		det = -eps
	}
	return Mat2{m[3] / det, -m[1] / det, -m[2] / det, m[0] / det}
}
