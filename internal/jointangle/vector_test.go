package jointangle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSpherical(t *testing.T) {
	tests := []struct {
		name       string
		phi, theta float64
		want       r3.Vec
	}{
		{"origin is x", 0, 0, r3.Vec{X: 1}},
		{"azimuth quarter turn is y", 0, math.Pi / 2, r3.Vec{Y: 1}},
		{"elevation quarter turn is z", math.Pi / 2, 0, r3.Vec{Z: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vecInDelta(t, tt.want, Spherical(tt.phi, tt.theta), 1e-12)
		})
	}

	for _, p := range [][2]float64{{0.3, -1.1}, {-1.2, 2.9}, {2.5, 0.7}} {
		assert.InDelta(t, 1, r3.Norm(Spherical(p[0], p[1])), 1e-12)
	}
}

func TestJointPlaneBasis(t *testing.T) {
	t.Run("z axis", func(t *testing.T) {
		b := JointPlaneBasis(r3.Vec{Z: 1})
		assert.False(t, b.Fallback)
		vecInDelta(t, r3.Vec{Y: 1}, b.X, 1e-12)
		vecInDelta(t, r3.Vec{X: -1}, b.Y, 1e-12)
	})

	t.Run("x axis falls back to y reference", func(t *testing.T) {
		b := JointPlaneBasis(r3.Vec{X: 1})
		assert.True(t, b.Fallback)
		vecInDelta(t, r3.Vec{Y: 1}, b.X, 1e-12)
		vecInDelta(t, r3.Vec{Z: 1}, b.Y, 1e-12)
	})

	t.Run("generic axis is orthonormal", func(t *testing.T) {
		j := Spherical(0.4, 1.3)
		b := JointPlaneBasis(j)
		assert.False(t, b.Fallback)
		assert.InDelta(t, 1, r3.Norm(b.X), 1e-12)
		assert.InDelta(t, 1, r3.Norm(b.Y), 1e-12)
		assert.InDelta(t, 0, r3.Dot(b.X, j), 1e-12)
		assert.InDelta(t, 0, r3.Dot(b.Y, j), 1e-12)
		assert.InDelta(t, 0, r3.Dot(b.X, b.Y), 1e-12)
	})

	t.Run("projection of the axis is zero", func(t *testing.T) {
		j := Spherical(-0.2, 0.6)
		x, y := JointPlaneBasis(j).Project(r3.Scale(3, j))
		assert.InDelta(t, 0, x, 1e-12)
		assert.InDelta(t, 0, y, 1e-12)
	})
}

func TestGamma(t *testing.T) {
	g := r3.Vec{Z: 1}
	o := r3.Vec{X: 1}

	// Pure spin gives the centripetal term pointing back at the axis.
	vecInDelta(t, r3.Vec{X: -1}, Gamma(g, r3.Vec{}, o), 1e-12)

	// Angular acceleration adds the tangential term.
	vecInDelta(t, r3.Vec{X: -1, Y: 2}, Gamma(g, r3.Vec{Z: 2}, o), 1e-12)

	// An offset along the spin axis sees nothing.
	vecInDelta(t, r3.Vec{}, Gamma(g, r3.Vec{Z: 2}, r3.Vec{Z: 0.4}), 1e-12)
}
