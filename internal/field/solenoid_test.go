package field

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSolenoidValue(t *testing.T) {
	t.Parallel()
	s := DefaultSolenoid()
	assert.Equal(t, r3.Vec{Z: 1}, s.Value([4]float64{100, -20, 3, 0.5}))
}

func TestHelixRadius(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		field    Solenoid
		momentum r3.Vec
		charge   float64
		want     float64
	}{
		{"1 GeV/c transverse in 1 T", Solenoid{Bz: 1}, r3.Vec{X: 1000}, 1, 3335.64},
		{"longitudinal momentum ignored", Solenoid{Bz: 1}, r3.Vec{Y: 300, Z: 5000}, -1, 1000.69},
		{"doubly charged", Solenoid{Bz: 2}, r3.Vec{X: 600}, 2, 500.35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, tt.field.HelixRadius(tt.momentum, tt.charge), 0.01)
		})
	}

	assert.True(t, math.IsInf(Solenoid{Bz: 1}.HelixRadius(r3.Vec{X: 100}, 0), 1))
	assert.True(t, math.IsInf(Solenoid{}.HelixRadius(r3.Vec{X: 100}, 1), 1))
}
