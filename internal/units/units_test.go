package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnergyScale(t *testing.T) {
	tests := []struct {
		unit     string
		expected float64
	}{
		{"eV", 1e-6},
		{"keV", 1e-3},
		{"MeV", 1},
		{"", 1},
		{"GeV", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			got, err := EnergyScale(tt.unit)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}

	_, err := EnergyScale("TeV")
	assert.Error(t, err)
}

func TestLengthScale(t *testing.T) {
	got, err := LengthScale("m")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got)

	_, err = LengthScale("inch")
	assert.Error(t, err)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValidEnergy("GeV"))
	assert.False(t, IsValidEnergy("mm"))
	assert.True(t, IsValidLength("cm"))
	assert.False(t, IsValidLength("MeV"))
}

func TestBestEnergy(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"zero", 0, "0 eV"},
		{"gev", 1.5 * GeV, "1.5 GeV"},
		{"mev", 2 * MeV, "2 MeV"},
		{"kev", 800 * KeV, "800 keV"},
		{"ev", 12 * EV, "12 eV"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BestEnergy(tt.in))
		})
	}
}

func TestBestLength(t *testing.T) {
	assert.Equal(t, "10 cm", BestLength(100*Millimeter))
	assert.Equal(t, "2 m", BestLength(2*Meter))
	assert.Equal(t, "5 mm", BestLength(5))
	assert.Equal(t, "500 um", BestLength(0.5))
}
