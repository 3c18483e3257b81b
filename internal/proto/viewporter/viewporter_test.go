package viewporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		wire Fixed
		want float64
	}{
		{"two", 512, 2.0},
		{"one", 256, 1.0},
		{"half", 128, 0.5},
		{"negative", -256, -1.0},
		{"zero", 0, 0},
		{"sub-pixel", 1, 1.0 / 256.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.wire.Float(), 1e-9)
			assert.Equal(t, tt.wire, FixedFromFloat(tt.want))
		})
	}
}
