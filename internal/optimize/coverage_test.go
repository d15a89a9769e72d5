package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCoverageModel_Bounds(t *testing.T) {
	tests := []struct {
		name     string
		keptQty  float64
		totalQty float64
		want     float64
	}{
		{"full coverage", 100, 100, 1.0},
		{"no kept volume", 0, 100, 0.6},
		{"no volume at all", 0, 0, 0.6},
		{"quarter kept", 25, 100, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCoverageModel(tt.keptQty, tt.totalQty)
			assert.InDelta(t, tt.want, c.Global, 1e-9)
		})
	}
}

func TestNewCoverageModel_MonotoneInKeptShare(t *testing.T) {
	prev := 0.0
	for kept := 0.0; kept <= 100; kept += 10 {
		c := NewCoverageModel(kept, 100)
		assert.GreaterOrEqual(t, c.Global, prev)
		assert.GreaterOrEqual(t, c.Global, 0.5)
		assert.LessOrEqual(t, c.Global, 1.0)
		prev = c.Global
	}
}

func TestCoverageMonth(t *testing.T) {
	c := NewCoverageModel(50, 100)

	// average month reproduces the global factor
	assert.InDelta(t, c.Global, c.Month(40, 40), 1e-9)

	// no average baseline falls back to global
	assert.Equal(t, c.Global, c.Month(40, 0))

	// quiet months floor at 0.5, busy months cap at 1.0
	assert.Equal(t, 0.5, c.Month(0, 40))
	assert.Equal(t, 1.0, c.Month(4000, 40))

	// negative quantities behave like zero
	assert.Equal(t, 0.5, c.Month(-10, 40))
}

func TestCoverageMonth_MonotoneInVolume(t *testing.T) {
	c := NewCoverageModel(30, 100)
	prev := 0.0
	for qty := 0.0; qty <= 200; qty += 20 {
		f := c.Month(qty, 50)
		assert.GreaterOrEqual(t, f, prev)
		assert.GreaterOrEqual(t, f, 0.5)
		assert.LessOrEqual(t, f, 1.0)
		prev = f
	}
}
