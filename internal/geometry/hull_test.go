package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvexHull(t *testing.T) {
	tests := []struct {
		name   string
		points []orb.Point
		want   int // ring length including the closing point, 0 for nil
		area   float64
	}{
		{
			name:   "square with interior point",
			points: []orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}},
			want:   5,
			area:   4,
		},
		{
			name:   "triangle with duplicates",
			points: []orb.Point{{0, 0}, {4, 0}, {0, 3}, {4, 0}, {0, 0}},
			want:   4,
			area:   6,
		},
		{
			name:   "collinear",
			points: []orb.Point{{0, 0}, {1, 1}, {2, 2}},
		},
		{
			name:   "two points",
			points: []orb.Point{{0, 0}, {1, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring := ConvexHull(tt.points)
			if tt.want == 0 {
				assert.Nil(t, ring)
				return
			}
			require.Len(t, ring, tt.want)
			assert.True(t, ring.Closed())
			assert.Equal(t, orb.CCW, ring.Orientation())
			assert.InDelta(t, tt.area, math.Abs(planar.Area(ring)), 1e-9)
		})
	}
}

func TestConvexHull_LeavesInputUntouched(t *testing.T) {
	points := []orb.Point{{2, 2}, {0, 0}, {2, 0}, {0, 2}}
	ConvexHull(points)
	assert.Equal(t, orb.Point{2, 2}, points[0])
}

func TestFootprint(t *testing.T) {
	assert.Nil(t, Footprint([]orb.Point{{1, 1}}))

	line := Footprint([]orb.Point{{0, 0}, {1, 1}})
	require.NotNil(t, line)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, line.Bound())

	tri := Footprint([]orb.Point{{0, 0}, {4, 0}, {0, 3}})
	require.Len(t, tri, 1)
	assert.InDelta(t, 6, math.Abs(planar.Area(tri)), 1e-9)
}
