package geometry

import (
	"sort"

	"github.com/paulmach/orb"
)

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// ConvexHull returns the closed, counter-clockwise hull ring of the points.
// Fewer than three distinct points, or collinear points, yield nil.
func ConvexHull(points []orb.Point) orb.Ring {
	pts := make([]orb.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	// drop duplicates
	uniq := pts[:0]
	for _, p := range pts {
		if len(uniq) == 0 || !p.Equal(uniq[len(uniq)-1]) {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return nil
	}

	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// hull now ends with its first point
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}

// Footprint is the area covered by the points: their convex hull, or their
// bounding box when no hull exists. It returns nil for fewer than two points.
func Footprint(points []orb.Point) orb.Polygon {
	if len(points) < 2 {
		return nil
	}
	if ring := ConvexHull(points); ring != nil {
		return orb.Polygon{ring}
	}
	return orb.MultiPoint(points).Bound().ToPolygon()
}
