package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func square(lon, lat, side float64) orb.Ring {
	return orb.Ring{
		{lon, lat}, {lon, lat + side}, {lon + side, lat + side}, {lon + side, lat}, {lon, lat},
	}
}

func scaleAround(r orb.Ring, c orb.Point, k float64) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = orb.Point{c[0] + (p[0]-c[0])*k, c[1] + (p[1]-c[1])*k}
	}
	return out
}

func TestAreaSqmSquare(t *testing.T) {
	r := square(39.0, 21.0, 0.01)
	got := AreaSqm(r)
	want := 0.01 * 0.01 * MetersPerDegree * math.Cos(21.005*math.Pi/180) * MetersPerDegree
	if math.Abs(got-want) > 1e-6*want {
		t.Fatalf("area = %f, want %f", got, want)
	}
}

func TestAreaSqmOrientationIndependent(t *testing.T) {
	r := square(39.0, 21.0, 0.01)
	rev := make(orb.Ring, len(r))
	for i := range r {
		rev[i] = r[len(r)-1-i]
	}
	a, b := AreaSqm(r), AreaSqm(rev)
	if a <= 0 || math.Abs(a-b) > 1e-9*a {
		t.Fatalf("area cw=%f ccw=%f", a, b)
	}
}

func TestAreaSqmScalesQuadratically(t *testing.T) {
	r := square(39.0, 21.0, 0.01)
	c := Centroid(r)
	base := AreaSqm(r)
	for _, k := range []float64{0.5, 2, 3} {
		got := AreaSqm(scaleAround(r, c, k))
		want := base * k * k
		if math.Abs(got-want) > 1e-6*want {
			t.Errorf("k=%v area=%f want %f", k, got, want)
		}
	}
}

func TestAreaSqmDegenerate(t *testing.T) {
	r := orb.Ring{{39, 21}, {39.01, 21}, {39.02, 21}, {39, 21}}
	if a := AreaSqm(r); a != 0 {
		t.Fatalf("collinear ring area = %f", a)
	}
	if a := AreaSqm(orb.Ring{{1, 1}}); a != 0 {
		t.Fatalf("short ring area = %f", a)
	}
}

func TestCentroidSquare(t *testing.T) {
	c := Centroid(square(39.0, 21.0, 0.01))
	if math.Abs(c.Lon()-39.005) > 1e-9 || math.Abs(c.Lat()-21.005) > 1e-9 {
		t.Fatalf("centroid = %v", c)
	}
}

func TestDistanceM(t *testing.T) {
	a := orb.Point{39.88040, 21.41855}
	b := orb.Point{39.82, 21.42}
	c := orb.Point{39.85, 21.45}

	if d := DistanceM(a, a); d != 0 {
		t.Fatalf("self distance = %f", d)
	}
	ab, ba := DistanceM(a, b), DistanceM(b, a)
	if ab != ba {
		t.Fatalf("asymmetric: %f vs %f", ab, ba)
	}
	if ab+1e-6 < 6000 || ab > 7000 {
		t.Fatalf("unexpected distance %f", ab)
	}
	if ab > DistanceM(a, c)+DistanceM(c, b)+1e-6 {
		t.Fatalf("triangle inequality violated")
	}
}

func TestDistanceOneDegreeLatitude(t *testing.T) {
	d := DistanceM(orb.Point{0, 0}, orb.Point{0, 1})
	want := EarthRadiusM * math.Pi / 180
	if math.Abs(d-want) > 1e-6 {
		t.Fatalf("distance = %f want %f", d, want)
	}
}

func TestCloseRing(t *testing.T) {
	open := orb.Ring{{0, 0}, {0, 1}, {1, 1}}
	closed := CloseRing(open)
	if len(closed) != 4 || closed[3] != closed[0] {
		t.Fatalf("ring not closed: %v", closed)
	}
	if len(open) != 3 {
		t.Fatalf("input mutated")
	}
	if again := CloseRing(closed); len(again) != 4 {
		t.Fatalf("closed ring grew: %v", again)
	}
	if n := DistinctVertices(closed); n != 3 {
		t.Fatalf("distinct = %d", n)
	}
}
