package geo

import (
	"math"
	"testing"
)

func TestDistanceKmZero(t *testing.T) {
	p := Coordinate{Lat: 28.6139, Lng: 77.2090}
	if d := DistanceKm(p, p); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := Coordinate{Lat: 28.6139, Lng: 77.2090}
	b := Coordinate{Lat: 28.7041, Lng: 77.1025}
	ab := DistanceKm(a, b)
	ba := DistanceKm(b, a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("not symmetric: %f vs %f", ab, ba)
	}
}

func TestDistanceKmKnownValue(t *testing.T) {
	// Connaught Place to Delhi University, roughly 14.4 km great-circle.
	a := Coordinate{Lat: 28.6139, Lng: 77.2090}
	b := Coordinate{Lat: 28.7041, Lng: 77.1025}
	d := DistanceKm(a, b)
	if d < 14.0 || d > 15.0 {
		t.Fatalf("expected ~14.4 km, got %f", d)
	}
}

func TestDistanceKmPositiveForDistinctPoints(t *testing.T) {
	a := Coordinate{Lat: 0, Lng: 0}
	b := Coordinate{Lat: 0, Lng: 0.0001}
	if d := DistanceKm(a, b); d <= 0 {
		t.Fatalf("expected positive distance, got %f", d)
	}
}

func TestDistanceKmEquator(t *testing.T) {
	// One degree of longitude at the equator is ~111.19 km for R=6371.
	a := Coordinate{Lat: 0, Lng: 0}
	b := Coordinate{Lat: 0, Lng: 1}
	d := DistanceKm(a, b)
	want := 6371.0 * math.Pi / 180
	if math.Abs(d-want) > 0.01 {
		t.Fatalf("expected %f, got %f", want, d)
	}
}
