package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKnownDistance(t *testing.T) {
	lahore := Point{Lat: 31.5204, Lng: 74.3587}
	islamabad := Point{Lat: 33.6844, Lng: 73.0479}

	got := DistanceKm(lahore, islamabad)
	assert.InDelta(t, 270, got, 10)
	assert.InDelta(t, got, DistanceKm(islamabad, lahore), 1e-9)
	assert.Zero(t, DistanceKm(lahore, lahore))
}

func TestWithin(t *testing.T) {
	origin := Point{Lat: 0, Lng: 0}
	oneDegreeEast := Point{Lat: 0, Lng: 1}

	assert.True(t, Within(origin, oneDegreeEast, 112))
	assert.False(t, Within(origin, oneDegreeEast, 110))
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 45, Lng: -120}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: 181}.Valid())
}
