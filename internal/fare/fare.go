package fare

import "math"

// Pricing constants for the fixed linear model: ₹15 per km and
// 3 minutes of travel per km.
const (
	RupeesPerKm  = 15.0
	MinutesPerKm = 3.0
)

// Estimate derives the fare in rupees and the estimated trip duration in
// minutes from a trip distance. Zero distance yields zero fare and zero
// minutes.
func Estimate(distanceKm float64) (fareRupees int, etaMinutes int) {
	fareRupees = int(math.Round(distanceKm * RupeesPerKm))
	etaMinutes = int(math.Round(distanceKm * MinutesPerKm))
	return fareRupees, etaMinutes
}
