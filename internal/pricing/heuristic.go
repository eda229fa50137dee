package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Approximate route distances in km. Unknown routes fall back to 500.
var routeDistances = map[[2]string]float64{
	{"IST", "SAW"}: 50,
	{"IST", "ESB"}: 350,
	{"IST", "ADB"}: 330,
	{"IST", "AYT"}: 480,
	{"IST", "BJV"}: 520,
	{"IST", "DLM"}: 600,
	{"IST", "TZX"}: 880,
	{"IST", "GZT"}: 850,
	{"IST", "VAN"}: 1200,
	{"IST", "JFK"}: 8000,
	{"IST", "LAX"}: 11000,
	{"IST", "LHR"}: 2500,
	{"IST", "CDG"}: 2200,
	{"IST", "FRA"}: 1800,
	{"IST", "AMS"}: 2200,
	{"IST", "DXB"}: 3000,
	{"ADB", "SAW"}: 290,
	{"ADB", "ESB"}: 450,
	{"ESB", "AYT"}: 350,
	{"AYT", "SAW"}: 400,
}

var domesticAirports = map[string]bool{
	"IST": true, "SAW": true, "ESB": true, "ADB": true, "AYT": true,
	"BJV": true, "DLM": true, "TZX": true, "GZT": true, "VAN": true,
}

const defaultDistance = 500

func distanceBetween(from, to string) float64 {
	if d, ok := routeDistances[[2]string{from, to}]; ok {
		return d
	}
	if d, ok := routeDistances[[2]string{to, from}]; ok {
		return d
	}
	return defaultDistance
}

// Heuristic prices a route without the oracle: a base fare plus distance,
// duration, peak-season, weekend and last-minute premiums, with floors of
// 35 (domestic, capped at 85) and 100 (international).
func Heuristic(q QuoteRequest, now time.Time) decimal.Decimal {
	distance := distanceBetween(q.FromAirport, q.ToAirport)
	domestic := domesticAirports[q.FromAirport] && domesticAirports[q.ToAirport]

	daysUntil := int(q.DepartureDate.Sub(now).Hours() / 24)
	if daysUntil < 0 {
		daysUntil = 0
	}
	month := q.DepartureDate.Month()
	peakSeason := month == time.June || month == time.July || month == time.August || month == time.December
	weekday := q.DepartureDate.Weekday()
	weekend := weekday == time.Saturday || weekday == time.Sunday

	var price float64
	if domestic {
		price = 40 + distance*0.005 + float64(q.DurationMinutes)*0.1
		if peakSeason {
			price += 20
		}
		if weekend {
			price += 10
		}
		if daysUntil < 7 {
			price += float64(7-daysUntil) * 2
		}
		if price < 35 {
			price = 35
		}
		if price > 85 {
			price = 85
		}
	} else {
		price = 150 + distance*0.03 + float64(q.DurationMinutes)*0.15
		if peakSeason {
			price += 80
		}
		if weekend {
			price += 30
		}
		if daysUntil < 30 {
			price += float64(30-daysUntil) * 2
		}
		if price < 100 {
			price = 100
		}
	}

	return decimal.NewFromFloat(price).Round(2)
}
