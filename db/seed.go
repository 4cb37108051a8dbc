package db

import (
	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/pkg/geo"
)

func airport(ident, iata, name, city, country string, lat, lon float64) airports.Airport {
	return airports.Airport{
		Ident:        ident,
		IATA:         iata,
		Name:         name,
		Municipality: city,
		Location:     geo.Coordinates{Lat: lat, Lon: lon},
		ISOCountry:   country,
		Active:       true,
	}
}

// SampleAirports is a small development data set seeded into empty stores.
// Production data comes from the external import pipeline.
var SampleAirports = []airports.Airport{
	// Colorado
	airport("KDEN", "DEN", "Denver International Airport", "Denver", "US", 39.861698, -104.672997),
	airport("KAPA", "APA", "Centennial Airport", "Denver", "US", 39.570099, -104.848999),
	airport("KBJC", "BJC", "Rocky Mountain Metropolitan Airport", "Denver", "US", 39.908798, -105.116997),
	airport("KCOS", "COS", "City of Colorado Springs Municipal Airport", "Colorado Springs", "US", 38.805801, -104.700996),

	// New York metro
	airport("KJFK", "JFK", "John F Kennedy International Airport", "New York", "US", 40.639801, -73.7789),
	airport("KLGA", "LGA", "LaGuardia Airport", "New York", "US", 40.777199, -73.872597),
	airport("KEWR", "EWR", "Newark Liberty International Airport", "Newark", "US", 40.692501, -74.168701),

	// Southern California and Baja
	airport("KLAX", "LAX", "Los Angeles International Airport", "Los Angeles", "US", 33.942501, -118.407997),
	airport("KBUR", "BUR", "Bob Hope Airport", "Burbank", "US", 34.200699, -118.359001),
	airport("KSAN", "SAN", "San Diego International Airport", "San Diego", "US", 32.7336, -117.190002),
	airport("MMTJ", "TIJ", "General Abelardo L. Rodriguez International Airport", "Tijuana", "MX", 32.5411, -116.970001),

	// Great Lakes
	airport("KORD", "ORD", "Chicago O'Hare International Airport", "Chicago", "US", 41.9786, -87.9048),
	airport("KDTW", "DTW", "Detroit Metropolitan Wayne County Airport", "Detroit", "US", 42.212399, -83.353401),
	airport("CYQG", "YQG", "Windsor Airport", "Windsor", "CA", 42.2756, -82.955597),
	airport("CYYZ", "YYZ", "Lester B. Pearson International Airport", "Toronto", "CA", 43.6772, -79.6306),
	{
		Ident:        "KCGX",
		IATA:         "CGX",
		Name:         "Meigs Field",
		Municipality: "Chicago",
		Location:     geo.Coordinates{Lat: 41.858799, Lon: -87.607903},
		ISOCountry:   "US",
		Active:       false,
	},

	// Europe
	airport("EGLL", "LHR", "London Heathrow Airport", "London", "GB", 51.4706, -0.461941),
	airport("LFPG", "CDG", "Charles de Gaulle International Airport", "Paris", "FR", 49.012798, 2.55),
	airport("ENSB", "LYR", "Svalbard Airport, Longyear", "Longyearbyen", "NO", 78.246101, 15.4656),

	// Asia-Pacific
	airport("RJTT", "HND", "Tokyo Haneda International Airport", "Tokyo", "JP", 35.552299, 139.779999),
	airport("YSSY", "SYD", "Sydney Kingsford Smith International Airport", "Sydney", "AU", -33.946098, 151.177002),
	airport("NZAA", "AKL", "Auckland International Airport", "Auckland", "NZ", -37.008099, 174.792007),
	airport("NFFN", "NAN", "Nadi International Airport", "Nadi", "FJ", -17.7554, 177.443),
}
