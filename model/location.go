package model

// Location is a named place. The simulator works on a closed set of them;
// there is no geometry, only equality.
type Location string

// DefaultLocations is the built-in location set.
var DefaultLocations = []Location{
	"Nairobi",
	"Mombasa",
	"Kisumu",
	"Nakuru",
	"Shakahola",
}

// ContainsLocation reports whether loc is in set.
func ContainsLocation(set []Location, loc Location) bool {
	for _, l := range set {
		if l == loc {
			return true
		}
	}
	return false
}
