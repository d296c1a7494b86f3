package settlement

import "thornvale.world/internal/world/rng"

var namePrefixes = []string{
	"Ash", "Bram", "Cold", "Dun", "Elm", "Fern", "Grey", "Haw",
	"Iron", "Knot", "Lark", "Mill", "North", "Oak", "Pine", "Raven",
	"Stone", "Thorn", "Wick", "Wolf",
}

var nameSuffixes = []string{
	"bourne", "brook", "dale", "fell", "field", "ford", "gate",
	"ham", "haven", "hollow", "mere", "moor", "stead", "vale", "wick",
}

// Name draws a settlement name from its stream: one prefix draw, one
// suffix draw.
func Name(r *rng.Rng) string {
	return namePrefixes[r.Intn(len(namePrefixes))] + nameSuffixes[r.Intn(len(nameSuffixes))]
}
