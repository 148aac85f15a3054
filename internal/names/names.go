// Package names generates Adjective+Noun agent identifiers such as
// "CopperFalcon". Generation is random; the registry handles collisions by
// retrying a bounded number of times.
package names

import (
	"math/rand"
	"time"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

var (
	adjectives = []string{
		"Amber", "Ancient", "Arcane", "Bold", "Brisk", "Bronze",
		"Calm", "Cedar", "Cobalt", "Copper", "Coral", "Crimson",
		"Daring", "Dusky", "Eager", "Ebony", "Electric", "Emerald",
		"Fleet", "Frosty", "Gentle", "Gilded", "Golden", "Granite",
		"Hazel", "Hidden", "Indigo", "Iron", "Ivory", "Jade",
		"Keen", "Lively", "Lunar", "Marble", "Mellow", "Midnight",
		"Nimble", "Noble", "Obsidian", "Onyx", "Opal", "Pale",
		"Quiet", "Rapid", "Rustic", "Sable", "Saffron", "Scarlet",
		"Silent", "Silver", "Solar", "Stately", "Steady", "Stoic",
		"Swift", "Tidal", "Umber", "Velvet", "Vivid", "Wandering",
	}

	nouns = []string{
		"Albatross", "Antelope", "Badger", "Bison", "Bobcat",
		"Caribou", "Condor", "Coyote", "Crane", "Cricket",
		"Dolphin", "Falcon", "Ferret", "Finch", "Firefly",
		"Gazelle", "Gecko", "Heron", "Ibis", "Jackal",
		"Kestrel", "Kingfisher", "Lemur", "Lynx", "Magpie",
		"Marmot", "Marten", "Meerkat", "Mongoose", "Moose",
		"Narwhal", "Ocelot", "Osprey", "Otter", "Owl",
		"Panther", "Pelican", "Petrel", "Puffin", "Raven",
		"Salmon", "Sparrow", "Starling", "Stork", "Swallow",
		"Tanager", "Tapir", "Terrapin", "Thrush", "Vole",
		"Walrus", "Warbler", "Weasel", "Wombat", "Wren",
	}
)

// Generate returns a random Adjective+Noun identifier.
func Generate() string {
	return adjectives[rng.Intn(len(adjectives))] + nouns[rng.Intn(len(nouns))]
}

// Space returns the number of distinct identifiers Generate can produce,
// used to sanity-check collision-retry bounds.
func Space() int {
	return len(adjectives) * len(nouns)
}
