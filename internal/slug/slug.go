// Package slug generates human-readable subdomain labels. Labels are not
// guaranteed unique here; the database unique constraint is the arbiter and
// callers regenerate on conflict.
package slug

import (
	"fmt"
	"math/rand/v2"
)

var adjectives = []string{
	"amber", "bold", "brisk", "calm", "clever", "crimson", "dapper", "eager",
	"fancy", "gentle", "golden", "happy", "icy", "jolly", "keen", "lively",
	"mellow", "nimble", "olive", "proud", "quiet", "rapid", "silver", "tidy",
	"upbeat", "vivid", "wandering", "young", "zesty",
}

var nouns = []string{
	"anchor", "badger", "canyon", "dolphin", "ember", "falcon", "glacier",
	"harbor", "island", "jungle", "kestrel", "lagoon", "meadow", "nebula",
	"orchid", "prairie", "quartz", "river", "summit", "tundra", "valley",
	"willow", "zephyr",
}

// New returns a label of the form adjective-noun-NNNN.
func New() string {
	adj := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	return fmt.Sprintf("%s-%s-%04d", adj, noun, rand.IntN(10000))
}
