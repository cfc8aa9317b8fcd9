package docker

import (
	"math/rand"
	"time"
)

// Generated image and container names are <prefix>-<8 random lowercase
// letters>. The retention sweep only ever considers names of this shape.
const (
	nameSuffixLength = 8
	lowercaseLetters = "abcdefghijklmnopqrstuvwxyz"
)

// Namer generates unique image and container names. Collisions are
// accepted as negligible and not mitigated.
type Namer struct {
	rng *rand.Rand
}

// NewNamer creates a namer seeded from the current time
func NewNamer() *Namer {
	return NewNamerWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewNamerWithSource creates a namer with a caller-supplied source, so tests
// can generate deterministic names
func NewNamerWithSource(src rand.Source) *Namer {
	return &Namer{rng: rand.New(src)}
}

// Generate returns prefix joined with a fresh random suffix
func (n *Namer) Generate(prefix string) string {
	suffix := make([]byte, nameSuffixLength)
	for i := range suffix {
		suffix[i] = lowercaseLetters[n.rng.Intn(len(lowercaseLetters))]
	}
	return prefix + "-" + string(suffix)
}
