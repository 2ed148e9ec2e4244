package clockrng

import (
	"hash/fnv"
	"math/rand"

	"github.com/google/uuid"
	shellquote "github.com/kballard/go-shellquote"
)

// charsetAlphanumeric and charsetHex are the exact draw alphabets
// determinism.rs's next_string/next_hex use.
const (
	charsetAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	charsetHex          = "0123456789abcdef"
)

// SeededRng is a deterministic pseudo-random generator: the same seed
// always produces the same draw sequence, so step bodies that need
// "random-looking" data (IDs, jitter, sample payloads) stay reproducible
// for a given run. No ChaCha8 binding appears anywhere in the retrieved
// example pack, so this wraps math/rand's own seeded source rather than
// introducing an unrelated dependency (see DESIGN.md).
type SeededRng struct {
	r    *rand.Rand
	seed uint64
}

// NewSeededRng returns a generator seeded from 0.
func NewSeededRng() *SeededRng {
	return WithSeed(0)
}

// WithSeed returns a generator seeded deterministically from seed.
func WithSeed(seed uint64) *SeededRng {
	return &SeededRng{r: rand.New(rand.NewSource(int64(seed))), seed: seed}
}

// SeedFromName derives a generator's seed from an arbitrary string (a
// scenario or job name), the same "hash the name, seed from the hash"
// approach determinism.rs's from_scenario_name uses, so the same name
// always yields the same seed.
func SeedFromName(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

// FromName returns a generator seeded from SeedFromName(name).
func FromName(name string) *SeededRng {
	return WithSeed(SeedFromName(name))
}

// FromDescriptor seeds a generator from a composite seed descriptor such
// as `scenario-a "extra tag"`: the descriptor is tokenized with shell
// word-splitting rules (reusing github.com/kballard/go-shellquote, a
// shell-token splitter, for a non-shell purpose) and every
// token's hash is folded together, so the seed is stable under
// reordering of quoting but sensitive to the actual token set.
func FromDescriptor(descriptor string) (*SeededRng, error) {
	tokens, err := shellquote.Split(descriptor)
	if err != nil {
		return nil, err
	}
	var seed uint64
	for _, tok := range tokens {
		seed ^= SeedFromName(tok)
	}
	return WithSeed(seed), nil
}

// Seed returns the seed this generator was constructed with.
func (g *SeededRng) Seed() uint64 { return g.seed }

// Clone returns a fresh generator re-seeded identically to g, discarding
// g's current draw position; this mirrors determinism.rs's Clone impl,
// which restarts the underlying stream rather than forking its state.
func (g *SeededRng) Clone() *SeededRng {
	return WithSeed(g.seed)
}

func (g *SeededRng) NextUUID() uuid.UUID {
	var b [16]byte
	g.r.Read(b[:])
	id, _ := uuid.FromBytes(b[:])
	return id
}

func (g *SeededRng) NextU64() uint64 { return g.r.Uint64() }

func (g *SeededRng) NextU32() uint32 { return g.r.Uint32() }

func (g *SeededRng) NextI64() int64 { return g.r.Int63() }

func (g *SeededRng) NextF64() float64 { return g.r.Float64() }

func (g *SeededRng) NextBool() bool { return g.r.Intn(2) == 1 }

func (g *SeededRng) NextString(length int) string {
	return g.drawFrom(charsetAlphanumeric, length)
}

func (g *SeededRng) NextAlphanumeric(length int) string {
	return g.NextString(length)
}

func (g *SeededRng) NextHex(length int) string {
	return g.drawFrom(charsetHex, length)
}

func (g *SeededRng) drawFrom(charset string, length int) string {
	out := make([]byte, length)
	for i := range out {
		out[i] = charset[g.r.Intn(len(charset))]
	}
	return string(out)
}

// NextRange returns a uniform draw in [min, max).
func (g *SeededRng) NextRange(min, max uint64) uint64 {
	if max <= min {
		return min
	}
	return min + uint64(g.r.Int63n(int64(max-min)))
}

// Choose returns a pointer to a uniformly drawn element of items, or
// nil if items is empty.
func Choose[T any](g *SeededRng, items []T) *T {
	if len(items) == 0 {
		return nil
	}
	idx := g.r.Intn(len(items))
	return &items[idx]
}

// Shuffle permutes items in place using a Fisher-Yates shuffle driven by
// g, the same approach rand.Shuffle itself takes.
func Shuffle[T any](g *SeededRng, items []T) {
	g.r.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
