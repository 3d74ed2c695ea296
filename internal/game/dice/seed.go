package dice

import "sync"

const (
	golden = 0x9E3779B97F4A7C15
	mix1   = 0xBF58476D1CE4E5B9
	mix2   = 0x94D049BB133111EB
)

// Seed derives the roll seed for an actor at a moment in time.
//
// Postcondition: Seed(a, t) == uint64(a) XOR uint64(t).
func Seed(actorID, nowMicros int64) uint64 {
	return uint64(actorID) ^ uint64(nowMicros)
}

// Mix derives an independent sub-seed from seed. Distinct salts yield
// uncorrelated results for rolls made within the same logical step.
func Mix(seed, salt uint64) uint64 {
	z := seed + (salt+1)*golden
	z = (z ^ (z >> 30)) * mix1
	z = (z ^ (z >> 27)) * mix2
	return z ^ (z >> 31)
}

// Percent reduces seed to a roll in [0, 100).
func Percent(seed uint64) int {
	return int(seed % 100)
}

// Chance reports whether a percentage roll from seed lands under percent.
//
// Postcondition: percent <= 0 is always false; percent >= 100 is always true.
func Chance(seed uint64, percent int) bool {
	return Percent(seed) < percent
}

// SeededSource is a splitmix64 Source. Two sources built from the same seed
// produce the same sequence.
type SeededSource struct {
	mu    sync.Mutex
	state uint64
}

// NewSeededSource returns a Source whose sequence is fixed by seed.
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{state: seed}
}

// Intn returns the next value of the sequence reduced into [0, n).
//
// Precondition: n > 0.
func (s *SeededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: SeededSource.Intn called with n <= 0")
	}
	s.mu.Lock()
	s.state += golden
	z := s.state
	s.mu.Unlock()
	z = (z ^ (z >> 30)) * mix1
	z = (z ^ (z >> 27)) * mix2
	z ^= z >> 31
	return int(z % uint64(n))
}
