package rng

const (
	n = 624 // state size
	m = 397 // shift size

	upperMask uint32 = 0x80000000
	lowerMask uint32 = 0x7fffffff
	matrixA   uint32 = 0x9908b0df

	// tempering masks
	temperingB uint32 = 0x9d2c5680
	temperingC uint32 = 0xefc60000

	// multiplier of the seeding recurrence
	seedMult uint32 = 69069

	DefaultSeed uint32 = 4357
)

// MersenneTwister is a 32-bit MT19937 generator seeded with the 69069 linear
// recurrence. It is not safe for concurrent use; draw all noise from one goroutine
// before fanning work out.
type MersenneTwister struct {
	state [n]uint32
	index int
	seed  uint32
}

func New(seed uint32) *MersenneTwister {
	return &MersenneTwister{
		seed:  seed,
		index: n + 1, // not initialized
	}
}

// Reseed replaces the seed. The next draw re-initializes the state from it.
func (mt *MersenneTwister) Reseed(seed uint32) {
	mt.seed = seed
	mt.index = n + 1
}

// Seed returns the seed the next Restart will initialize from.
func (mt *MersenneTwister) Seed() uint32 {
	return mt.seed
}

// initialize fills the state from the seed: s[0] = seed, s[i] = 69069*s[i-1] mod 2^32.
func (mt *MersenneTwister) initialize() {
	mt.state[0] = mt.seed
	for i := 1; i < n; i++ {
		mt.state[i] = seedMult * mt.state[i-1]
	}
}

func (mt *MersenneTwister) twist() {
	s := &mt.state
	for i := 0; i < n; i++ {
		y := s[i]&upperMask | s[(i+1)%n]&lowerMask
		if y&1 != 0 {
			s[i] = s[(i+m)%n] ^ y>>1 ^ matrixA
		} else {
			s[i] = s[(i+m)%n] ^ y>>1
		}
	}
	mt.index = 0
}

// Restart re-initializes the state from the current seed and twists it once.
func (mt *MersenneTwister) Restart() {
	mt.initialize()
	mt.twist()
}

// Uint32 returns the next tempered word of the stream.
func (mt *MersenneTwister) Uint32() uint32 {
	if mt.index > n {
		mt.Restart()
	} else if mt.index == n {
		mt.twist()
	}

	y := mt.state[mt.index]
	y ^= y >> 11
	y ^= y << 7 & temperingB
	y ^= y << 15 & temperingC
	y ^= y >> 18

	mt.index++
	return y
}

// Words fills dst with consecutive words of the stream.
func (mt *MersenneTwister) Words(dst []uint32) {
	for i := range dst {
		dst[i] = mt.Uint32()
	}
}

// Uniforms restarts the stream from the current seed and fills dst with variates in
// the open interval (0,1). Afterwards the last state word becomes the seed, so the next
// call draws a fresh stream instead of repeating this one.
func (mt *MersenneTwister) Uniforms(dst []float64) {
	mt.Restart()
	for i := range dst {
		dst[i] = Uniform(mt.Uint32())
	}
	mt.seed = mt.state[n-1]
}

// Uniform maps a word to (0.5+y)/2^32, which never reaches 0 or 1.
func Uniform(y uint32) float64 {
	return (0.5 + float64(y)) / 4294967296.0
}
