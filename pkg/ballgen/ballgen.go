// Package ballgen is the deterministic Speed Click ball generator.
//
// Every party that predicts ball geometry (browser client, solo validator,
// duel rooms) must produce byte-identical output for the same inputs. The
// golden vectors in testdata/golden.json pin the behaviour; any port to
// another language has to pass the same vectors.
package ballgen

// Version identifies the generator algorithm. Bump it whenever output changes.
const Version = 1

const (
	BoardWidth   = 1200.0
	BoardHeight  = 800.0
	SpawnDelayMs = 300

	// subSeedStride spreads per-ball seeds across the 32-bit space.
	subSeedStride = 12345
)

// Level is one row of the difficulty table.
type Level struct {
	Number     uint32
	MinScore   uint32
	DurationMs uint32
	Size       float64
	BlueChance float64
}

// Levels is ordered by MinScore ascending.
var Levels = []Level{
	{Number: 1, MinScore: 0, DurationMs: 1000, Size: 80, BlueChance: 0.10},
	{Number: 2, MinScore: 5, DurationMs: 900, Size: 75, BlueChance: 0.13},
	{Number: 3, MinScore: 10, DurationMs: 800, Size: 70, BlueChance: 0.16},
	{Number: 4, MinScore: 15, DurationMs: 700, Size: 65, BlueChance: 0.20},
	{Number: 5, MinScore: 20, DurationMs: 600, Size: 60, BlueChance: 0.23},
	{Number: 6, MinScore: 25, DurationMs: 500, Size: 55, BlueChance: 0.26},
	{Number: 7, MinScore: 30, DurationMs: 400, Size: 50, BlueChance: 0.30},
}

// LevelFor returns the highest level whose threshold does not exceed score.
func LevelFor(score uint32) Level {
	for i := len(Levels) - 1; i >= 0; i-- {
		if score >= Levels[i].MinScore {
			return Levels[i]
		}
	}
	return Levels[0]
}

// Ball is one timed target. It is a pure function of its inputs.
type Ball struct {
	Index       uint32  `json:"index"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	IsRed       bool    `json:"isRed"`
	Size        float64 `json:"size"`
	DurationMs  uint32  `json:"durationMs"`
	SpawnTimeMs uint64  `json:"spawnTimeMs"`
	Level       uint32  `json:"level"`
}

// EndMs is the instant the ball expires on the session timeline.
func (b Ball) EndMs() uint64 { return b.SpawnTimeMs + uint64(b.DurationMs) }

// SubSeed derives the per-ball seed. Arithmetic wraps at 2^32.
func SubSeed(seed, index uint32) uint32 {
	return seed + index*subSeedStride
}

// Generate builds the ball at index for a run seeded with seed.
func Generate(seed, index, scoreAtSpawn uint32, prevBallEndMs uint64) Ball {
	rng := NewMulberry32(SubSeed(seed, index))
	lvl := LevelFor(scoreAtSpawn)

	padding := lvl.Size
	// The explicit float64 conversions forbid fused multiply-add, which would
	// change the low bits on arm64 and break cross-platform reproducibility.
	x := padding + float64(rng.Next()*(BoardWidth-padding*2))
	y := padding + float64(rng.Next()*(BoardHeight-padding*2))
	isRed := rng.Next() > lvl.BlueChance

	return Ball{
		Index:       index,
		X:           x,
		Y:           y,
		IsRed:       isRed,
		Size:        lvl.Size,
		DurationMs:  lvl.DurationMs,
		SpawnTimeMs: prevBallEndMs + SpawnDelayMs,
		Level:       lvl.Number,
	}
}
