package ballgen

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type goldenVector struct {
	Description   string `json:"description"`
	Seed          uint32 `json:"seed"`
	Index         uint32 `json:"index"`
	Score         uint32 `json:"score"`
	PrevBallEndMs uint64 `json:"prevBallEndMs"`
	Expected      Ball   `json:"expected"`
}

func loadGolden(t *testing.T) []goldenVector {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "golden.json"))
	require.NoError(t, err)

	var vectors []goldenVector
	require.NoError(t, json.Unmarshal(data, &vectors))
	require.NotEmpty(t, vectors)
	return vectors
}

func TestGenerate_GoldenVectors(t *testing.T) {
	for _, v := range loadGolden(t) {
		t.Run(v.Description, func(t *testing.T) {
			got := Generate(v.Seed, v.Index, v.Score, v.PrevBallEndMs)
			require.Equal(t, v.Expected, got)
		})
	}
}

func TestGenerate_Seed12345IsStable(t *testing.T) {
	first := Generate(12345, 0, 0, 0)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, Generate(12345, 0, 0, 0))
	}
	require.True(t, first.IsRed)
	require.Equal(t, 80.0, first.Size)
	require.Equal(t, uint32(1000), first.DurationMs)
	require.Equal(t, uint64(SpawnDelayMs), first.SpawnTimeMs)
}

func TestGenerate_Deterministic(t *testing.T) {
	for seed := uint32(0); seed < 2000; seed += 97 {
		for idx := uint32(0); idx < 40; idx += 3 {
			for _, score := range []uint32{0, 7, 19, 42} {
				a := Generate(seed, idx, score, uint64(idx)*1000)
				b := Generate(seed, idx, score, uint64(idx)*1000)
				if a != b {
					t.Fatalf("seed=%d idx=%d score=%d: %+v != %+v", seed, idx, score, a, b)
				}
			}
		}
	}
}

func TestGenerate_StaysOnBoard(t *testing.T) {
	for idx := uint32(0); idx < 500; idx++ {
		b := Generate(777, idx, idx%40, 0)
		if b.X < b.Size || b.X > BoardWidth-b.Size {
			t.Fatalf("ball %d x=%f outside padded board", idx, b.X)
		}
		if b.Y < b.Size || b.Y > BoardHeight-b.Size {
			t.Fatalf("ball %d y=%f outside padded board", idx, b.Y)
		}
	}
}

func TestMulberry32_KnownSequence(t *testing.T) {
	rng := NewMulberry32(12345)
	want := []float64{0.9797282677609473, 0.3067522644996643, 0.484205421525985}
	for i, w := range want {
		require.Equal(t, w, rng.Next(), "draw %d", i)
	}
}

func TestSubSeed_Wraps(t *testing.T) {
	require.Equal(t, uint32(12344), SubSeed(^uint32(0), 1))
	require.Equal(t, uint32(12345*3), SubSeed(0, 3))
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		score uint32
		want  uint32
	}{
		{0, 1}, {4, 1}, {5, 2}, {9, 2}, {10, 3}, {24, 5}, {25, 6}, {30, 7}, {1000, 7},
	}
	for _, tc := range cases {
		if got := LevelFor(tc.score).Number; got != tc.want {
			t.Fatalf("LevelFor(%d): got level %d, want %d", tc.score, got, tc.want)
		}
	}
}
