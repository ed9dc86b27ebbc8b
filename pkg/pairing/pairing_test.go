package pairing

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairNumericPrefix(t *testing.T) {
	originals := []string{"originals/Other.mp3", "originals/03 - Song.mp3", "originals/01 - Intro.mp3"}
	remixes := []string{"remixes/zzz.mp3", "remixes/03_Song_Remix.mp3"}

	got := Pair(originals, remixes)
	require.NotEmpty(t, got)
	assert.Equal(t, Match{Original: "originals/03 - Song.mp3", Remix: "remixes/03_Song_Remix.mp3", Phase: PhaseNumber}, got[0])
	for _, m := range got[1:] {
		assert.NotEqual(t, "remixes/03_Song_Remix.mp3", m.Remix, "matched keys are not reused")
	}
}

func TestPairNumbersAscending(t *testing.T) {
	originals := []string{"o/10 ten.mp3", "o/2 two.mp3", "o/7 seven.mp3"}
	remixes := []string{"r/07-seven.mp3", "r/10.ten.mp3", "r/002 two.mp3"}

	got := Pair(originals, remixes)
	require.Len(t, got, 3)
	assert.Equal(t, "o/2 two.mp3", got[0].Original)
	assert.Equal(t, "r/002 two.mp3", got[0].Remix)
	assert.Equal(t, "o/7 seven.mp3", got[1].Original)
	assert.Equal(t, "o/10 ten.mp3", got[2].Original)
	for _, m := range got {
		assert.Equal(t, PhaseNumber, m.Phase)
	}
}

func TestPairFirstSeenNumberWins(t *testing.T) {
	got := Pair([]string{"o/01 b.mp3", "o/01 a.mp3"}, []string{"r/01 x.mp3"})
	require.Len(t, got, 1)
	assert.Equal(t, Match{Original: "o/01 a.mp3", Remix: "r/01 x.mp3", Phase: PhaseNumber}, got[0])
}

func TestPairStem(t *testing.T) {
	got := Pair([]string{"originals/Nightfall (Radio Edit).mp3"}, []string{"remixes/nightfall remix.wav"})
	require.Len(t, got, 1)
	assert.Equal(t, PhaseStem, got[0].Phase)
	assert.Equal(t, "originals/Nightfall (Radio Edit).mp3", got[0].Original)
	assert.Equal(t, "remixes/nightfall remix.wav", got[0].Remix)
}

func TestPairStemConsumesBothSides(t *testing.T) {
	got := Pair(
		[]string{"o/Nightfall.mp3", "o/zeta.mp3"},
		[]string{"r/nightfall remix.mp3", "r/omega.mp3"},
	)
	require.Len(t, got, 2)
	assert.Equal(t, Match{Original: "o/Nightfall.mp3", Remix: "r/nightfall remix.mp3", Phase: PhaseStem}, got[0])
	assert.Equal(t, Match{Original: "o/zeta.mp3", Remix: "r/omega.mp3", Phase: PhasePosition}, got[1])
}

func TestPairEmptyStemsFallToPosition(t *testing.T) {
	got := Pair([]string{"o/(intro).mp3"}, []string{"r/[intro].mp3"})
	require.Len(t, got, 1)
	assert.Equal(t, PhasePosition, got[0].Phase)
}

func TestPairPositionalFallback(t *testing.T) {
	got := Pair(
		[]string{"o/charlie.mp3", "o/alpha.mp3", "o/bravo.mp3"},
		[]string{"r/yankee.mp3", "r/xray.mp3"},
	)
	want := []Match{
		{Original: "o/alpha.mp3", Remix: "r/xray.mp3", Phase: PhasePosition},
		{Original: "o/bravo.mp3", Remix: "r/yankee.mp3", Phase: PhasePosition},
	}
	assert.Equal(t, want, got)
}

func TestPairPositionalUsesNaturalOrder(t *testing.T) {
	got := Pair(
		[]string{"o/side b10.mp3", "o/side b2.mp3"},
		[]string{"r/mix a10.mp3", "r/mix a2.mp3"},
	)
	require.Len(t, got, 2)
	assert.Equal(t, Match{Original: "o/side b2.mp3", Remix: "r/mix a2.mp3", Phase: PhasePosition}, got[0])
	assert.Equal(t, Match{Original: "o/side b10.mp3", Remix: "r/mix a10.mp3", Phase: PhasePosition}, got[1])
}

func TestPairOrderIndependent(t *testing.T) {
	originals := []string{
		"originals/01 - Dawn.mp3", "originals/02 - Noon.mp3", "originals/Nightfall (Radio Edit).mp3",
		"originals/Café Society.mp3", "originals/track b.mp3", "originals/track a.mp3", "originals/extra.mp3",
	}
	remixes := []string{
		"remixes/01_Dawn_Remix.mp3", "remixes/02-noon-fwea-go.mp3", "remixes/nightfall remix.wav",
		"remixes/cafe society [JIT Remix].mp3", "remixes/zulu.mp3", "remixes/yankee.mp3",
	}
	want := Pair(originals, remixes)
	require.Len(t, want, 6)

	rng := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		o := slices.Clone(originals)
		r := slices.Clone(remixes)
		rng.Shuffle(len(o), func(i, j int) { o[i], o[j] = o[j], o[i] })
		rng.Shuffle(len(r), func(i, j int) { r[i], r[j] = r[j], r[i] })
		assert.Equal(t, want, Pair(o, r))
	}
}

func TestPairDuplicatesAndEmpty(t *testing.T) {
	assert.Empty(t, Pair(nil, []string{"r/a.mp3"}))
	got := Pair([]string{"o/a.mp3", "o/a.mp3"}, []string{"r/x.mp3", "r/y.mp3"})
	require.Len(t, got, 1)
}

func TestNaturalSort(t *testing.T) {
	keys := []string{"t10.mp3", "t2.mp3", "T1.mp3"}
	NaturalSort(keys)
	assert.Equal(t, []string{"T1.mp3", "t2.mp3", "t10.mp3"}, keys)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "number", PhaseNumber.String())
	assert.Equal(t, "stem", PhaseStem.String())
	assert.Equal(t, "position", PhasePosition.String())
	assert.Equal(t, "unknown", Phase(0).String())
}
