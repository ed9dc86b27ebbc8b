// Package pairing matches original tracks to their remixes by file name.
//
// Matching runs in three phases, each only seeing keys the earlier phases
// left unmatched:
//
//  1. Leading track number ("03 - Song.mp3" with "03_Song_Remix.mp3").
//  2. Normalized stem ("Nightfall (Radio Edit).mp3" with "nightfall remix.wav").
//  3. Position, after natural-sorting what is left on each side.
//
// The result is the same for any input order.
package pairing

import (
	"slices"

	"github.com/Fwea-Go/remix-exp/pkg/object"
)

// Phase identifies which matching rule produced a pair.
type Phase int

const (
	PhaseNumber Phase = iota + 1
	PhaseStem
	PhasePosition
)

func (p Phase) String() string {
	switch p {
	case PhaseNumber:
		return "number"
	case PhaseStem:
		return "stem"
	case PhasePosition:
		return "position"
	default:
		return "unknown"
	}
}

// Match is one original/remix pair.
type Match struct {
	Original string
	Remix    string
	Phase    Phase
}

var defaultRules = DefaultRules()

// Pair matches originals to remixes with the default rules.
func Pair(originals, remixes []string) []Match {
	return defaultRules.Pair(originals, remixes)
}

// Pair matches originals to remixes. Output is phase-1 matches by ascending
// number, then phase-2 matches in discovery order, then positional matches.
// Unmatched keys on the longer side of phase 3 are dropped. Names whose stem
// is empty, such as "(Intro).mp3", never match each other in phase 2 and
// are left to phase 3.
func (r *Rules) Pair(originals, remixes []string) []Match {
	order := newNaturalOrder()
	origs := prepare(originals, order)
	rems := prepare(remixes, order)

	usedO := make(map[string]bool, len(origs))
	usedR := make(map[string]bool, len(rems))
	var out []Match

	// Phase 1: leading number, first key seen per number wins.
	oByNum := r.indexByNumber(origs)
	rByNum := r.indexByNumber(rems)
	nums := make([]int, 0, len(oByNum))
	for n := range oByNum {
		if _, ok := rByNum[n]; ok {
			nums = append(nums, n)
		}
	}
	slices.Sort(nums)
	for _, n := range nums {
		o, rm := oByNum[n], rByNum[n]
		out = append(out, Match{Original: o, Remix: rm, Phase: PhaseNumber})
		usedO[o] = true
		usedR[rm] = true
	}

	// Phase 2: identical stems. A later remix with the same stem replaces
	// an earlier one in the index.
	rByStem := make(map[string]string)
	for _, rm := range rems {
		if usedR[rm] {
			continue
		}
		if s := r.Stem(object.BaseName(rm)); s != "" {
			rByStem[s] = rm
		}
	}
	for _, o := range origs {
		if usedO[o] {
			continue
		}
		s := r.Stem(object.BaseName(o))
		if s == "" {
			continue
		}
		rm, ok := rByStem[s]
		if !ok {
			continue
		}
		out = append(out, Match{Original: o, Remix: rm, Phase: PhaseStem})
		usedO[o] = true
		usedR[rm] = true
		delete(rByStem, s)
	}

	// Phase 3: whatever is left, by position. Both sides are already in
	// natural order.
	oRemain := unused(origs, usedO)
	rRemain := unused(rems, usedR)
	for i := range min(len(oRemain), len(rRemain)) {
		out = append(out, Match{Original: oRemain[i], Remix: rRemain[i], Phase: PhasePosition})
	}
	return out
}

func (r *Rules) indexByNumber(keys []string) map[int]string {
	idx := make(map[int]string)
	for _, k := range keys {
		n, ok := r.LeadingNumber(object.BaseName(k))
		if !ok {
			continue
		}
		if _, seen := idx[n]; !seen {
			idx[n] = k
		}
	}
	return idx
}

// prepare copies, natural-sorts and de-duplicates keys.
func prepare(keys []string, order *naturalOrder) []string {
	out := slices.Clone(keys)
	slices.SortFunc(out, order.compare)
	return slices.Compact(out)
}

func unused(keys []string, used map[string]bool) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !used[k] {
			out = append(out, k)
		}
	}
	return out
}
