package diagnosis

import (
	"math"
	"sort"
)

const (
	// DefaultShortlistSize is the number of conditions returned per suggestion
	DefaultShortlistSize = 3

	// paddingConfidence is shown for shortlist entries that matched nothing,
	// so padding is distinguishable from a real zero and still ranks last.
	paddingConfidence = 0.1
)

// Rank selects a shortlist of exactly min(n, len(matches)) conditions.
// Relevant conditions come first by descending confidence; ties keep
// declaration order. Remaining slots are padded with non-matching conditions
// shown at confidence 0.1. When the weakest real match is below 0.1, padding
// takes that lower value instead so it never outranks a real match; Padded
// tells the two apart.
func Rank(matches []MatchedCondition, n int) []MatchedCondition {
	if n <= 0 {
		n = DefaultShortlistSize
	}

	relevant := make([]MatchedCondition, 0, len(matches))
	irrelevant := make([]MatchedCondition, 0, len(matches))
	for _, m := range matches {
		if m.Relevant() {
			relevant = append(relevant, m)
		} else {
			irrelevant = append(irrelevant, m)
		}
	}

	byConfidence := func(list []MatchedCondition) {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Confidence > list[j].Confidence
		})
	}
	byConfidence(relevant)

	shortlist := make([]MatchedCondition, 0, n)
	for _, m := range relevant {
		if len(shortlist) == n {
			break
		}
		shortlist = append(shortlist, m)
	}

	if len(shortlist) < n {
		// Padding never outranks a genuine match
		floor := paddingConfidence
		if len(shortlist) > 0 {
			floor = math.Min(floor, shortlist[len(shortlist)-1].Confidence)
		}

		byConfidence(irrelevant)
		for _, m := range irrelevant {
			if len(shortlist) == n {
				break
			}
			shortlist = append(shortlist, pad(m, floor))
		}
	}

	// Rounding happens only after every comparison is done
	for i := range shortlist {
		shortlist[i].Rank = i + 1
		shortlist[i].Confidence = round2(shortlist[i].Confidence)
	}

	return shortlist
}

// pad marks a non-matching condition used to fill the shortlist
func pad(m MatchedCondition, floor float64) MatchedCondition {
	m.Padded = true
	if m.Confidence < floor {
		m.Confidence = floor
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
