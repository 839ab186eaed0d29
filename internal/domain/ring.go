package domain

import "math"

// ReactionFootprint summarises one user's public article reactions inside
// the analysis window. Authors holds one entry per reaction: the author of
// the reacted article.
type ReactionFootprint struct {
	UserID  int64
	Authors []int64
}

func (f ReactionFootprint) Total() int { return len(f.Authors) }

// DistinctAuthors returns the set of authors reacted to, optionally
// dropping the user's own articles.
func (f ReactionFootprint) DistinctAuthors(excludeSelf bool) map[int64]struct{} {
	out := make(map[int64]struct{}, len(f.Authors))
	for _, a := range f.Authors {
		if excludeSelf && a == f.UserID {
			continue
		}
		out[a] = struct{}{}
	}
	return out
}

// Concentration is the fraction of distinct reacted authors that fall
// inside shared.
func (f ReactionFootprint) Concentration(shared map[int64]struct{}) float64 {
	authors := f.DistinctAuthors(false)
	if len(authors) == 0 {
		return 0
	}
	inside := 0
	for a := range authors {
		if _, ok := shared[a]; ok {
			inside++
		}
	}
	return float64(inside) / float64(len(authors))
}

// SelfReactionRatio is the fraction of reactions made to the user's own
// articles.
func (f ReactionFootprint) SelfReactionRatio() float64 {
	if len(f.Authors) == 0 {
		return 0
	}
	self := 0
	for _, a := range f.Authors {
		if a == f.UserID {
			self++
		}
	}
	return float64(self) / float64(len(f.Authors))
}

// OutsideAuthors counts distinct authors outside shared, ignoring the
// user's own articles.
func (f ReactionFootprint) OutsideAuthors(shared map[int64]struct{}) int {
	n := 0
	for a := range f.DistinctAuthors(true) {
		if _, ok := shared[a]; !ok {
			n++
		}
	}
	return n
}

// HalveReputation applies the ring penalty: half the modifier, rounded to
// two decimals with halves rounded away from zero. A modifier of 0.01 maps
// to itself, so repeated penalties stop there.
func HalveReputation(modifier float64) float64 {
	return RoundTo(modifier*0.5, 2)
}

func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
