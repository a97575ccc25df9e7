// internal/rating/elo.go
package rating

import "math"

// KFactor is the maximum rating adjustment for a single game.
const KFactor = 32

// Score values for the first side of a pairing; the second side's
// score is the complement.
const (
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

// Expected returns the expected score for a player rated e1 against a
// player rated e2 under the standard logistic curve.
func Expected(e1, e2 int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(e2-e1)/400.0))
}

// Update produces the new ratings for both sides of a finished game.
// score1 is side 1's actual score (ScoreWin, ScoreDraw, or ScoreLoss);
// side 2 receives the complement. Results are rounded to the nearest
// integer, so the adjustment is zero-sum within rounding.
func Update(e1, e2 int, score1 float64) (int, int) {
	exp1 := Expected(e1, e2)
	new1 := int(math.Round(float64(e1) + KFactor*(score1-exp1)))
	new2 := int(math.Round(float64(e2) + KFactor*((1-score1)-(1-exp1))))
	return new1, new2
}
