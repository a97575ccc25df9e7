package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateEqualRatingsWin(t *testing.T) {
	new1, new2 := Update(1500, 1500, ScoreWin)
	if new1 <= 1500 {
		t.Errorf("winner's rating should have gone up, got %d", new1)
	}
	if new2 >= 1500 {
		t.Errorf("loser's rating should have gone down, got %d", new2)
	}
	assert.Equal(t, 1516, new1)
	assert.Equal(t, 1484, new2)
}

func TestUpdateIsZeroSumWithinRounding(t *testing.T) {
	for _, pair := range [][2]int{{1200, 1220}, {1500, 1350}, {1000, 1900}} {
		new1, new2 := Update(pair[0], pair[1], ScoreWin)
		gain := new1 - pair[0]
		loss := pair[1] - new2
		diff := gain - loss
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, 1, "adjustment for %v should be zero-sum within rounding", pair)
	}
}

func TestUpdateDrawMovesTowardEachOther(t *testing.T) {
	new1, new2 := Update(1200, 1400, ScoreDraw)
	assert.Greater(t, new1, 1200, "underdog gains on a draw")
	assert.Less(t, new2, 1400, "favorite loses on a draw")
}

func TestUpdateEqualRatingsDrawIsNoop(t *testing.T) {
	new1, new2 := Update(1500, 1500, ScoreDraw)
	assert.Equal(t, 1500, new1)
	assert.Equal(t, 1500, new2)
}

func TestUpdateUpsetPaysMore(t *testing.T) {
	lowWinner, _ := Update(1200, 1400, ScoreWin)
	highWinner, _ := Update(1400, 1200, ScoreWin)
	assert.Greater(t, lowWinner-1200, highWinner-1400)
}

func TestExpectedBounds(t *testing.T) {
	assert.InDelta(t, 0.5, Expected(1500, 1500), 1e-9)
	assert.Greater(t, Expected(1600, 1400), 0.5)
	assert.Less(t, Expected(1400, 1600), 0.5)
}
