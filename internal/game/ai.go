// internal/game/ai.go
package game

import "math/rand"

// centerPreferences is the fixed priority list the scripted opponent
// falls back to when no immediate win or block exists. Cells near the
// middle of the board first.
var centerPreferences = [...]int{44, 45, 54, 55, 43, 46, 53, 56, 33, 34, 35, 63, 64, 65}

// ChooseMove picks the scripted opponent's next cell with a single ply
// of look-ahead:
//
//  1. take an immediately winning cell if one exists,
//  2. otherwise block an immediately winning cell for the opponent,
//  3. otherwise the first empty cell from the center preference list,
//  4. otherwise a uniformly random empty cell.
//
// Returns ok=false when the board is full.
func ChooseMove(b Board, aiSeat, oppSeat Seat) (int, bool) {
	var empty []int
	for i := 0; i < BoardCells; i++ {
		if b[i] == SeatNone {
			empty = append(empty, i)
		}
	}
	if len(empty) == 0 {
		return 0, false
	}

	for _, idx := range empty {
		trial := b
		trial[idx] = aiSeat
		if out := Evaluate(trial); out.Winner == aiSeat {
			return idx, true
		}
	}

	for _, idx := range empty {
		trial := b
		trial[idx] = oppSeat
		if out := Evaluate(trial); out.Winner == oppSeat {
			return idx, true
		}
	}

	for _, idx := range centerPreferences {
		if b[idx] == SeatNone {
			return idx, true
		}
	}

	return empty[rand.Intn(len(empty))], true
}
