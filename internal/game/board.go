// internal/game/board.go
package game

// BoardSize is the side length of the square board.
const BoardSize = 10

// BoardCells is the total number of cells (row-major indexing).
const BoardCells = BoardSize * BoardSize

// RunLength is the number of contiguous same-seat marks required to win.
const RunLength = 5

// Seat is one of the two positions in a game, independent of which
// identity occupies it. The first mover is always SeatX.
type Seat string

const (
	SeatNone Seat = ""
	SeatX    Seat = "X"
	SeatO    Seat = "O"
)

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	if s == SeatX {
		return SeatO
	}
	return SeatX
}

// Board holds the 10x10 grid in row-major order. A cell, once set,
// is never rewritten.
type Board [BoardCells]Seat

// Outcome is the result of evaluating a board position.
type Outcome struct {
	Finished bool
	Draw     bool
	Winner   Seat // SeatNone unless a five-run exists
}

// directions holds the row/col steps checked from each occupied cell:
// horizontal, vertical, diagonal down-right, diagonal down-left.
var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// Evaluate scans the board for a contiguous run of five and reports the
// position as ongoing, won, or drawn. Cells are scanned in row-major
// order, so if earlier placements left multiple runs on the board the
// run anchored at the lowest index is the one reported. It is a pure
// function; the session logic and the AI's one-ply look-ahead both
// call it on value copies.
func Evaluate(b Board) Outcome {
	for i := 0; i < BoardCells; i++ {
		seat := b[i]
		if seat == SeatNone {
			continue
		}
		row, col := i/BoardSize, i%BoardSize
		for _, d := range directions {
			endRow := row + (RunLength-1)*d[0]
			endCol := col + (RunLength-1)*d[1]
			if endRow >= BoardSize || endCol < 0 || endCol >= BoardSize {
				continue
			}
			run := true
			for k := 1; k < RunLength; k++ {
				if b[(row+k*d[0])*BoardSize+col+k*d[1]] != seat {
					run = false
					break
				}
			}
			if run {
				return Outcome{Finished: true, Winner: seat}
			}
		}
	}
	for i := 0; i < BoardCells; i++ {
		if b[i] == SeatNone {
			return Outcome{}
		}
	}
	return Outcome{Finished: true, Draw: true}
}
