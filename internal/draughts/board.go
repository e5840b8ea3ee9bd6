package draughts

import (
	"encoding/json"
	"fmt"
)

const BoardSize = 8

// Color - side of a piece, white or black.
type Color string

const (
	ColorNone  Color = ""
	ColorWhite Color = "white"
	ColorBlack Color = "black"
)

// Rank - man or king. A man becomes a king when it ends a move on the
// opponent's back rank.
type Rank string

const (
	RankMan  Rank = "man"
	RankKing Rank = "king"
)

// Piece - occupant of a board cell. The zero value is an empty cell.
type Piece struct {
	Color Color
	Rank  Rank
}

func (that Piece) IsEmpty() bool {
	return that.Color == ColorNone
}

func (that Piece) IsKing() bool {
	return that.Rank == RankKing
}

// Square - board coordinate, row 0 at the top (black's side), row 7 at
// the bottom (white's side).
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (that Square) InBounds() bool {
	return that.Row >= 0 && that.Row < BoardSize && that.Col >= 0 && that.Col < BoardSize
}

// IsPlayable - only dark squares, where row+col is odd, ever hold pieces.
func (that Square) IsPlayable() bool {
	return (that.Row+that.Col)%2 == 1
}

// Board - the 8x8 playing surface. A value type: assigning a Board copies
// it, which the capture search relies on.
type Board [BoardSize][BoardSize]Piece

// NewBoard - returns the starting position: 12 black men on rows 0-2,
// 12 white men on rows 5-7, dark squares only.
func NewBoard() Board {
	var board Board

	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if (row+col)%2 != 1 {
				continue
			}

			switch {
			case row < 3:
				board[row][col] = Piece{Color: ColorBlack, Rank: RankMan}
			case row > 4:
				board[row][col] = Piece{Color: ColorWhite, Rank: RankMan}
			}
		}
	}

	return board
}

func (that Board) At(sq Square) Piece {
	return that[sq.Row][sq.Col]
}

// CountPieces - number of pieces of the given color still on the board.
func (that Board) CountPieces(color Color) int {
	count := 0
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if that[row][col].Color == color {
				count++
			}
		}
	}

	return count
}

// Opponent - the other side.
func Opponent(color Color) Color {
	if color == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// PromotionRow - the opponent's back rank for the given color. White moves
// toward row 0, black toward row 7.
func PromotionRow(color Color) int {
	if color == ColorWhite {
		return 0
	}
	return BoardSize - 1
}

// forwardDir - the row delta a man of this color slides in.
func forwardDir(color Color) int {
	if color == ColorWhite {
		return -1
	}
	return 1
}

// cell codes used on the wire and in storage.
const (
	cellEmpty     = ""
	cellWhiteMan  = "w"
	cellWhiteKing = "W"
	cellBlackMan  = "b"
	cellBlackKing = "B"
)

func (that Piece) code() string {
	switch {
	case that.IsEmpty():
		return cellEmpty
	case that.Color == ColorWhite && that.IsKing():
		return cellWhiteKing
	case that.Color == ColorWhite:
		return cellWhiteMan
	case that.IsKing():
		return cellBlackKing
	default:
		return cellBlackMan
	}
}

func pieceFromCode(code string) (Piece, error) {
	switch code {
	case cellEmpty:
		return Piece{}, nil
	case cellWhiteMan:
		return Piece{Color: ColorWhite, Rank: RankMan}, nil
	case cellWhiteKing:
		return Piece{Color: ColorWhite, Rank: RankKing}, nil
	case cellBlackMan:
		return Piece{Color: ColorBlack, Rank: RankMan}, nil
	case cellBlackKing:
		return Piece{Color: ColorBlack, Rank: RankKing}, nil
	default:
		return Piece{}, fmt.Errorf("unknown cell code %q", code)
	}
}

// MarshalJSON - serializes the board as an 8x8 grid of cell codes:
// "" empty, "w"/"W" white man/king, "b"/"B" black man/king.
func (that Board) MarshalJSON() ([]byte, error) {
	var grid [BoardSize][BoardSize]string
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			grid[row][col] = that[row][col].code()
		}
	}

	return json.Marshal(grid)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var grid [BoardSize][BoardSize]string
	if err := json.Unmarshal(data, &grid); err != nil {
		return fmt.Errorf("failed to unmarshal board grid: %w", err)
	}

	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			piece, err := pieceFromCode(grid[row][col])
			if err != nil {
				return fmt.Errorf("cell (%d,%d): %w", row, col, err)
			}
			that[row][col] = piece
		}
	}

	return nil
}
