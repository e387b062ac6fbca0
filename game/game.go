package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Symbol is a player role on the board. The zero value is an empty cell.
type Symbol string

const (
	PlayerX Symbol = "X"
	PlayerO Symbol = "O"
	None    Symbol = ""
)

// Cells is the number of cells on a 3x3 board.
const Cells = 9

// Board is the 3x3 grid in row-major order.
type Board [Cells]Symbol

// Result is what Evaluate reports for a board.
type Result int

const (
	Ongoing Result = iota
	Win
	Draw
)

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

// Outcome pairs a Result with the winning symbol (None unless Result is Win).
type Outcome struct {
	Result Result
	Winner Symbol
}

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Valid reports whether s is X or O.
func (s Symbol) Valid() bool {
	return s == PlayerX || s == PlayerO
}

// MarshalJSON encodes an empty symbol as null.
func (s Symbol) MarshalJSON() ([]byte, error) {
	if s == None {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *Symbol) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = None
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch Symbol(raw) {
	case PlayerX, PlayerO, None:
		*s = Symbol(raw)
		return nil
	}
	return fmt.Errorf("invalid symbol %q", raw)
}

// Evaluate checks the rows, columns and diagonals for three identical symbols.
func Evaluate(b Board) Outcome {
	for _, line := range lines {
		s := b[line[0]]
		if s != None && s == b[line[1]] && s == b[line[2]] {
			return Outcome{Result: Win, Winner: s}
		}
	}
	if b.Full() {
		return Outcome{Result: Draw}
	}
	return Outcome{Result: Ongoing}
}

// NextTurn returns the other symbol.
func NextTurn(s Symbol) Symbol {
	if s == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// Full reports whether no cell is empty.
func (b Board) Full() bool {
	for _, cell := range b {
		if cell == None {
			return false
		}
	}
	return true
}

// Filled counts the occupied cells.
func (b Board) Filled() int {
	n := 0
	for _, cell := range b {
		if cell != None {
			n++
		}
	}
	return n
}

// String renders the board as three rows, "-" for empty cells.
func (b Board) String() string {
	var sb strings.Builder
	for i, cell := range b {
		if cell == None {
			sb.WriteString("-")
		} else {
			sb.WriteString(string(cell))
		}
		switch {
		case i == Cells-1:
		case i%3 == 2:
			sb.WriteString("\n")
		default:
			sb.WriteString(" ")
		}
	}
	return sb.String()
}
