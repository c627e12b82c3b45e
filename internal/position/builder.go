// Package position turns a board-editor selection into a starting FEN.
package position

import (
	"fmt"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-arena/internal/domain"
)

// StandardFEN is the initial position.
const StandardFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// defaultFields is appended to every built placement: white to move, full
// castling rights, no en-passant target, counters zeroed.
const defaultFields = " w KQkq - 0 1"

const empty byte = 0

var (
	ranks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

// Cell is one editor square. Piece is a FEN piece letter or 0 for empty.
type Cell struct {
	Piece  byte
	Locked bool
}

// Selection maps every square to its cell.
type Selection [64]Cell

// DefaultSelection is the full initial set with both kings locked.
func DefaultSelection() Selection {
	var sel Selection
	back := "rnbqkbnr"
	for i, f := range files {
		sel[nchess.NewSquare(f, nchess.Rank8)] = Cell{Piece: back[i]}
		sel[nchess.NewSquare(f, nchess.Rank7)] = Cell{Piece: 'p'}
		sel[nchess.NewSquare(f, nchess.Rank2)] = Cell{Piece: 'P'}
		sel[nchess.NewSquare(f, nchess.Rank1)] = Cell{Piece: strings.ToUpper(back)[i]}
	}
	sel[nchess.NewSquare(nchess.FileE, nchess.Rank8)].Locked = true
	sel[nchess.NewSquare(nchess.FileE, nchess.Rank1)].Locked = true
	return sel
}

// Remove clears a square. Locked squares are left untouched.
func (s *Selection) Remove(sq nchess.Square) error {
	if sq < 0 || int(sq) >= len(s) {
		return &domain.InvalidPositionError{Reason: fmt.Sprintf("square %d out of range", sq)}
	}
	if s[sq].Locked {
		return &domain.InvalidPositionError{Square: sq.String(), Reason: "square is locked"}
	}
	s[sq].Piece = empty
	return nil
}

// FromRemovals starts from DefaultSelection and clears the named squares.
func FromRemovals(squares []string) (Selection, error) {
	sel := DefaultSelection()
	for _, name := range squares {
		sq, err := ParseSquare(name)
		if err != nil {
			return sel, err
		}
		if err := sel.Remove(sq); err != nil {
			return sel, err
		}
	}
	return sel, nil
}

// ParseSquare reads algebraic coordinates such as "e4".
func ParseSquare(name string) (nchess.Square, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) != 2 || name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		return nchess.NoSquare, &domain.InvalidPositionError{Square: name, Reason: "not a square"}
	}
	return nchess.NewSquare(nchess.File(name[0]-'a'), nchess.Rank(name[1]-'1')), nil
}

// Build emits ranks 8 to 1, files a to h, run-length encoding empty squares.
func Build(sel Selection) (string, error) {
	var b strings.Builder
	for ri, r := range ranks {
		if ri > 0 {
			b.WriteByte('/')
		}
		run := 0
		for _, f := range files {
			sq := nchess.NewSquare(f, r)
			cell := sel[sq]
			if cell.Piece == empty {
				if cell.Locked {
					return "", &domain.InvalidPositionError{Square: sq.String(), Reason: "locked square marked empty"}
				}
				run++
				continue
			}
			if !strings.ContainsRune("PNBRQKpnbrqk", rune(cell.Piece)) {
				return "", &domain.InvalidPositionError{Square: sq.String(), Reason: fmt.Sprintf("unknown piece %q", cell.Piece)}
			}
			if run > 0 {
				b.WriteString(strconv.Itoa(run))
				run = 0
			}
			b.WriteByte(cell.Piece)
		}
		if run > 0 {
			b.WriteString(strconv.Itoa(run))
		}
	}
	b.WriteString(defaultFields)
	return b.String(), nil
}
