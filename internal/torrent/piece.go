package torrent

import "math/bits"

const (
	// MinPieceLength and MaxPieceLength bound the size-class table. Both are
	// powers of two; every selected piece length is too.
	MinPieceLength = 16 << 10
	MaxPieceLength = 16 << 20

	// targetPieces is the piece count the planner aims for. Dividing by it
	// and rounding the result down to a power of two lands the final count
	// in roughly the 1024-2047 band, except at the clamped extremes.
	targetPieces = 1024
)

// PieceLayout describes how the virtual concatenated stream is cut into
// pieces. Derived once per run and immutable afterwards.
type PieceLayout struct {
	PieceLength int64
	PieceCount  int
}

// PlanPieces selects a piece length for the given total content length.
// The table is fixed: prevPow2(total/1024 + 1), clamped to
// [MinPieceLength, MaxPieceLength]. Keep it stable across versions, otherwise
// re-running over identical content would change the info-hash.
func PlanPieces(totalLength int64) (PieceLayout, error) {
	if totalLength <= 0 {
		return PieceLayout{}, ErrInvalidSize
	}
	pieceLength := prevPow2(totalLength/targetPieces + 1)
	if pieceLength < MinPieceLength {
		pieceLength = MinPieceLength
	}
	if pieceLength > MaxPieceLength {
		pieceLength = MaxPieceLength
	}
	return layoutFor(totalLength, pieceLength), nil
}

// PlanPiecesWith builds a layout for a caller-chosen piece length, validating
// it against the same table bounds the planner uses.
func PlanPiecesWith(totalLength, pieceLength int64) (PieceLayout, error) {
	if totalLength <= 0 {
		return PieceLayout{}, ErrInvalidSize
	}
	if pieceLength < MinPieceLength || pieceLength > MaxPieceLength || pieceLength&(pieceLength-1) != 0 {
		return PieceLayout{}, ErrBadPieceLength
	}
	return layoutFor(totalLength, pieceLength), nil
}

func layoutFor(totalLength, pieceLength int64) PieceLayout {
	count := (totalLength + pieceLength - 1) / pieceLength
	return PieceLayout{PieceLength: pieceLength, PieceCount: int(count)}
}

// prevPow2 returns the largest power of two <= n (n must be positive).
func prevPow2(n int64) int64 {
	return 1 << (bits.Len64(uint64(n)) - 1)
}
