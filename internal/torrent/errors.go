package torrent

import "errors"

var (
	// ErrEmptyInput means the walk finished without discovering a single file.
	ErrEmptyInput = errors.New("torrent: no files found under root")

	// ErrInvalidSize means a zero or negative total length reached the piece
	// planner, which indicates a broken caller rather than bad user input.
	ErrInvalidSize = errors.New("torrent: total length must be positive")

	// ErrNoFiles means a metafile was asked to encode an empty file list.
	ErrNoFiles = errors.New("torrent: metafile has no files")

	// ErrBadPieceLength rejects a manual piece length that is not a power of
	// two or falls outside the supported range.
	ErrBadPieceLength = errors.New("torrent: piece length must be a power of two between 16 KiB and 16 MiB")
)
