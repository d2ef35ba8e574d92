package torrent

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const defaultCreatedBy = "Quick Torrent Maker 2"

// CreateOptions carries everything the pipeline needs for one authoring run.
// Announce URLs and the private flag come from the caller; the engine never
// computes them.
type CreateOptions struct {
	// Path is the content root: a single file or a directory tree.
	Path string
	// OutputPath is where the .torrent lands. Empty means Path + ".torrent".
	OutputPath string

	Announce []string
	Private  bool
	Comment  string
	Source   string
	// CreatedBy overrides the default client string.
	CreatedBy string

	// PieceLength forces a piece size instead of the planner's choice. Must
	// be a power of two within [MinPieceLength, MaxPieceLength].
	PieceLength int64

	// Progress, when non-nil, receives piece-completion updates during
	// hashing. Owned by the caller; may be invoked from worker goroutines.
	Progress ProgressFunc
}

// Summary is what a finished run reports back to the caller.
type Summary struct {
	InfoHash    [sha1.Size]byte
	Name        string
	TotalLength int64
	PieceLength int64
	PieceCount  int
	FileCount   int
	OutputPath  string
}

// HexHash returns the info-hash in its hex display form.
func (s *Summary) HexHash() string {
	return hex.EncodeToString(s.InfoHash[:])
}

// Create runs the full authoring pipeline: walk, plan, hash, encode, write.
// It is all-or-nothing; the first failure aborts the run and no partial
// .torrent is ever left at the output path. A cancelled ctx surfaces as
// context.Canceled so callers can tell an abort from a fault.
func Create(ctx context.Context, opts CreateOptions) (*Summary, error) {
	dir, entries, err := Walk(opts.Path)
	if err != nil {
		return nil, err
	}
	total := TotalLength(entries)

	var layout PieceLayout
	if opts.PieceLength > 0 {
		layout, err = PlanPiecesWith(total, opts.PieceLength)
	} else {
		layout, err = PlanPieces(total)
	}
	if err != nil {
		return nil, err
	}

	digests, err := HashPieces(ctx, dir, entries, layout, opts.Progress)
	if err != nil {
		return nil, err
	}
	pieces := make([]byte, 0, len(digests)*sha1.Size)
	for _, d := range digests {
		pieces = append(pieces, d[:]...)
	}

	root, err := os.Stat(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", opts.Path, err)
	}
	createdBy := opts.CreatedBy
	if createdBy == "" {
		createdBy = defaultCreatedBy
	}
	meta := &Metafile{
		Announce:     opts.Announce,
		CreationDate: time.Now().Unix(),
		CreatedBy:    createdBy,
		Comment:      opts.Comment,
		Encoding:     "UTF-8",
		Info: Info{
			Name:        filepath.Base(filepath.Clean(opts.Path)),
			PieceLength: layout.PieceLength,
			Pieces:      pieces,
			Private:     opts.Private,
			Source:      opts.Source,
		},
	}
	if root.IsDir() {
		meta.Info.Files = entries
	} else {
		meta.Info.Length = total
	}

	raw, err := meta.Encode()
	if err != nil {
		return nil, err
	}
	infoHash, err := meta.InfoHash()
	if err != nil {
		return nil, err
	}

	output := opts.OutputPath
	if output == "" {
		output = filepath.Clean(opts.Path) + ".torrent"
	}
	if err := WriteMetafile(output, raw); err != nil {
		return nil, err
	}

	return &Summary{
		InfoHash:    infoHash,
		Name:        meta.Info.Name,
		TotalLength: total,
		PieceLength: layout.PieceLength,
		PieceCount:  layout.PieceCount,
		FileCount:   len(entries),
		OutputPath:  output,
	}, nil
}
