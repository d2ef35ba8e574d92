package torrent

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
)

// PieceDigest is the SHA-1 of exactly one piece of the virtual concatenated
// stream. Index i always covers byte range
// [i*PieceLength, min((i+1)*PieceLength, total)).
type PieceDigest [sha1.Size]byte

// ProgressFunc receives fire-and-forget progress updates (pieces completed so
// far out of the total). It may be called from multiple goroutines.
type ProgressFunc func(done, total int)

// HashPieces hashes every piece of the stream formed by laying the entries
// end to end, reading across file boundaries transparently. Pieces are hashed
// by a bounded worker pool; each worker writes into its own disjoint slots of
// the result slice, so digests always come back in index order no matter how
// workers finish.
//
// The first unreadable file aborts the whole run. Cancelling ctx stops the
// pool between piece boundaries and returns ctx.Err() with no partial output.
func HashPieces(ctx context.Context, dir string, entries []FileEntry, layout PieceLayout, progress ProgressFunc) ([]PieceDigest, error) {
	h := &pieceHasher{
		dir:     dir,
		entries: entries,
		layout:  layout,
		total:   TotalLength(entries),
	}
	// Cumulative start offset of each entry within the stream.
	h.offsets = make([]int64, len(entries))
	var off int64
	for i, e := range entries {
		h.offsets[i] = off
		off += e.Length
	}

	digests := make([]PieceDigest, layout.PieceCount)

	workers := runtime.NumCPU()
	if workers > layout.PieceCount {
		workers = layout.PieceCount
	}

	jobs := make(chan int)
	stop := make(chan struct{})
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		done     atomic.Int64
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			close(stop)
		})
	}

	go func() {
		defer close(jobs)
		for i := 0; i < layout.PieceCount; i++ {
			select {
			case jobs <- i:
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				select {
				case <-ctx.Done():
					return
				case <-stop:
					return
				default:
				}
				digest, err := h.hashPiece(index)
				if err != nil {
					fail(err)
					return
				}
				digests[index] = digest
				if progress != nil {
					progress(int(done.Add(1)), layout.PieceCount)
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return digests, nil
}

type pieceHasher struct {
	dir     string
	entries []FileEntry
	offsets []int64
	layout  PieceLayout
	total   int64
}

// hashPiece reads the piece's byte range, which may span several files, and
// returns its digest. File handles are opened per piece and closed before
// returning, so an aborted run never leaks descriptors.
func (h *pieceHasher) hashPiece(index int) (PieceDigest, error) {
	start := int64(index) * h.layout.PieceLength
	end := start + h.layout.PieceLength
	if end > h.total {
		end = h.total
	}

	// First entry whose range contains start.
	fi := sort.Search(len(h.offsets), func(i int) bool {
		return h.offsets[i]+h.entries[i].Length > start
	})

	hw := sha1.New()
	pos := start
	for pos < end && fi < len(h.entries) {
		entry := h.entries[fi]
		if entry.Length == 0 {
			fi++
			continue
		}
		segOff := pos - h.offsets[fi]
		segLen := entry.Length - segOff
		if remaining := end - pos; segLen > remaining {
			segLen = remaining
		}
		if err := h.copySegment(hw, entry, segOff, segLen); err != nil {
			return PieceDigest{}, err
		}
		pos += segLen
		fi++
	}

	var digest PieceDigest
	hw.Sum(digest[:0])
	return digest, nil
}

func (h *pieceHasher) copySegment(w io.Writer, entry FileEntry, offset, length int64) error {
	path := filepath.Join(h.dir, filepath.FromSlash(entry.RelPath()))
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", path, err)
	}
	if _, err := io.CopyN(w, f, length); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
