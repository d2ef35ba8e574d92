package torrent_test

import (
	"context"
	"crypto/sha1"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	bencode "github.com/jackpal/bencode-go"

	"github.com/fieryfurry/qtm2/internal/torrent"
)

func TestCreateDeterministicInfoHash(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content", "a.bin"), randomBytes(1, 50000))
	writeFile(t, filepath.Join(root, "content", "b.bin"), randomBytes(2, 120000))

	opts := torrent.CreateOptions{
		Path:     filepath.Join(root, "content"),
		Announce: []string{"http://tracker.example/announce"},
		Private:  true,
	}

	opts.OutputPath = filepath.Join(root, "first.torrent")
	first, err := torrent.Create(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	opts.OutputPath = filepath.Join(root, "second.torrent")
	second, err := torrent.Create(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	// Creation dates differ between runs; the content identity must not.
	if first.InfoHash != second.InfoHash {
		t.Errorf("info-hash not deterministic: %s vs %s", first.HexHash(), second.HexHash())
	}
}

func TestCreateSingleFile32MiB(t *testing.T) {
	const mib = 1 << 20
	root := t.TempDir()
	path := filepath.Join(root, "content.bin")
	writeFile(t, path, randomBytes(9, 32*mib))

	summary, err := torrent.Create(context.Background(), torrent.CreateOptions{
		Path:        path,
		Announce:    []string{"http://tracker.example/announce"},
		PieceLength: mib,
	})
	if err != nil {
		t.Fatal(err)
	}
	if summary.PieceCount != 32 {
		t.Errorf("expected 32 pieces, got %d", summary.PieceCount)
	}
	if summary.TotalLength != 32*mib {
		t.Errorf("expected total length %d, got %d", 32*mib, summary.TotalLength)
	}
	if summary.FileCount != 1 {
		t.Errorf("expected 1 file, got %d", summary.FileCount)
	}
	if summary.OutputPath != path+".torrent" {
		t.Errorf("unexpected default output path %s", summary.OutputPath)
	}

	f, err := os.Open(summary.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := bencode.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	doc, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded metafile is %T, not a dict", decoded)
	}
	info, ok := doc["info"].(map[string]any)
	if !ok {
		t.Fatalf("info is %T, not a dict", doc["info"])
	}
	pieces, ok := info["pieces"].(string)
	if !ok {
		t.Fatalf("pieces is %T, not a string", info["pieces"])
	}
	if len(pieces) != 32*sha1.Size {
		t.Errorf("expected pieces string of %d bytes, got %d", 32*sha1.Size, len(pieces))
	}
	if name := info["name"]; name != "content.bin" {
		t.Errorf("expected name content.bin, got %v", name)
	}
	if _, hasFiles := info["files"]; hasFiles {
		t.Error("single-file torrent must not carry a files list")
	}
}

func TestCreateDirectoryMetafile(t *testing.T) {
	root := t.TempDir()
	content := filepath.Join(root, "album")
	writeFile(t, filepath.Join(content, "01.flac"), randomBytes(11, 30000))
	writeFile(t, filepath.Join(content, "02.flac"), randomBytes(12, 40000))

	out := filepath.Join(root, "album.torrent")
	summary, err := torrent.Create(context.Background(), torrent.CreateOptions{
		Path:       content,
		OutputPath: out,
		Announce:   []string{"http://tracker.example/announce"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if summary.FileCount != 2 {
		t.Errorf("expected 2 files, got %d", summary.FileCount)
	}
	if summary.Name != "album" {
		t.Errorf("expected name album, got %s", summary.Name)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := bencode.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	info := decoded.(map[string]any)["info"].(map[string]any)
	files, ok := info["files"].([]any)
	if !ok || len(files) != 2 {
		t.Fatalf("expected 2 file entries, got %v", info["files"])
	}
	if _, hasLength := info["length"]; hasLength {
		t.Error("multi-file torrent must not carry a top-level length")
	}
}

func TestCreateEmptyDirectory(t *testing.T) {
	_, err := torrent.Create(context.Background(), torrent.CreateOptions{Path: t.TempDir()})
	if !errors.Is(err, torrent.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestCreateCancelledLeavesNoArtifacts(t *testing.T) {
	root := t.TempDir()
	content := filepath.Join(root, "content")
	writeFile(t, filepath.Join(content, "big.bin"), randomBytes(13, 64*torrent.MinPieceLength))

	out := filepath.Join(root, "out", "content.torrent")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := torrent.Create(ctx, torrent.CreateOptions{
		Path:       content,
		OutputPath: out,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Error("output file must not exist after a cancelled run")
	}
	leftovers, err := os.ReadDir(filepath.Dir(out))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range leftovers {
		t.Errorf("unexpected leftover file after abort: %s", e.Name())
	}
}

func TestWriteMetafileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.torrent")

	if err := torrent.WriteMetafile(target, []byte("d4:test4:datae")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "d4:test4:datae" {
		t.Errorf("unexpected file contents %q", data)
	}

	// Only the target may remain; the temp file must be gone.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".qtm2-") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestWriteMetafileUnwritableTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "missing", "out.torrent")
	if err := torrent.WriteMetafile(target, []byte("x")); err == nil {
		t.Error("expected an error for an unwritable target directory")
	}
}
