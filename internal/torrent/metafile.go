package torrent

import (
	"bytes"
	"crypto/sha1"
	"fmt"

	bencode "github.com/jackpal/bencode-go"
)

// Info is the info dictionary of a metafile. Single-file mode sets Length and
// leaves Files empty; multi-file mode is the reverse. The encoded form of this
// struct, in isolation, is what the info-hash covers.
type Info struct {
	Name        string
	PieceLength int64
	Pieces      []byte
	Length      int64
	Files       []FileEntry
	Private     bool
	Source      string
}

// Metafile is the full .torrent document. Announce holds one or more tracker
// URLs; with more than one, an announce-list is emitted alongside the primary
// announce key.
type Metafile struct {
	Announce     []string
	CreationDate int64
	CreatedBy    string
	Comment      string
	Encoding     string
	Info         Info
}

// infoDict builds the info dictionary explicitly as a map so that optional
// keys (files vs length, private, source) are only present when they apply.
// bencode-go writes map keys in sorted order, which keeps the encoding
// canonical regardless of how this map was populated.
func (m *Metafile) infoDict() map[string]any {
	info := map[string]any{
		"name":         m.Info.Name,
		"piece length": m.Info.PieceLength,
		"pieces":       string(m.Info.Pieces),
	}
	if len(m.Info.Files) > 0 {
		files := make([]map[string]any, len(m.Info.Files))
		for i, f := range m.Info.Files {
			files[i] = map[string]any{
				"length": f.Length,
				"path":   f.Path,
			}
		}
		info["files"] = files
	} else {
		info["length"] = m.Info.Length
	}
	if m.Info.Private {
		info["private"] = int64(1)
	}
	if m.Info.Source != "" {
		info["source"] = m.Info.Source
	}
	return info
}

func (m *Metafile) validate() error {
	if len(m.Info.Files) == 0 && m.Info.Length <= 0 {
		return ErrNoFiles
	}
	if len(m.Info.Pieces)%sha1.Size != 0 {
		return fmt.Errorf("torrent: pieces length %d is not a multiple of %d", len(m.Info.Pieces), sha1.Size)
	}
	return nil
}

// Encode serializes the metafile to its canonical bencoded form.
func (m *Metafile) Encode() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	doc := map[string]any{
		"info": m.infoDict(),
	}
	if len(m.Announce) > 0 {
		doc["announce"] = m.Announce[0]
	}
	if len(m.Announce) > 1 {
		// BEP 12: one tier per URL.
		tiers := make([][]string, len(m.Announce))
		for i, u := range m.Announce {
			tiers[i] = []string{u}
		}
		doc["announce-list"] = tiers
	}
	if m.CreationDate != 0 {
		doc["creation date"] = m.CreationDate
	}
	if m.CreatedBy != "" {
		doc["created by"] = m.CreatedBy
	}
	if m.Comment != "" {
		doc["comment"] = m.Comment
	}
	if m.Encoding != "" {
		doc["encoding"] = m.Encoding
	}

	var buf bytes.Buffer
	if err := bencode.Marshal(&buf, doc); err != nil {
		return nil, fmt.Errorf("encode metafile: %w", err)
	}
	return buf.Bytes(), nil
}

// InfoHash encodes the info dictionary in isolation and returns the SHA-1 of
// those bytes. This digest is the torrent's content identity: byte-identical
// input must always produce the same value.
func (m *Metafile) InfoHash() ([sha1.Size]byte, error) {
	if err := m.validate(); err != nil {
		return [sha1.Size]byte{}, err
	}
	var buf bytes.Buffer
	if err := bencode.Marshal(&buf, m.infoDict()); err != nil {
		return [sha1.Size]byte{}, fmt.Errorf("encode info dict: %w", err)
	}
	return sha1.Sum(buf.Bytes()), nil
}
