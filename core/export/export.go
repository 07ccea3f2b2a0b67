// Package export writes fused verse records to portable snapshot files:
// JSON, XZ-compressed by default, gzip as the faster stdlib alternative.
// Reading auto-detects the compression from magic bytes.
package export

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/authenticwalk/context-grounded-bible/core/align"
	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/merge"
	"github.com/authenticwalk/context-grounded-bible/core/pipeline"
)

// FormatVersion is bumped on incompatible snapshot layout changes.
const FormatVersion = 1

// CompressionType specifies the compression algorithm for snapshot files.
type CompressionType string

const (
	// CompressionXZ uses XZ/LZMA2 compression (default, best ratio).
	CompressionXZ CompressionType = "xz"
	// CompressionGzip uses gzip compression (stdlib, faster).
	CompressionGzip CompressionType = "gzip"
	// CompressionNone writes plain JSON.
	CompressionNone CompressionType = "none"
)

// Verse is one verse's fused output in a snapshot.
type Verse struct {
	Ref       string                `json:"ref"`
	Records   []*merge.MergedRecord `json:"records"`
	Unaligned []align.UnalignedSpan `json:"unaligned,omitempty"`
}

// Snapshot is a self-describing export of fused records.
type Snapshot struct {
	FormatVersion int       `json:"format_version"`
	CreatedAt     time.Time `json:"created_at"`
	Verses        []Verse   `json:"verses"`
}

// FromResults builds a snapshot from pipeline output, skipping failed
// verses.
func FromResults(results []*pipeline.VerseResult) *Snapshot {
	s := &Snapshot{
		FormatVersion: FormatVersion,
		CreatedAt:     time.Now().UTC(),
	}
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		s.Verses = append(s.Verses, Verse{
			Ref:       res.Ref.String(),
			Records:   res.Records,
			Unaligned: res.Unaligned,
		})
	}
	return s
}

// Write writes the snapshot to path with the given compression.
func Write(path string, s *Snapshot, compression CompressionType) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create snapshot file")
	}
	defer file.Close()

	var w io.Writer = file
	var closeCompressor func() error
	switch compression {
	case CompressionXZ:
		xw, err := xz.NewWriter(file)
		if err != nil {
			return errors.Wrap(err, "create xz writer")
		}
		w, closeCompressor = xw, xw.Close
	case CompressionGzip:
		gw := gzip.NewWriter(file)
		w, closeCompressor = gw, gw.Close
	case CompressionNone, "":
	default:
		return errors.NewValidation("compression", "unsupported type "+string(compression))
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if closeCompressor != nil {
		if err := closeCompressor(); err != nil {
			return errors.Wrap(err, "finish compression")
		}
	}
	return file.Close()
}

// DetectCompression sniffs a snapshot file's compression from its magic
// bytes.
func DetectCompression(path string) (CompressionType, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open snapshot")
	}
	defer file.Close()

	magic := make([]byte, 6)
	n, err := io.ReadFull(file, magic)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", errors.Wrap(err, "read magic bytes")
	}
	magic = magic[:n]

	// gzip magic (1f 8b)
	if len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		return CompressionGzip, nil
	}
	// XZ magic (fd 37 7a 58 5a 00)
	if len(magic) >= 6 && magic[0] == 0xfd && magic[1] == 0x37 && magic[2] == 0x7a &&
		magic[3] == 0x58 && magic[4] == 0x5a && magic[5] == 0x00 {
		return CompressionXZ, nil
	}
	return CompressionNone, nil
}

// Read loads a snapshot, auto-detecting its compression.
func Read(path string) (*Snapshot, error) {
	compression, err := DetectCompression(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot")
	}
	defer file.Close()

	var r io.Reader = file
	switch compression {
	case CompressionXZ:
		xr, err := xz.NewReader(file)
		if err != nil {
			return nil, errors.Wrap(err, "create xz reader")
		}
		r = xr
	case CompressionGzip:
		gr, err := gzip.NewReader(file)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		defer gr.Close()
		r = gr
	}

	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	if s.FormatVersion != FormatVersion {
		return nil, errors.NewValidation("format_version",
			"unsupported snapshot version")
	}
	return &s, nil
}
