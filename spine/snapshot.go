package spine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"
)

// snapshotDoc is the diagnostic state WriteSnapshot serializes: the three
// frontiers, the pending-queue depth, and the per-layer stats. Large
// traces accumulate many layers, so the document is LZ4-compressed on the
// way out.
type snapshotDoc[T any] struct {
	Advance     []T         `yaml:"advance"`
	Distinguish []T         `yaml:"distinguish"`
	Upper       []T         `yaml:"upper"`
	Pending     int         `yaml:"pending"`
	Layers      []LayerStat `yaml:"layers"`
}

// WriteSnapshot serializes the spine's diagnostic state (frontiers,
// pending depth, layer stats) as YAML, LZ4-compressed with a 4-byte
// little-endian uncompressed-length prefix. The snapshot captures merge
// progress only, never batch contents; it exists for offline inspection
// of large traces, not for persistence.
func (s *Spine[D, T, R]) WriteSnapshot(w io.Writer) error {
	doc := snapshotDoc[T]{
		Advance:     s.advanceFrontier,
		Distinguish: s.distinguishFrontier,
		Upper:       s.upper,
		Pending:     len(s.pending),
		Layers:      s.Describe(),
	}

	raw, marshalErr := yaml.Marshal(doc)
	if marshalErr != nil {
		return fmt.Errorf("marshal snapshot: %w", marshalErr)
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))

	written, compressErr := lz4.CompressBlock(raw, compressed, nil)
	if compressErr != nil {
		return fmt.Errorf("compress snapshot: %w", compressErr)
	}

	if written == 0 {
		// Incompressible input; CompressBlock signals this with a zero
		// length rather than an error. Store raw with a zero header.
		if err := binary.Write(w, binary.LittleEndian, uint32(0)); err != nil {
			return fmt.Errorf("write snapshot header: %w", err)
		}

		if _, err := w.Write(raw); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}

		return nil
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(raw))); err != nil { //nolint:gosec // yaml dumps are far below 4 GiB
		return fmt.Errorf("write snapshot header: %w", err)
	}

	if _, err := w.Write(compressed[:written]); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return nil
}

// ReadSnapshotYAML reverses WriteSnapshot, returning the uncompressed
// YAML document.
func ReadSnapshotYAML(r io.Reader) ([]byte, error) {
	var header uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}

	payload, readErr := io.ReadAll(r)
	if readErr != nil {
		return nil, fmt.Errorf("read snapshot: %w", readErr)
	}

	if header == 0 {
		return payload, nil
	}

	raw := make([]byte, header)

	n, err := lz4.UncompressBlock(payload, raw)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	return raw[:n], nil
}

// SnapshotBytes returns the compressed snapshot as a byte slice.
func (s *Spine[D, T, R]) SnapshotBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := s.WriteSnapshot(buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
