// Package exchange moves document snapshots in and out of sigcore: JSON and
// msgpack codecs, a CSV rendering of the workbook and blob export.
package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"sigcore/pkg/domain"
)

// Format names a snapshot encoding.
type Format string

// Snapshot encodings.
const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat resolves a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json", "":
		return FormatJSON, nil
	case "msgpack", "mpk", "mp":
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unknown snapshot format %q", name)
}

// Ext returns the file extension used for the format.
func (f Format) Ext() string {
	if f == FormatMsgpack {
		return ".msgpack"
	}
	return ".json"
}

// ContentType returns the media type used when storing the format.
func (f Format) ContentType() string {
	if f == FormatMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// FormatForPath picks a format from a file extension, falling back to the
// leading byte of data: JSON snapshots always open with '{'.
func FormatForPath(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".msgpack", ".mpk", ".mp":
		return FormatMsgpack
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatMsgpack
}

// Encode writes s to w. Both encodings use the snapshot's json field names.
func Encode(w io.Writer, s domain.Snapshot, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		enc.UseCompactInts(true)
		return enc.Encode(s)
	}
	return fmt.Errorf("unknown snapshot format %q", f)
}

// Decode reads a snapshot. Unknown fields are rejected so that a file of the
// wrong shape fails loudly instead of loading as an empty document.
func Decode(r io.Reader, f Format) (domain.Snapshot, error) {
	var s domain.Snapshot
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return domain.Snapshot{}, fmt.Errorf("decode json snapshot: %w", err)
		}
	case FormatMsgpack:
		dec := msgpack.NewDecoder(r)
		dec.SetCustomStructTag("json")
		dec.DisallowUnknownFields(true)
		if err := dec.Decode(&s); err != nil {
			return domain.Snapshot{}, fmt.Errorf("decode msgpack snapshot: %w", err)
		}
	default:
		return domain.Snapshot{}, fmt.Errorf("unknown snapshot format %q", f)
	}
	normalizeTimes(&s)
	return s, nil
}

// Marshal encodes s into memory.
func Marshal(s domain.Snapshot, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a snapshot held in memory.
func Unmarshal(data []byte, f Format) (domain.Snapshot, error) {
	return Decode(bytes.NewReader(data), f)
}

// ReadFile loads a snapshot, picking the format with FormatForPath.
func ReadFile(path string) (domain.Snapshot, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return Unmarshal(data, FormatForPath(path, data))
}

// WriteFile stores s at path in the format implied by its extension.
func WriteFile(path string, s domain.Snapshot) error {
	data, err := Marshal(s, FormatForPath(path, []byte("{")))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// msgpack decodes timestamps in the local zone.
func normalizeTimes(s *domain.Snapshot) {
	for i := range s.Entities {
		s.Entities[i].CreatedAt = s.Entities[i].CreatedAt.UTC()
		s.Entities[i].UpdatedAt = s.Entities[i].UpdatedAt.UTC()
	}
}
