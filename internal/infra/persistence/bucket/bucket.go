// Package bucket splits a document snapshot into the named JSON payloads the
// SQL stores keep per document and reassembles them on load.
package bucket

import (
	"encoding/json"
	"fmt"

	"sigcore/pkg/domain"
)

// Bucket names.
const (
	Meta        = "meta"
	Entities    = "entities"
	Assignments = "assignments"
	Fields      = "fields"
)

// Names lists every bucket in write order.
var Names = []string{Meta, Entities, Assignments, Fields}

type meta struct {
	DocumentID string `json:"document_id"`
	NextSeq    int64  `json:"next_seq"`
}

// Payload is one encoded bucket.
type Payload struct {
	Name string
	Data []byte
}

// Encode renders s as one payload per bucket, in Names order.
func Encode(s domain.Snapshot) ([]Payload, error) {
	out := make([]Payload, 0, len(Names))
	for _, name := range Names {
		var (
			data []byte
			err  error
		)
		switch name {
		case Meta:
			data, err = json.Marshal(meta{DocumentID: s.DocumentID, NextSeq: s.NextSeq})
		case Entities:
			data, err = json.Marshal(nonNil(s.Entities))
		case Assignments:
			data, err = json.Marshal(nonNil(s.Assignments))
		case Fields:
			data, err = json.Marshal(nonNil(s.Fields))
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out = append(out, Payload{Name: name, Data: data})
	}
	return out, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Decoder accumulates payloads read back from a store.
type Decoder struct {
	snapshot domain.Snapshot
	seen     bool
}

// Add decodes one bucket. Unknown buckets and empty payloads are ignored.
func (d *Decoder) Add(name string, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var target any
	switch name {
	case Meta:
		var m meta
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		d.snapshot.DocumentID, d.snapshot.NextSeq = m.DocumentID, m.NextSeq
		d.seen = true
		return nil
	case Entities:
		target = &d.snapshot.Entities
	case Assignments:
		target = &d.snapshot.Assignments
	case Fields:
		target = &d.snapshot.Fields
	default:
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	d.seen = true
	return nil
}

// Snapshot returns the decoded snapshot and whether any bucket was found.
func (d *Decoder) Snapshot() (domain.Snapshot, bool) {
	return d.snapshot, d.seen
}
