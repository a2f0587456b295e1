package memory

import "sigcore/pkg/domain"

type memoryState struct {
	documentID  string
	nextSeq     int64
	entities    map[string]domain.Entity
	assignments map[string]domain.Assignment
	fields      map[domain.FieldRef]domain.Value
}

func newMemoryState(documentID string) memoryState {
	return memoryState{
		documentID:  documentID,
		entities:    make(map[string]domain.Entity),
		assignments: make(map[string]domain.Assignment),
		fields:      make(map[domain.FieldRef]domain.Value),
	}
}

func (s memoryState) clone() memoryState {
	cp := newMemoryState(s.documentID)
	cp.nextSeq = s.nextSeq
	for id, e := range s.entities {
		cp.entities[id] = e.Clone()
	}
	for key, a := range s.assignments {
		cp.assignments[key] = a
	}
	for ref, v := range s.fields {
		cp.fields[ref] = v.Clone()
	}
	return cp
}

// snapshot materialises the state in listing order.
func (s memoryState) snapshot(layout domain.Layout) domain.Snapshot {
	out := domain.Snapshot{
		DocumentID:  s.documentID,
		NextSeq:     s.nextSeq,
		Entities:    make([]domain.Entity, 0, len(s.entities)),
		Assignments: make([]domain.Assignment, 0, len(s.assignments)),
		Fields:      make([]domain.FieldEntry, 0, len(s.fields)),
	}
	for _, e := range s.entities {
		out.Entities = append(out.Entities, e.Clone())
	}
	domain.SortEntities(out.Entities)
	for _, a := range s.assignments {
		out.Assignments = append(out.Assignments, a)
	}
	domain.SortAssignments(out.Assignments)
	for _, ref := range layout.Refs() {
		if v, ok := s.fields[ref]; ok {
			out.Fields = append(out.Fields, domain.FieldEntry{Tab: ref.Tab, Field: ref.Field, Value: v.Clone()})
		}
	}
	return out
}

// memoryStateFromSnapshot rebuilds state from an already checked snapshot.
// Entities without a sequence number are numbered after the highest one in
// the order they appear.
func memoryStateFromSnapshot(s domain.Snapshot, fallbackID string) memoryState {
	id := s.DocumentID
	if id == "" {
		id = fallbackID
	}
	state := newMemoryState(id)
	state.nextSeq = s.NextSeq
	for _, e := range s.Entities {
		if e.Seq > state.nextSeq {
			state.nextSeq = e.Seq
		}
	}
	for _, e := range s.Entities {
		cp := e.Clone()
		if cp.Seq == 0 {
			state.nextSeq++
			cp.Seq = state.nextSeq
		}
		state.entities[cp.ID] = cp
	}
	for _, a := range s.Assignments {
		state.assignments[a.Key()] = a
	}
	for _, entry := range s.Fields {
		if len(entry.Value) == 0 {
			continue
		}
		state.fields[domain.Ref(entry.Tab, entry.Field)] = entry.Value.Clone()
	}
	return state
}

// stateView exposes a read-only RuleView over a state. Lists are returned in
// listing order so rule output is deterministic.
type stateView struct {
	layout domain.Layout
	state  *memoryState
}

func newStateView(layout domain.Layout, state *memoryState) stateView {
	return stateView{layout: layout, state: state}
}

func (v stateView) Layout() domain.Layout { return v.layout }

func (v stateView) FindEntity(id string) (domain.Entity, bool) {
	e, ok := v.state.entities[id]
	if !ok {
		return domain.Entity{}, false
	}
	return e.Clone(), true
}

func (v stateView) ListEntities(kind domain.EntityKind) []domain.Entity {
	out := make([]domain.Entity, 0)
	for _, e := range v.state.entities {
		if e.Kind == kind {
			out = append(out, e.Clone())
		}
	}
	domain.SortEntities(out)
	return out
}

func (v stateView) ListChildren(parentID string) []domain.Entity {
	out := make([]domain.Entity, 0)
	if parentID == "" {
		return out
	}
	for _, e := range v.state.entities {
		if e.Parent() == parentID {
			out = append(out, e.Clone())
		}
	}
	domain.SortEntities(out)
	return out
}

func (v stateView) ListAssignments(kind domain.EntityKind) []domain.Assignment {
	out := make([]domain.Assignment, 0)
	for _, a := range v.state.assignments {
		if a.TargetKind == kind {
			out = append(out, a)
		}
	}
	domain.SortAssignments(out)
	return out
}

// FieldValue returns entered values as stored and computes derived ones:
// entity sources list entity ids, matrix sources list assignment keys.
func (v stateView) FieldValue(ref domain.FieldRef) domain.Value {
	field, ok := v.layout.Field(ref)
	if !ok {
		return nil
	}
	switch field.Source.Kind {
	case domain.SourceEntity:
		entities := v.ListEntities(field.Source.Entity)
		out := make(domain.Value, 0, len(entities))
		for _, e := range entities {
			out = append(out, e.ID)
		}
		return out
	case domain.SourceMatrix:
		assignments := v.ListAssignments(field.Source.Entity)
		out := make(domain.Value, 0, len(assignments))
		for _, a := range assignments {
			out = append(out, a.Key())
		}
		return out
	}
	return v.state.fields[ref].Clone()
}
