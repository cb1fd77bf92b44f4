// Package diff classifies every operation of a resolved specification
// against the records harvested from previously generated artifacts.
package diff

import (
	"sort"

	"github.com/mark3labs/swagger2pytest/internal/ir"
)

// Action is the classification the engine acts on for one operation.
type Action uint8

const (
	Create Action = iota
	Update
	Skip
)

func (a Action) String() string {
	switch a {
	case Create:
		return "create"
	case Update:
		return "update"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// Plan is the total, disjoint partition produced by Compute. Every spec
// operation lands in exactly one of Create, Update, or Skip; every record
// whose identity no longer exists in the spec lands in Delete.
type Plan struct {
	Create []ir.Operation
	Update []string
	Skip   []string
	Delete []ir.GenerationRecord

	actions map[string]Action
}

// Action reports the classification of a spec operation identity.
func (p *Plan) Action(id string) (Action, bool) {
	a, ok := p.actions[id]
	return a, ok
}

// Compute partitions model's operations against records. Pure function:
// no I/O, safe to call speculatively for previews and dry runs.
//
// Several records may share an identity (one artifact per kind). The
// record at the lexicographically smallest path is authoritative for
// fingerprint comparison; the rest only mark the identity as present.
func Compute(model *ir.Specification, records []ir.GenerationRecord) *Plan {
	authoritative := map[string]ir.GenerationRecord{}
	for _, rec := range records {
		cur, ok := authoritative[rec.OperationID]
		if !ok || rec.Path < cur.Path {
			authoritative[rec.OperationID] = rec
		}
	}

	plan := &Plan{actions: make(map[string]Action, len(model.Operations))}
	matched := make(map[string]bool, len(authoritative))
	for _, op := range model.Operations {
		id := op.ID()
		rec, ok := authoritative[id]
		if !ok {
			plan.Create = append(plan.Create, op)
			plan.actions[id] = Create
			continue
		}
		matched[id] = true
		if changed(op, rec) {
			plan.Update = append(plan.Update, id)
			plan.actions[id] = Update
		} else {
			plan.Skip = append(plan.Skip, id)
			plan.actions[id] = Skip
		}
	}

	for _, rec := range records {
		if !matched[rec.OperationID] {
			plan.Delete = append(plan.Delete, rec)
		}
	}
	sort.Slice(plan.Delete, func(i, j int) bool { return plan.Delete[i].Path < plan.Delete[j].Path })
	return plan
}

func changed(op ir.Operation, rec ir.GenerationRecord) bool {
	if op.RequestFingerprint() != rec.RequestHash {
		return true
	}
	current := op.ResponseFingerprints()
	if len(current) != len(rec.ResponseHashes) {
		return true
	}
	for code, hash := range current {
		prev, ok := rec.ResponseHashes[code]
		if !ok || prev != hash {
			return true
		}
	}
	return false
}
