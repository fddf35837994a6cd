package storage

import (
	"testing"
	"time"

	"fondi/internal/core"
)

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + string(rune('0'+n))
	}
}

func existingLine(id string, pos int, created time.Time) core.FundEventLine {
	l := core.NewAssetMoneyLine(1, 100)
	l.ID = id
	l.LineNo = pos
	l.CreatedAt = created
	return l
}

func TestReconcileKeepsRequestedIDs(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []core.FundEventLine{existingLine("a", 0, created)}

	desired := core.NewAssetMoneyLine(1, 200)
	desired.ID = "a"
	plan, err := reconcileLines(existing, []core.FundEventLine{desired}, sequentialIDs("n"))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(plan.Writes) != 1 || len(plan.DeleteIDs) != 0 {
		t.Fatalf("writes %d deletes %d", len(plan.Writes), len(plan.DeleteIDs))
	}
	w := plan.Writes[0]
	if w.Line.ID != "a" || !w.Existing || !w.Line.CreatedAt.Equal(created) {
		t.Fatalf("identity not preserved: %+v", w)
	}
}

func TestReconcilePositionFallback(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []core.FundEventLine{
		existingLine("a", 0, created),
		existingLine("b", 1, created),
	}

	// No ids in the payload: position decides identity, order is payload order.
	desired := []core.FundEventLine{
		core.NewAssetMoneyLine(1, 500),
		core.NewAssetQuantityLine(2, 3),
		core.NewAssetMoneyLine(3, -100),
	}
	plan, err := reconcileLines(existing, desired, sequentialIDs("n"))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(plan.Writes) != 3 {
		t.Fatalf("writes = %d", len(plan.Writes))
	}
	if plan.Writes[0].Line.ID != "a" || !plan.Writes[0].Existing {
		t.Fatalf("position 0 should reuse line a: %+v", plan.Writes[0])
	}
	if plan.Writes[1].Line.ID != "b" || !plan.Writes[1].Existing {
		t.Fatalf("position 1 should reuse line b: %+v", plan.Writes[1])
	}
	if plan.Writes[2].Existing || plan.Writes[2].Line.ID == "" {
		t.Fatalf("position 2 should be fresh: %+v", plan.Writes[2])
	}
	for i, w := range plan.Writes {
		if w.Line.LineNo != i {
			t.Fatalf("line %d got lineNo %d", i, w.Line.LineNo)
		}
	}
	if len(plan.DeleteIDs) != 0 {
		t.Fatalf("unexpected deletes %v", plan.DeleteIDs)
	}
}

func TestReconcileDeletesUnclaimed(t *testing.T) {
	created := time.Now().UTC()
	existing := []core.FundEventLine{
		existingLine("a", 0, created),
		existingLine("b", 1, created),
	}

	keep := core.NewAssetMoneyLine(1, 1)
	keep.ID = "b"
	plan, err := reconcileLines(existing, []core.FundEventLine{keep}, sequentialIDs("n"))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(plan.DeleteIDs) != 1 || plan.DeleteIDs[0] != "a" {
		t.Fatalf("deletes = %v, want [a]", plan.DeleteIDs)
	}
	if plan.Writes[0].Line.LineNo != 0 {
		t.Fatalf("kept line must move to position 0, got %d", plan.Writes[0].Line.LineNo)
	}
}

func TestReconcileEmptyPayloadDeletesAll(t *testing.T) {
	existing := []core.FundEventLine{
		existingLine("a", 0, time.Now()),
		existingLine("b", 1, time.Now()),
	}
	plan, err := reconcileLines(existing, nil, sequentialIDs("n"))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(plan.Writes) != 0 || len(plan.DeleteIDs) != 2 {
		t.Fatalf("writes %d deletes %v", len(plan.Writes), plan.DeleteIDs)
	}
}

func TestReconcileDuplicateRequestedID(t *testing.T) {
	a := core.NewAssetMoneyLine(1, 1)
	a.ID = "dup"
	b := core.NewAssetMoneyLine(2, 2)
	b.ID = "dup"
	if _, err := reconcileLines(nil, []core.FundEventLine{a, b}, sequentialIDs("n")); err == nil {
		t.Fatalf("expected error for duplicate line id")
	}
}

func TestReconcilePositionNotStolenFromClaimedID(t *testing.T) {
	created := time.Now().UTC()
	existing := []core.FundEventLine{existingLine("a", 0, created)}

	// First desired line claims "a" explicitly at position 1; the line at
	// position 0 must not also resolve to "a".
	first := core.NewAssetMoneyLine(1, 1)
	second := core.NewAssetMoneyLine(2, 2)
	second.ID = "a"
	plan, err := reconcileLines(existing, []core.FundEventLine{second, first}, sequentialIDs("n"))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if plan.Writes[0].Line.ID != "a" {
		t.Fatalf("explicit id lost: %+v", plan.Writes[0])
	}
	if plan.Writes[1].Line.ID == "a" {
		t.Fatalf("fresh line stole claimed id")
	}
}
