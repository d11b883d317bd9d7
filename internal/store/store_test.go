package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pedromsantos/dddlint/internal/analyze"
	"github.com/pedromsantos/dddlint/internal/catalog"
	"github.com/pedromsantos/dddlint/internal/descriptor"
	"github.com/pedromsantos/dddlint/internal/report"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func sampleReport() *report.Report {
	set := &analyze.ResultSet{
		Categories: []descriptor.Category{
			descriptor.CategoryEntity,
			descriptor.CategoryValueObject,
		},
		Verdicts: []catalog.Verdict{
			{
				RuleID: "ENT001", Severity: catalog.SeverityCritical,
				Category: descriptor.CategoryEntity, RuleIndex: 0, TypeIndex: 0,
				TypeName: "Order", File: "orders/order.go", Line: 5,
				Status: catalog.StatusFail, Summary: "no identity field",
				Evidence: []string{"id"},
			},
			{
				RuleID: "VO001", Severity: catalog.SeverityHigh,
				Category: descriptor.CategoryValueObject, RuleIndex: 3, TypeIndex: 1,
				TypeName: "Money", Status: catalog.StatusPass,
			},
		},
	}
	return report.Generate(set)
}

func TestSaveRunAndHistory(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, "run-1", "/src/app", sampleReport()); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := s.SaveRun(ctx, "run-2", "/src/app", sampleReport()); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	runs, err := s.History(ctx, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-2" {
		t.Errorf("newest run first: got %s, want run-2", runs[0].ID)
	}

	rec := runs[0]
	if rec.Root != "/src/app" {
		t.Errorf("root = %q, want /src/app", rec.Root)
	}
	if rec.Summary.Types != 2 || rec.Summary.Failed != 1 || rec.Summary.FailedCritical != 1 {
		t.Errorf("summary = %+v, want 2 types, 1 critical failure", rec.Summary)
	}
}

func TestActionsRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	rep := sampleReport()
	if err := s.SaveRun(ctx, "run-1", "/src/app", rep); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	actions, err := s.Actions(ctx, "run-1")
	if err != nil {
		t.Fatalf("Actions failed: %v", err)
	}
	if len(actions) != len(rep.Actions) {
		t.Fatalf("got %d actions, want %d", len(actions), len(rep.Actions))
	}
	a := actions[0]
	if a.RuleID != "ENT001" || a.Severity != catalog.SeverityCritical || a.TypeName != "Order" {
		t.Errorf("action = %+v, want the ENT001 failure on Order", a)
	}
	if a.File != "orders/order.go" || a.Line != 5 {
		t.Errorf("location = %s:%d, want orders/order.go:5", a.File, a.Line)
	}
	if len(a.Evidence) != 1 || a.Evidence[0] != "id" {
		t.Errorf("evidence = %v, want [id]", a.Evidence)
	}
}

func TestHistory_Limit(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.SaveRun(ctx, id, "/src", sampleReport()); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := s.History(ctx, 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want limit of 2", len(runs))
	}
}

func TestOpen_ReopenRunsMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if err := s1.SaveRun(context.Background(), "run-1", "/src", sampleReport()); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = s2.Close() }()

	runs, err := s2.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History after reopen failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Errorf("runs after reopen = %+v, want the one saved run", runs)
	}
}

func TestSaveRun_DuplicateIDFails(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, "run-1", "/src", sampleReport()); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := s.SaveRun(ctx, "run-1", "/src", sampleReport()); err == nil {
		t.Error("expected primary key violation for duplicate run ID")
	}
}
