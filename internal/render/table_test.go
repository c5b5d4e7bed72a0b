package render

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/xpdash/internal/model"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"#", "Project", "XP"}
	rows := [][]string{
		{"1", "graphql", "12 kB"},
		{"2", "ascii-art-web", "980 B"},
	}
	lines := FormatTable(headers, rows, map[int]bool{0: true, 2: true})
	want := []string{
		"# Project          XP",
		"1 graphql       12 kB",
		"2 ascii-art-web 980 B",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := FormatTable([]string{"Login", "N"}, [][]string{{"日本", "1"}, {"ab", "2"}}, nil)
	want := []string{"Login N", "日本  1", "ab    2"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := FormatTable(nil, nil, nil); lines != nil {
		t.Fatalf("expected nil, got %v", lines)
	}
}

func TestRows(t *testing.T) {
	projects := ProjectRows([]model.ProjectXP{{Name: "a", XP: 1500}})
	if diff := cmp.Diff([][]string{{"1", "a", "1 kB"}}, projects); diff != "" {
		t.Fatalf("project rows mismatch:\n%s", diff)
	}
	collabs := CollaboratorRows([]model.Collaborator{{Login: "bob", SharedProjectCount: 3}})
	if diff := cmp.Diff([][]string{{"1", "bob", "3"}}, collabs); diff != "" {
		t.Fatalf("collaborator rows mismatch:\n%s", diff)
	}
	activity := ActivityRows([]model.Activity{{
		Project: "graphql", Type: "xp", Amount: 2500,
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}})
	if diff := cmp.Diff([][]string{{"2024-03-01", "xp", "graphql", "+2 kB"}}, activity); diff != "" {
		t.Fatalf("activity rows mismatch:\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	s := model.NormalizedStats{
		Login:          "alice",
		TotalXP:        1_234_567,
		AuditRatioErr:  errors.New("no audits"),
		ProjectsPassed: 7,
		PassRate:       model.PassRate{SuccessRatePercent: 87.5},
	}
	got := Summarize(s, 4242, "A")
	want := Summary{
		Login:          "alice",
		UserID:         "4,242",
		Initials:       "A",
		TotalXP:        "1.23 MB",
		AuditRatio:     "N/A",
		ProjectsPassed: "7",
		SuccessRate:    "87.5%",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	if lines := got.Lines(); len(lines) != 6 || lines[0] != "User            alice" {
		t.Fatalf("unexpected lines %q", lines)
	}

	s.SkippedRecords = 1200
	lines := Summarize(s, 4242, "A").Lines()
	if len(lines) != 7 || lines[6] != "Skipped records 1,200" {
		t.Fatalf("expected a skipped records row, got %q", lines)
	}
}
