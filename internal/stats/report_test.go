package stats

import (
	"errors"
	"testing"

	"github.com/verte-zerg/xpdash/internal/model"
)

func TestAggregateTreatsMissingListsAsEmpty(t *testing.T) {
	out := Aggregate(&model.UserProfile{Login: "me"}, Options{})
	if out.TotalXP != 0 || len(out.XPTimeline) != 0 || len(out.TopProjects) != 0 {
		t.Fatalf("expected empty stats, got %+v", out)
	}
	if !errors.Is(out.AuditRatioErr, ErrInvalidAuditData) {
		t.Fatalf("expected invalid audit data, got %v", out.AuditRatioErr)
	}
	if out.PassRate.Total != 0 || out.PassRate.SuccessRatePercent != 0 {
		t.Fatalf("expected zero pass rate, got %+v", out.PassRate)
	}
}

func TestAggregate(t *testing.T) {
	profile := &model.UserProfile{
		Login:     "me",
		TotalUp:   2000,
		TotalDown: 1000,
		Transactions: []model.Transaction{
			xpTx("1000", "2024-01-01T09:00:00Z", "/o/module/a"),
			xpTx("bad", "2024-01-02T09:00:00Z", "/o/module/b"),
			{Type: "up", Amount: "70", CreatedAt: "2024-01-03T09:00:00Z", Path: "/o/module/a"},
		},
		Progresses: []model.ProgressRecord{project(grade(1), "me", "you")},
	}
	out := Aggregate(profile, Options{})
	if out.TotalXP != 1000 {
		t.Fatalf("expected total 1000, got %d", out.TotalXP)
	}
	if out.SkippedRecords != 1 {
		t.Fatalf("expected 1 skipped record, got %d", out.SkippedRecords)
	}
	if out.AuditRatio != 2 || out.AuditRatioErr != nil {
		t.Fatalf("expected ratio 2, got %v (%v)", out.AuditRatio, out.AuditRatioErr)
	}
	if out.ProjectsPassed != 1 || out.PassRate.SuccessRatePercent != 100 {
		t.Fatalf("unexpected pass rate %+v", out.PassRate)
	}
	if len(out.TopCollaborators) != 1 || out.TopCollaborators[0].Login != "you" {
		t.Fatalf("unexpected collaborators %+v", out.TopCollaborators)
	}
	if len(out.RecentActivity) != 2 || out.RecentActivity[0].Type != "up" {
		t.Fatalf("expected newest activity first, got %+v", out.RecentActivity)
	}
}

func TestDisplayNameAndInitials(t *testing.T) {
	p := &model.UserProfile{Login: "jdoe"}
	if got := DisplayName(p); got != "jdoe" {
		t.Fatalf("expected login fallback, got %q", got)
	}
	p.FirstName, p.LastName = "Jane", "Doe"
	if got := DisplayName(p); got != "Jane Doe" {
		t.Fatalf("expected full name, got %q", got)
	}
	if got := Initials("jdoe"); got != "JD" {
		t.Fatalf("expected JD, got %q", got)
	}
	if got := Initials("x"); got != "X" {
		t.Fatalf("expected X, got %q", got)
	}
}
