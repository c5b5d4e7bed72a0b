package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/xpdash/internal/model"
)

func grade(v float64) *float64 { return &v }

func project(g *float64, members ...string) model.ProgressRecord {
	rec := model.ProgressRecord{Grade: g, Object: model.ProgressObject{Name: "p", Type: ObjectTypeProject}}
	if len(members) > 0 {
		group := &model.Group{}
		for _, m := range members {
			group.Members = append(group.Members, model.GroupMember{UserLogin: m})
		}
		rec.Group = group
	}
	return rec
}

func TestAuditRatio(t *testing.T) {
	ratio, err := ComputeAuditRatio(&model.UserProfile{TotalUp: 300, TotalDown: 200})
	if err != nil || ratio != 1.5 {
		t.Fatalf("expected 1.5, got %v (%v)", ratio, err)
	}
	ratio, err = ComputeAuditRatio(&model.UserProfile{TotalUp: 300, TotalDown: 200, AuditRatio: grade(0.8)})
	if err != nil || ratio != 0.8 {
		t.Fatalf("expected backend ratio 0.8, got %v (%v)", ratio, err)
	}
}

func TestAuditRatioInvalid(t *testing.T) {
	cases := map[string]*model.UserProfile{
		"nil profile":             nil,
		"no audits":               {},
		"zero denominator":        {TotalUp: 10},
		"backend zero, no audits": {AuditRatio: grade(0)},
		"backend NaN":             {TotalUp: 1, TotalDown: 1, AuditRatio: grade(math.NaN())},
	}
	for name, profile := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ComputeAuditRatio(profile); !errors.Is(err, ErrInvalidAuditData) {
				t.Fatalf("expected ErrInvalidAuditData, got %v", err)
			}
		})
	}
	ratio, err := ComputeAuditRatio(&model.UserProfile{TotalDown: 50, AuditRatio: grade(0)})
	if err != nil || ratio != 0 {
		t.Fatalf("audits received only should keep the backend ratio 0, got %v (%v)", ratio, err)
	}
}

func TestPassRateEmpty(t *testing.T) {
	got := ComputeProjectPassRate(nil)
	if diff := cmp.Diff(model.PassRate{}, got); diff != "" {
		t.Fatalf("unexpected pass rate (-want +got):\n%s", diff)
	}
}

func TestPassRateCountsProjectsOnly(t *testing.T) {
	progresses := []model.ProgressRecord{
		project(grade(1)),
		project(grade(1)),
		project(grade(0)),
		project(nil),
		{Grade: grade(1), Object: model.ProgressObject{Type: "exercise"}},
	}
	got := ComputeProjectPassRate(progresses)
	want := model.PassRate{Passed: 2, Failed: 1, Total: 4, SuccessRatePercent: 50}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected pass rate (-want +got):\n%s", diff)
	}
}

func TestPassRateRoundsToOneDecimal(t *testing.T) {
	got := ComputeProjectPassRate([]model.ProgressRecord{project(grade(1)), project(grade(0)), project(grade(0))})
	if got.SuccessRatePercent != 33.3 {
		t.Fatalf("expected 33.3, got %v", got.SuccessRatePercent)
	}
}

func TestTopCollaboratorsExcludesCurrentUser(t *testing.T) {
	progresses := []model.ProgressRecord{
		project(grade(1), "me", "alice", "bob"),
		project(grade(0), "me", "bob"),
		project(grade(1), "bob", "carol", "me"),
		project(grade(1), "dave", "dave", "me"),
		project(grade(1)),
	}
	got := RankTopCollaborators(progresses, "me", 10)
	want := []model.Collaborator{
		{Login: "bob", SharedProjectCount: 3},
		{Login: "alice", SharedProjectCount: 1},
		{Login: "carol", SharedProjectCount: 1},
		{Login: "dave", SharedProjectCount: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("collaborators mismatch (-want +got):\n%s", diff)
	}
	for _, c := range got {
		if c.Login == "me" {
			t.Fatalf("current user must not be ranked")
		}
	}
}

func TestTopCollaboratorsLimit(t *testing.T) {
	members := []string{"me"}
	for _, l := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		members = append(members, l)
	}
	got := RankTopCollaborators([]model.ProgressRecord{project(grade(1), members...)}, "me", 10)
	if len(got) != 10 {
		t.Fatalf("expected 10 collaborators, got %d", len(got))
	}
}
