package stats

import (
	"errors"
	"math"
	"sort"

	"github.com/verte-zerg/xpdash/internal/model"
)

// ObjectTypeProject is the progress object type counted by the pass rate.
const ObjectTypeProject = "project"

// ErrInvalidAuditData is returned when no audit ratio can be derived.
var ErrInvalidAuditData = errors.New("invalid audit data")

// ComputeAuditRatio prefers the backend-supplied ratio and otherwise divides
// audits given by audits received. A user with no audits either way has no
// ratio, whatever the backend reports.
func ComputeAuditRatio(profile *model.UserProfile) (float64, error) {
	if profile == nil || (profile.TotalUp == 0 && profile.TotalDown == 0) {
		return 0, ErrInvalidAuditData
	}
	if profile.AuditRatio != nil {
		ratio := *profile.AuditRatio
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			return 0, ErrInvalidAuditData
		}
		return ratio, nil
	}
	if profile.TotalDown == 0 {
		return 0, ErrInvalidAuditData
	}
	return profile.TotalUp / profile.TotalDown, nil
}

// ComputeProjectPassRate counts passed and failed project attempts.
func ComputeProjectPassRate(progresses []model.ProgressRecord) model.PassRate {
	var rate model.PassRate
	for _, p := range progresses {
		if p.Object.Type != ObjectTypeProject {
			continue
		}
		rate.Total++
		if p.Grade == nil {
			continue
		}
		switch *p.Grade {
		case 1:
			rate.Passed++
		case 0:
			rate.Failed++
		}
	}
	if rate.Total > 0 {
		pct := float64(rate.Passed) / float64(rate.Total) * 100
		rate.SuccessRatePercent = math.Round(pct*10) / 10
	}
	return rate
}

// RankTopCollaborators counts the progress records shared with every other
// group member and returns the top limit, most frequent first.
func RankTopCollaborators(progresses []model.ProgressRecord, currentLogin string, limit int) []model.Collaborator {
	if limit <= 0 {
		return nil
	}
	index := map[string]int{}
	out := make([]model.Collaborator, 0)
	for _, p := range progresses {
		if p.Group == nil {
			continue
		}
		seen := map[string]struct{}{}
		for _, member := range p.Group.Members {
			login := member.UserLogin
			if login == "" || login == currentLogin {
				continue
			}
			if _, dup := seen[login]; dup {
				continue
			}
			seen[login] = struct{}{}
			i, ok := index[login]
			if !ok {
				i = len(out)
				index[login] = i
				out = append(out, model.Collaborator{Login: login})
			}
			out[i].SharedProjectCount++
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SharedProjectCount > out[j].SharedProjectCount
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
