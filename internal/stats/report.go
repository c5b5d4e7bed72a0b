package stats

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/verte-zerg/xpdash/internal/model"
)

// DefaultTopLimit bounds the ranking lists.
const DefaultTopLimit = 10

// DefaultActivityLimit bounds the recent activity feed.
const DefaultActivityLimit = 10

// Options tune the aggregation.
type Options struct {
	// XPPathFilter restricts XP statistics to paths containing it; empty keeps all XP.
	XPPathFilter  string
	TopLimit      int
	ActivityLimit int
}

func (o Options) withDefaults() Options {
	if o.TopLimit <= 0 {
		o.TopLimit = DefaultTopLimit
	}
	if o.ActivityLimit <= 0 {
		o.ActivityLimit = DefaultActivityLimit
	}
	return o
}

// Aggregate derives every dashboard statistic from a profile. Missing
// transaction or progress lists are treated as empty.
func Aggregate(profile *model.UserProfile, opts Options) model.NormalizedStats {
	opts = opts.withDefaults()
	if profile == nil {
		return model.NormalizedStats{AuditRatioErr: ErrInvalidAuditData}
	}
	txs := profile.Transactions
	progresses := profile.Progresses

	total, skipped := ComputeTotalXP(txs, opts.XPPathFilter)
	timeline, _ := ComputeXPTimeline(txs, opts.XPPathFilter)
	top, _ := RankTopProjectsByXP(txs, opts.XPPathFilter, opts.TopLimit)
	ratio, ratioErr := ComputeAuditRatio(profile)
	rate := ComputeProjectPassRate(progresses)

	return model.NormalizedStats{
		Login:            profile.Login,
		TotalXP:          total,
		AuditRatio:       ratio,
		AuditRatioErr:    ratioErr,
		TotalUp:          profile.TotalUp,
		TotalDown:        profile.TotalDown,
		ProjectsPassed:   rate.Passed,
		PassRate:         rate,
		XPTimeline:       timeline,
		TopProjects:      top,
		TopCollaborators: RankTopCollaborators(progresses, profile.Login, opts.TopLimit),
		RecentActivity:   RecentActivity(txs, opts.ActivityLimit),
		SkippedRecords:   skipped,
	}
}

// RecentActivity returns the newest transactions of any type. Records with
// an unreadable amount or date are left out.
func RecentActivity(txs []model.Transaction, limit int) []model.Activity {
	if limit <= 0 {
		return nil
	}
	out := make([]model.Activity, 0, len(txs))
	for _, tx := range txs {
		amount, err := ParseAmount(tx.Amount)
		if err != nil {
			continue
		}
		createdAt, err := ParseTime(tx.CreatedAt)
		if err != nil {
			continue
		}
		out = append(out, model.Activity{
			Project:   ProjectName(tx.Path),
			Type:      tx.Type,
			Amount:    amount,
			CreatedAt: createdAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DisplayName returns "First Last" when both names are known, else the login.
func DisplayName(profile *model.UserProfile) string {
	if profile == nil {
		return ""
	}
	first := strings.TrimSpace(profile.FirstName)
	last := strings.TrimSpace(profile.LastName)
	if first != "" && last != "" {
		return first + " " + last
	}
	return profile.Login
}

// Initials returns the first two letters of the login, upper-cased.
func Initials(login string) string {
	if utf8.RuneCountInString(login) > 2 {
		login = string([]rune(login)[:2])
	}
	return strings.ToUpper(login)
}
