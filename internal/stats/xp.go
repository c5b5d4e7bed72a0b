// Package stats derives dashboard statistics from a raw user profile.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/xpdash/internal/model"
)

// TypeXP is the transaction type that awards experience points.
const TypeXP = "xp"

const unknownProject = "Unknown"

// ErrMalformedTransaction marks a transaction whose amount or date cannot be read.
var ErrMalformedTransaction = errors.New("malformed transaction")

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type xpEntry struct {
	project   string
	amount    int64
	createdAt time.Time
}

// ParseAmount converts a raw amount into a signed integer.
func ParseAmount(n model.Number) (int64, error) {
	raw := strings.TrimSpace(string(n))
	if raw == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrMalformedTransaction)
	}
	if strings.HasPrefix(raw, `"`) {
		return 0, fmt.Errorf("%w: amount %s is a string", ErrMalformedTransaction, raw)
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: amount %q is not a number", ErrMalformedTransaction, raw)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: amount %q is not an integer", ErrMalformedTransaction, raw)
	}
	if f >= 1<<63 || f < -(1<<63) {
		return 0, fmt.Errorf("%w: amount %q is out of range", ErrMalformedTransaction, raw)
	}
	return int64(f), nil
}

// ParseTime parses a backend timestamp.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrMalformedTransaction, value)
}

// ProjectName returns the last segment of a slash-delimited path.
func ProjectName(path string) string {
	path = strings.TrimRight(path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}
	if path == "" {
		return unknownProject
	}
	return path
}

// xpEntries keeps XP transactions matching the path filter, in input order,
// and reports how many of them were malformed.
func xpEntries(txs []model.Transaction, pathFilter string) ([]xpEntry, int) {
	entries := make([]xpEntry, 0, len(txs))
	skipped := 0
	for _, tx := range txs {
		if tx.Type != TypeXP {
			continue
		}
		if pathFilter != "" && !strings.Contains(tx.Path, pathFilter) {
			continue
		}
		amount, err := ParseAmount(tx.Amount)
		if err != nil {
			skipped++
			continue
		}
		createdAt, err := ParseTime(tx.CreatedAt)
		if err != nil {
			skipped++
			continue
		}
		entries = append(entries, xpEntry{
			project:   ProjectName(tx.Path),
			amount:    amount,
			createdAt: createdAt,
		})
	}
	return entries, skipped
}

// ComputeTotalXP sums XP amounts whose path contains pathFilter (all XP when
// the filter is empty). The second result is the number of skipped records.
func ComputeTotalXP(txs []model.Transaction, pathFilter string) (int64, int) {
	entries, skipped := xpEntries(txs, pathFilter)
	var total int64
	for _, e := range entries {
		total += e.amount
	}
	return total, skipped
}

// ComputeXPTimeline returns the running XP total ordered by creation time.
func ComputeXPTimeline(txs []model.Transaction, pathFilter string) ([]model.TimelinePoint, int) {
	entries, skipped := xpEntries(txs, pathFilter)
	if len(entries) == 0 {
		return nil, skipped
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].createdAt.Before(entries[j].createdAt)
	})
	out := make([]model.TimelinePoint, len(entries))
	var cumulative int64
	for i, e := range entries {
		cumulative += e.amount
		out[i] = model.TimelinePoint{
			Timestamp:    e.createdAt,
			Amount:       e.amount,
			CumulativeXP: cumulative,
		}
	}
	return out, skipped
}

// RankTopProjectsByXP groups XP by project name and returns the top limit
// projects, highest first. Ties keep first-seen order.
func RankTopProjectsByXP(txs []model.Transaction, pathFilter string, limit int) ([]model.ProjectXP, int) {
	entries, skipped := xpEntries(txs, pathFilter)
	if limit <= 0 || len(entries) == 0 {
		return nil, skipped
	}
	index := map[string]int{}
	projects := make([]model.ProjectXP, 0)
	for _, e := range entries {
		i, ok := index[e.project]
		if !ok {
			i = len(projects)
			index[e.project] = i
			projects = append(projects, model.ProjectXP{Name: e.project})
		}
		projects[i].XP += e.amount
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].XP > projects[j].XP
	})
	if len(projects) > limit {
		projects = projects[:limit]
	}
	return projects, skipped
}
