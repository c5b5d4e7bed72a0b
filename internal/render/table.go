package render

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/xpdash/internal/model"
)

// FormatTable aligns rows into columns measured in terminal cells. Columns
// listed in rightAlign are padded on the left.
func FormatTable(headers []string, rows [][]string, rightAlign map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlign))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlign))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlign map[int]bool) string {
	var b strings.Builder
	for i, width := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		if rightAlign[i] {
			b.WriteString(runewidth.FillLeft(cell, width))
		} else {
			b.WriteString(runewidth.FillRight(cell, width))
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// ProjectRows formats the XP ranking as table rows.
func ProjectRows(projects []model.ProjectXP) [][]string {
	rows := make([][]string, len(projects))
	for i, p := range projects {
		rows[i] = []string{FormatCount(int64(i + 1)), p.Name, FormatXP(p.XP)}
	}
	return rows
}

// CollaboratorRows formats the collaborator ranking as table rows.
func CollaboratorRows(collaborators []model.Collaborator) [][]string {
	rows := make([][]string, len(collaborators))
	for i, c := range collaborators {
		rows[i] = []string{FormatCount(int64(i + 1)), c.Login, FormatCount(int64(c.SharedProjectCount))}
	}
	return rows
}

// ActivityRows formats recent transactions as table rows.
func ActivityRows(activity []model.Activity) [][]string {
	rows := make([][]string, len(activity))
	for i, a := range activity {
		rows[i] = []string{a.CreatedAt.Format("2006-01-02"), a.Type, a.Project, FormatSignedXP(a.Amount)}
	}
	return rows
}

// Summary is the set of headline values shown on the dashboard.
type Summary struct {
	Login          string
	UserID         string
	Initials       string
	TotalXP        string
	AuditRatio     string
	ProjectsPassed string
	SuccessRate    string
	// Skipped counts malformed records left out of the totals; empty when none.
	Skipped string
}

// Summarize formats the headline values of a stats snapshot.
func Summarize(s model.NormalizedStats, userID int64, initials string) Summary {
	skipped := ""
	if s.SkippedRecords > 0 {
		skipped = FormatCount(int64(s.SkippedRecords))
	}
	return Summary{
		Login:          s.Login,
		UserID:         FormatCount(userID),
		Initials:       initials,
		TotalXP:        FormatXP(s.TotalXP),
		AuditRatio:     FormatRatio(s.AuditRatio, s.AuditRatioErr),
		ProjectsPassed: FormatCount(int64(s.ProjectsPassed)),
		SuccessRate:    FormatPercent(s.PassRate.SuccessRatePercent),
		Skipped:        skipped,
	}
}

// Lines renders the summary as label/value rows.
func (s Summary) Lines() []string {
	rows := [][]string{
		{"User", s.Login},
		{"ID", s.UserID},
		{"Total XP", s.TotalXP},
		{"Audit ratio", s.AuditRatio},
		{"Projects passed", s.ProjectsPassed},
		{"Success rate", s.SuccessRate},
	}
	if s.Skipped != "" {
		rows = append(rows, []string{"Skipped records", s.Skipped})
	}
	return FormatTable(nil, rows, nil)
}
