// Package model defines shared data structures.
package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Config defines dashboard settings resolved from flags and the config file.
type Config struct {
	SignInURL    string        `validate:"required,url"`
	GraphQLURL   string        `validate:"required,url"`
	Timeout      time.Duration `validate:"gt=0"`
	XPPathFilter string
	TopLimit     int    `validate:"gt=0"`
	OutputDir    string `validate:"required"`
	Format       string `validate:"oneof=svg png"`
}

// Number keeps the raw JSON token of a numeric field, quotes included, so
// that a string or otherwise non-numeric value survives decoding and a cache
// round-trip, and can be rejected by the aggregator.
type Number string

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	*n = Number(data)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	if json.Valid([]byte(n)) {
		return []byte(n), nil
	}
	return json.Marshal(string(n))
}

// Transaction is a ledger entry of the user.
type Transaction struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Amount    Number `json:"amount"`
	CreatedAt string `json:"createdAt"`
	Path      string `json:"path"`
}

// ProgressObject describes the graded object of a progress record.
type ProgressObject struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// GroupMember is a member of a project group.
type GroupMember struct {
	UserLogin string `json:"userLogin"`
}

// Group is the team a progress record was attempted with.
type Group struct {
	Members []GroupMember `json:"members"`
}

// ProgressRecord is a graded attempt at a project or exercise.
type ProgressRecord struct {
	ID        int64          `json:"id"`
	Grade     *float64       `json:"grade"`
	Path      string         `json:"path"`
	UpdatedAt string         `json:"updatedAt"`
	Object    ProgressObject `json:"object"`
	Group     *Group         `json:"group,omitempty"`
}

// UserProfile is the root aggregate returned by the profile query.
type UserProfile struct {
	ID           int64            `json:"id"`
	Login        string           `json:"login"`
	FirstName    string           `json:"firstName,omitempty"`
	LastName     string           `json:"lastName,omitempty"`
	TotalUp      float64          `json:"totalUp"`
	TotalDown    float64          `json:"totalDown"`
	AuditRatio   *float64         `json:"auditRatio"`
	Transactions []Transaction    `json:"transactions"`
	Progresses   []ProgressRecord `json:"progresses"`
}

// TimelinePoint is one step of the cumulative XP timeline.
type TimelinePoint struct {
	Timestamp    time.Time
	Amount       int64
	CumulativeXP int64
}

// ProjectXP is the XP earned on a single project.
type ProjectXP struct {
	Name string
	XP   int64
}

// Collaborator counts projects shared with another user.
type Collaborator struct {
	Login              string
	SharedProjectCount int
}

// PassRate summarizes graded project attempts.
type PassRate struct {
	Passed             int
	Failed             int
	Total              int
	SuccessRatePercent float64
}

// Activity is a single row of the recent activity feed.
type Activity struct {
	Project   string
	Type      string
	Amount    int64
	CreatedAt time.Time
}

// NormalizedStats holds every statistic derived from a profile.
type NormalizedStats struct {
	Login            string
	TotalXP          int64
	AuditRatio       float64
	AuditRatioErr    error
	TotalUp          float64
	TotalDown        float64
	ProjectsPassed   int
	PassRate         PassRate
	XPTimeline       []TimelinePoint
	TopProjects      []ProjectXP
	TopCollaborators []Collaborator
	RecentActivity   []Activity
	SkippedRecords   int
}
