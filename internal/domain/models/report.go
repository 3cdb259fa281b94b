package models

import "time"

// SyncReport summarizes one pipeline run.
type SyncReport struct {
	RunID      string        `bson:"run_id" json:"run_id"`
	StartedAt  time.Time     `bson:"started_at" json:"started_at"`
	FinishedAt time.Time     `bson:"finished_at" json:"finished_at"`
	BeginDate  time.Time     `bson:"begin_date" json:"begin_date"`
	EndDate    time.Time     `bson:"end_date" json:"end_date"`
	Scopes     []ScopeReport `bson:"scopes" json:"scopes"`
	Items      int           `bson:"items" json:"items"`
	Facts      int           `bson:"facts" json:"facts"`
	Groups     int           `bson:"groups" json:"groups"`
	Conditions int           `bson:"conditions" json:"conditions"`
	Failures   int           `bson:"failures" json:"failures"`
	Error      string        `bson:"error,omitempty" json:"error,omitempty"`
}

// ScopeReport is the outcome of one scope within a run.
type ScopeReport struct {
	ScopeKey    string     `bson:"scope_key" json:"scope_key"`
	Skipped     bool       `bson:"skipped" json:"skipped"`
	WindowBegin time.Time  `bson:"window_begin" json:"window_begin"`
	WindowEnd   time.Time  `bson:"window_end" json:"window_end"`
	Requests    int        `bson:"requests" json:"requests"`
	Failures    int        `bson:"failures" json:"failures"`
	Items       int        `bson:"items" json:"items"`
	Facts       int        `bson:"facts" json:"facts"`
	Groups      int        `bson:"groups" json:"groups"`
	Conditions  int        `bson:"conditions" json:"conditions"`
	Checkpoint  *time.Time `bson:"checkpoint,omitempty" json:"checkpoint,omitempty"`
}

// Add folds a scope outcome into the run totals.
func (r *SyncReport) Add(s ScopeReport) {
	r.Scopes = append(r.Scopes, s)
	r.Items += s.Items
	r.Facts += s.Facts
	r.Groups += s.Groups
	r.Conditions += s.Conditions
	r.Failures += s.Failures
}
