package model

import "time"

// AlertEntry represents one entry in the local alert feed. The job snapshot is
// immutable once taken; later edits to the job upstream are not reflected here.
// The feed holds at most one entry per job ID.
type AlertEntry struct {
	ID          string    `json:"id"`
	JobID       string    `json:"jobId"`
	JobSnapshot Job       `json:"jobSnapshot"`
	Seen        bool      `json:"seen"`
	SavedAt     time.Time `json:"savedAt"`
}

// ViewedEntry represents a job the local user opened.
type ViewedEntry struct {
	JobID       string    `json:"jobId"`
	JobSnapshot Job       `json:"jobSnapshot"`
	ViewedAt    time.Time `json:"viewedAt"`
}

// AlertPreference represents the user's selected interest tags. The tags are kept
// as entered for display purposes and are only normalized when matched.
type AlertPreference struct {
	Roles []string `json:"roles"`
}
