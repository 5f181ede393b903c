package model

import (
	"sort"
	"time"
)

// JobTTL is how long a job posting remains live before the store purges it.
const JobTTL = 7 * 24 * time.Hour

// UrgentWindow is how long the urgent flag stays effective after it is set.
const UrgentWindow = 24 * time.Hour

// Job represents a single job posting, the authoritative record managed by the server.
type Job struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CompanyName string    `json:"companyName"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	City        string    `json:"city"`
	JobRole     string    `json:"jobRole"`
	Description string    `json:"description"`
	IsUrgent    bool      `json:"isUrgent"`
	UrgentUntil time.Time `json:"urgentUntil,omitempty"`
	Views       int64     `json:"views"`
	TimeCreated time.Time `json:"createdAt"`
	TimeUpdated time.Time `json:"updatedAt"`
}

// UrgentActive determines whether the urgent flag is still effective. The flag is
// stored permanently but only counts while the urgency window is open, so this is
// derived at read time rather than persisted.
func (j *Job) UrgentActive(now time.Time) bool {
	return j.IsUrgent && !j.UrgentUntil.IsZero() && now.Before(j.UrgentUntil)
}

// OrderForDisplay sorts a page of job postings for listing: postings whose
// urgency window is still open come first, then newest first. Postings with an
// expired urgency window also have the urgent flag cleared so that stale urgency
// never reaches a reader.
func OrderForDisplay(jobs []Job, now time.Time) {
	for i := range jobs {
		if !jobs[i].UrgentActive(now) {
			jobs[i].IsUrgent = false
		}
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i].IsUrgent, jobs[j].IsUrgent
		if a != b {
			return a
		}
		return jobs[i].TimeCreated.After(jobs[j].TimeCreated)
	})
}

// JobListing represents one page of job postings along with the total number of
// postings that matched the filter.
type JobListing struct {
	Items []Job `json:"items"`
	Total int64 `json:"total"`
}

// JobFilter represents the optional filters accepted by the listing endpoints.
type JobFilter struct {
	City  string
	Role  string
	Query string
	Email string
}
