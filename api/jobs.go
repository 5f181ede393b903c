package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/saudijob/jobboard/common"
	"github.com/saudijob/jobboard/db"
	"github.com/saudijob/jobboard/model"
)

// pagingParams extracts the limit and skip query parameters, applying the
// defaults and the listing cap.
func pagingParams(r *http.Request) (uint64, uint64) {
	limit, err := strconv.ParseUint(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit == 0 {
		limit = 20
	}
	if limit > maxListingLimit {
		limit = maxListingLimit
	}
	skip, err := strconv.ParseUint(r.URL.Query().Get("skip"), 10, 64)
	if err != nil {
		skip = 0
	}
	return limit, skip
}

// filterParam extracts an optional filter parameter, treating the placeholder
// value "All" as no filter.
func filterParam(r *http.Request, name string) string {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "All" {
		return ""
	}
	return value
}

// jobID extracts and validates the posting identifier from the request path.
func jobID(r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// listJobs runs the shared listing query for the public listing and my-posts
// endpoints.
func (a *API) listJobs(ctx context.Context, filter *model.JobFilter, limit, skip uint64) (*model.JobListing, error) {
	wrapMsg := "unable to list job postings"

	// Begin a database transaction.
	tx, err := a.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer func() { _ = tx.Rollback() }()

	// Count the matching postings.
	total, err := db.CountJobs(ctx, tx, filter)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Fetch the requested page.
	items, err := db.ListJobs(ctx, tx, filter, limit, skip)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Commit the transaction.
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Apply the derived urgent-active ordering to the page.
	model.OrderForDisplay(items, time.Now())

	return &model.JobListing{Items: items, Total: total}, nil
}

// ListJobs handles GET /jobs.
func (a *API) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, skip := pagingParams(r)
	filter := &model.JobFilter{
		City:  filterParam(r, "city"),
		Role:  filterParam(r, "role"),
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}

	listing, err := a.listJobs(r.Context(), filter, limit, skip)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// ListMyPosts handles GET /my-posts.
func (a *API) ListMyPosts(w http.ResponseWriter, r *http.Request) {
	email := common.NormalizeEmailAddress(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	limit, skip := pagingParams(r)
	listing, err := a.listJobs(r.Context(), &model.JobFilter{Email: email}, limit, skip)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// CreateJob handles POST /jobs: validate the payload, store the posting, then
// fire the push fan-out. The fan-out runs after the transaction commits and its
// failures are logged by the dispatcher, never surfaced here; notification
// problems must not fail the creation.
func (a *API) CreateJob(w http.ResponseWriter, r *http.Request) {
	// Parse and validate the request body.
	var request createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse the request body")
		return
	}
	if report := validateCreate(&request); report != nil {
		writeValidationError(w, report)
		return
	}

	// Assemble the posting. The company name falls back to the poster's name,
	// and the urgency window opens now if the posting is urgent.
	now := time.Now()
	companyName := strings.TrimSpace(request.CompanyName)
	if companyName == "" {
		companyName = request.Name
	}
	job := &model.Job{
		Name:        request.Name,
		CompanyName: companyName,
		Phone:       request.Phone,
		Email:       common.NormalizeEmailAddress(request.Email),
		City:        request.City,
		JobRole:     request.JobRole,
		Description: request.Description,
		IsUrgent:    request.IsUrgent,
		Views:       0,
		TimeCreated: now,
		TimeUpdated: now,
	}
	if request.IsUrgent {
		job.UrgentUntil = now.Add(model.UrgentWindow)
	}

	// Store the posting.
	tx, err := a.db.Begin()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer func() { _ = tx.Rollback() }()
	if err := db.SaveJob(r.Context(), tx, job); err != nil {
		writeInternalError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		writeInternalError(w, err)
		return
	}

	// Fan out the push notifications.
	a.dispatcher.NotifyJobCreated(r.Context(), job)

	writeJSON(w, http.StatusCreated, job)
}

// loadOwnedJob looks up a posting and verifies the caller's ownership claim. It
// writes the appropriate error response and returns nil when the caller may not
// proceed; a missing posting and a mismatched email are reported distinctly.
func (a *API) loadOwnedJob(ctx context.Context, w http.ResponseWriter, tx *sql.Tx, id, email string) *model.Job {
	job, err := db.GetJob(ctx, tx, id)
	if err != nil {
		writeInternalError(w, err)
		return nil
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return nil
	}
	if common.NormalizeEmailAddress(job.Email) != email {
		writeError(w, http.StatusForbidden, "Email does not match")
		return nil
	}
	return job
}

// UpdateJob handles PUT /jobs/{id}.
func (a *API) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	email := common.NormalizeEmailAddress(r.URL.Query().Get("email"))

	// Parse and validate the request body.
	var request updateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse the request body")
		return
	}
	if report := validateUpdate(&request); report != nil {
		writeValidationError(w, report)
		return
	}

	// Begin a database transaction.
	tx, err := a.db.Begin()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer func() { _ = tx.Rollback() }()

	// Look up the posting and verify ownership.
	job := a.loadOwnedJob(r.Context(), w, tx, id, email)
	if job == nil {
		return
	}

	// Merge the requested changes. Toggling urgency on restarts the urgency
	// window; toggling it off closes the window immediately.
	now := time.Now()
	if request.IsUrgent != nil {
		if *request.IsUrgent {
			job.IsUrgent = true
			job.UrgentUntil = now.Add(model.UrgentWindow)
		} else {
			job.IsUrgent = false
			job.UrgentUntil = time.Time{}
		}
	}
	if request.Name != nil {
		job.Name = *request.Name
	}
	if request.CompanyName != nil && strings.TrimSpace(*request.CompanyName) != "" {
		job.CompanyName = *request.CompanyName
	}
	if request.Phone != nil {
		job.Phone = *request.Phone
	}
	if request.City != nil {
		job.City = *request.City
	}
	if request.JobRole != nil {
		job.JobRole = *request.JobRole
	}
	if request.Description != nil {
		job.Description = *request.Description
	}
	job.TimeUpdated = now

	// Store the changes.
	if err := db.UpdateJob(r.Context(), tx, job); err != nil {
		writeInternalError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// DeleteJob handles DELETE /jobs/{id}.
func (a *API) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	email := common.NormalizeEmailAddress(r.URL.Query().Get("email"))

	// Begin a database transaction.
	tx, err := a.db.Begin()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer func() { _ = tx.Rollback() }()

	// Look up the posting and verify ownership.
	job := a.loadOwnedJob(r.Context(), w, tx, id, email)
	if job == nil {
		return
	}

	// Remove the posting.
	if err := db.DeleteJob(r.Context(), tx, id); err != nil {
		writeInternalError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// IncrementView handles POST /jobs/{id}/view.
func (a *API) IncrementView(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	// Begin a database transaction.
	tx, err := a.db.Begin()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer func() { _ = tx.Rollback() }()

	// Increment the counter.
	if err := db.IncrementJobViews(r.Context(), tx, id); err != nil {
		writeInternalError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
