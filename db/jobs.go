package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/saudijob/jobboard/model"

	sq "github.com/Masterminds/squirrel"
)

// jobColumns is the column list used whenever full job rows are selected.
var jobColumns = []string{
	"id",
	"name",
	"company_name",
	"phone",
	"email",
	"city",
	"job_role",
	"description",
	"is_urgent",
	"urgent_until",
	"views",
	"time_created",
	"time_updated",
}

// likePattern escapes LIKE metacharacters in a free-text search term and wraps it
// in wildcards for a substring match.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}

// jobFilterConjunction builds the WHERE conjunction for a job listing filter.
func jobFilterConjunction(filter *model.JobFilter) sq.And {
	conjunction := sq.And{}
	if filter == nil {
		return conjunction
	}
	if filter.City != "" {
		conjunction = append(conjunction, sq.Eq{"city": filter.City})
	}
	if filter.Role != "" {
		conjunction = append(conjunction, sq.Eq{"job_role": filter.Role})
	}
	if filter.Email != "" {
		conjunction = append(conjunction, sq.Eq{"lower(email)": strings.ToLower(filter.Email)})
	}
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		conjunction = append(conjunction, sq.Or{
			sq.ILike{"job_role": pattern},
			sq.ILike{"city": pattern},
			sq.ILike{"company_name": pattern},
		})
	}
	return conjunction
}

// SaveJob saves a single job posting, scanning the generated identifier into the
// job structure.
func SaveJob(ctx context.Context, tx *sql.Tx, job *model.Job) error {
	wrapMsg := "unable to save the job posting"

	// Build the insert statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("jobs").
		Columns(
			"name",
			"company_name",
			"phone",
			"email",
			"city",
			"job_role",
			"description",
			"is_urgent",
			"urgent_until",
			"views",
			"time_created",
			"time_updated").
		Values(
			job.Name,
			job.CompanyName,
			job.Phone,
			job.Email,
			job.City,
			job.JobRole,
			job.Description,
			job.IsUrgent,
			nullableTime(job.UrgentUntil),
			job.Views,
			job.TimeCreated,
			job.TimeUpdated).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the insert statement, scanning the ID into the job structure.
	row := tx.QueryRowContext(ctx, statement, args...)
	err = row.Scan(&job.ID)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// GetJob looks up a single job posting by ID. A nil job is returned without an
// error if no posting with the given ID exists.
func GetJob(ctx context.Context, tx *sql.Tx, id string) (*model.Job, error) {
	wrapMsg := fmt.Sprintf("unable to look up the job posting with ID `%s`", id)

	// Build the query.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(jobColumns...).
		From("jobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Query the database.
	row := tx.QueryRowContext(ctx, statement, args...)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return job, nil
}

// CountJobs counts the job postings matching a listing filter.
func CountJobs(ctx context.Context, tx *sql.Tx, filter *model.JobFilter) (int64, error) {
	wrapMsg := "unable to count job postings"
	var total int64

	// Build the statement to count the matching postings.
	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("count(*)").
		From("jobs")
	if conjunction := jobFilterConjunction(filter); len(conjunction) > 0 {
		builder = builder.Where(conjunction)
	}
	statement, args, err := builder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	// Execute the statement.
	err = tx.QueryRowContext(ctx, statement, args...).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	return total, nil
}

// ListJobs lists job postings matching a filter, newest first. The caller applies
// the derived urgent-active ordering to the returned page.
func ListJobs(ctx context.Context, tx *sql.Tx, filter *model.JobFilter, limit, offset uint64) ([]model.Job, error) {
	wrapMsg := "unable to list job postings"

	// Build the query.
	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(jobColumns...).
		From("jobs").
		OrderBy("time_created DESC").
		Limit(limit).
		Offset(offset)
	if conjunction := jobFilterConjunction(filter); len(conjunction) > 0 {
		builder = builder.Where(conjunction)
	}
	statement, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Query the database.
	rows, err := tx.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	// Scan the result set.
	jobs := make([]model.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return jobs, nil
}

// UpdateJob stores the mutable fields of a job posting. The caller is responsible
// for having merged the requested changes into the job structure first.
func UpdateJob(ctx context.Context, tx *sql.Tx, job *model.Job) error {
	wrapMsg := fmt.Sprintf("unable to update the job posting with ID `%s`", job.ID)

	// Build the update statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update("jobs").
		Set("name", job.Name).
		Set("company_name", job.CompanyName).
		Set("phone", job.Phone).
		Set("city", job.City).
		Set("job_role", job.JobRole).
		Set("description", job.Description).
		Set("is_urgent", job.IsUrgent).
		Set("urgent_until", nullableTime(job.UrgentUntil)).
		Set("time_updated", job.TimeUpdated).
		Where(sq.Eq{"id": job.ID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the update statement and verify that the correct number of rows was affected.
	result, err := tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	return checkOneRowAffected(result, wrapMsg)
}

// DeleteJob removes a job posting.
func DeleteJob(ctx context.Context, tx *sql.Tx, id string) error {
	wrapMsg := fmt.Sprintf("unable to delete the job posting with ID `%s`", id)

	// Build the delete statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Delete("jobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the delete statement and verify that the correct number of rows was affected.
	result, err := tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	return checkOneRowAffected(result, wrapMsg)
}

// IncrementJobViews adds one to the view counter of a job posting.
func IncrementJobViews(ctx context.Context, tx *sql.Tx, id string) error {
	wrapMsg := fmt.Sprintf("unable to increment the view counter for the job posting with ID `%s`", id)

	// Build the update statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update("jobs").
		Set("views", sq.Expr("views + 1")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the update statement.
	_, err = tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// PurgeExpiredJobs removes every job posting created before the cutoff time,
// returning the number of postings that were removed. This enforces the
// time-to-live on postings.
func PurgeExpiredJobs(ctx context.Context, tx *sql.Tx, cutoff time.Time) (int64, error) {
	wrapMsg := "unable to purge expired job postings"

	// Build the delete statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Delete("jobs").
		Where(sq.Lt{"time_created": cutoff}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	// Execute the delete statement.
	result, err := tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	return rowsAffected, nil
}

// rowScanner lets scanJob work with both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanJob scans a single job row.
func scanJob(row rowScanner) (*model.Job, error) {
	var job model.Job
	var urgentUntil sql.NullTime
	err := row.Scan(
		&job.ID,
		&job.Name,
		&job.CompanyName,
		&job.Phone,
		&job.Email,
		&job.City,
		&job.JobRole,
		&job.Description,
		&job.IsUrgent,
		&urgentUntil,
		&job.Views,
		&job.TimeCreated,
		&job.TimeUpdated,
	)
	if err != nil {
		return nil, err
	}
	if urgentUntil.Valid {
		job.UrgentUntil = urgentUntil.Time
	}
	return &job, nil
}

// nullableTime converts a zero time to a NULL database value.
func nullableTime(timestamp time.Time) interface{} {
	if timestamp.IsZero() {
		return nil
	}
	return timestamp
}

// checkOneRowAffected verifies that a statement affected exactly one row.
func checkOneRowAffected(result sql.Result, wrapMsg string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if rowsAffected != 1 {
		return fmt.Errorf("%s: unexpected number of rows affected: %d", wrapMsg, rowsAffected)
	}
	return nil
}
