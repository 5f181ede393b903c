package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/saudijob/jobboard/model"

	sq "github.com/Masterminds/squirrel"
)

// UpsertPushRegistration stores a push registration, replacing any existing
// registration for the same token. Roles must already be normalized; the token
// is the natural key, so repeated registrations are idempotent.
func UpsertPushRegistration(ctx context.Context, tx *sql.Tx, registration *model.PushRegistration) error {
	wrapMsg := "unable to save the push registration"

	// Build the upsert statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("push_registrations").
		Columns("token", "roles", "platform", "user_agent", "last_seen").
		Values(
			registration.Token,
			pq.Array(registration.Roles),
			registration.Platform,
			registration.UserAgent,
			registration.LastSeen).
		Suffix("ON CONFLICT (token) DO UPDATE SET " +
			"roles = EXCLUDED.roles, " +
			"platform = EXCLUDED.platform, " +
			"user_agent = EXCLUDED.user_agent, " +
			"last_seen = EXCLUDED.last_seen").
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the upsert statement.
	_, err = tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// ListTokensForRole lists the delivery tokens of every registration whose role
// set contains the given role. The comparison is an exact match against the
// normalized roles stored with the registration.
func ListTokensForRole(ctx context.Context, tx *sql.Tx, role string) ([]string, error) {
	wrapMsg := fmt.Sprintf("unable to list delivery tokens for the role `%s`", role)

	// Build the query.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("token").
		From("push_registrations").
		Where(sq.Expr("? = ANY(roles)", role)).
		OrderBy("last_seen DESC").
		ToSql()
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
	tokens := make([]string, 0)
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return tokens, nil
}

// DeletePushRegistrations removes the registrations for the given delivery
// tokens. Tokens with no registration are ignored.
func DeletePushRegistrations(ctx context.Context, tx *sql.Tx, tokens []string) error {
	wrapMsg := "unable to delete push registrations"

	if len(tokens) == 0 {
		return nil
	}

	// Build the delete statement.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Delete("push_registrations").
		Where(sq.Eq{"token": tokens}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the delete statement.
	_, err = tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// CountPushRegistrations counts the stored push registrations.
func CountPushRegistrations(ctx context.Context, tx *sql.Tx) (int64, error) {
	wrapMsg := "unable to count push registrations"
	var total int64

	// Build the statement to count the registrations.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("count(*)").
		From("push_registrations").
		ToSql()
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
