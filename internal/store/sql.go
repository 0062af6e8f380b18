package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mailtriage/internal/database"
	"mailtriage/internal/models"

	"github.com/jmoiron/sqlx"
)

const emailColumns = `id, sender, subject, body, received_at, category, sentiment, priority,
	language, summary, customer_id, forwarded_to, status, response_time`

// SQLStore persists records in PostgreSQL or MySQL through sqlx
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open connection and creates the tables if needed
func NewSQLStore(ctx context.Context, db *sqlx.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// createTables creates the emails and responses tables if they don't exist
func (s *SQLStore) createTables(ctx context.Context) error {
	ts := "TIMESTAMP"
	if s.db.DriverName() == database.DriverMySQL {
		ts = "DATETIME(6)"
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS emails (
			id VARCHAR(64) PRIMARY KEY,
			sender VARCHAR(512) NOT NULL,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			received_at %[1]s NOT NULL,
			category VARCHAR(32) NOT NULL,
			sentiment VARCHAR(32) NOT NULL,
			priority INT NOT NULL,
			language VARCHAR(16) NOT NULL,
			summary TEXT NOT NULL,
			customer_id VARCHAR(32) NULL,
			forwarded_to VARCHAR(512) NULL,
			status VARCHAR(16) NOT NULL,
			response_time %[1]s NULL
		)`, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS responses (
			id VARCHAR(64) PRIMARY KEY,
			recipient VARCHAR(512) NOT NULL,
			subject TEXT NOT NULL,
			response_text TEXT NOT NULL,
			category VARCHAR(32) NOT NULL,
			is_auto BOOLEAN NOT NULL,
			created_at %[1]s NOT NULL
		)`, ts),
	}

	for _, stmt := range statements {
		if _, err := database.ExecuteWriteQuery(ctx, s.db, stmt); err != nil {
			return fmt.Errorf("%w: failed to create tables: %v", models.ErrStorage, err)
		}
	}
	return nil
}

func (s *SQLStore) InsertEmail(ctx context.Context, rec *models.EmailRecord) error {
	query := `INSERT INTO emails (` + emailColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := database.ExecuteWriteQuery(ctx, s.db, query,
		rec.ID, rec.Sender, rec.Subject, rec.Body, rec.ReceivedAt.UTC(),
		rec.Category, rec.Sentiment, rec.Priority, rec.Language, rec.Summary,
		rec.CustomerID, rec.ForwardedTo, rec.Status, utcPtr(rec.ResponseTime))
	if err != nil {
		return fmt.Errorf("%w: insert email %s: %v", models.ErrStorage, rec.ID, err)
	}
	return nil
}

func (s *SQLStore) InsertResponse(ctx context.Context, resp *models.ResponseRecord) error {
	query := `INSERT INTO responses (id, recipient, subject, response_text, category, is_auto, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := database.ExecuteWriteQuery(ctx, s.db, query,
		resp.ID, resp.Recipient, resp.Subject, resp.Text, resp.Category, resp.IsAuto, resp.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: insert response %s: %v", models.ErrStorage, resp.ID, err)
	}
	return nil
}

func (s *SQLStore) GetEmail(ctx context.Context, id string) (*models.EmailRecord, error) {
	var rec models.EmailRecord
	query := `SELECT ` + emailColumns + ` FROM emails WHERE id = ?`

	if err := s.db.GetContext(ctx, &rec, s.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get email %s: %v", models.ErrStorage, id, err)
	}
	return &rec, nil
}

func (s *SQLStore) ListEmails(ctx context.Context) ([]models.EmailRecord, error) {
	records := []models.EmailRecord{}
	query := `SELECT ` + emailColumns + ` FROM emails ORDER BY received_at DESC`

	if err := s.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("%w: list emails: %v", models.ErrStorage, err)
	}
	return records, nil
}

func (s *SQLStore) ListByCategory(ctx context.Context) (map[models.Category][]models.EmailRecord, error) {
	records, err := s.ListEmails(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByCategory(records), nil
}

// ListSince reads inside a rolled-back transaction; analytics never writes
func (s *SQLStore) ListSince(ctx context.Context, since time.Time) ([]models.EmailRecord, error) {
	records := []models.EmailRecord{}
	query := `SELECT ` + emailColumns + ` FROM emails WHERE received_at >= ? ORDER BY received_at DESC`

	if err := database.ExecuteReadOnlyQuery(ctx, s.db, &records, query, since.UTC()); err != nil {
		return nil, fmt.Errorf("%w: list emails since %s: %v", models.ErrStorage, since.Format(time.RFC3339), err)
	}
	return records, nil
}

func (s *SQLStore) ResponsesFor(ctx context.Context, recipient, subject string) ([]models.ResponseRecord, error) {
	responses := []models.ResponseRecord{}
	query := `SELECT id, recipient, subject, response_text, category, is_auto, created_at
		FROM responses WHERE recipient = ? ORDER BY created_at ASC`

	if err := s.db.SelectContext(ctx, &responses, s.db.Rebind(query), recipient); err != nil {
		return nil, fmt.Errorf("%w: list responses: %v", models.ErrStorage, err)
	}
	return matchResponses(responses, subject), nil
}

// UpdateStatus is a single row-atomic statement
func (s *SQLStore) UpdateStatus(ctx context.Context, id string, status models.Status, now time.Time) error {
	query := `UPDATE emails SET status = ?,
		response_time = CASE WHEN ? AND response_time IS NULL THEN ? ELSE response_time END
		WHERE id = ?`

	result, err := database.ExecuteWriteQuery(ctx, s.db, query,
		status, status == models.StatusResolved, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: update status of %s: %v", models.ErrStorage, id, err)
	}
	return s.checkUpdated(ctx, result, id)
}

func (s *SQLStore) UpdateCategory(ctx context.Context, id string, category models.Category) error {
	result, err := database.ExecuteWriteQuery(ctx, s.db, `UPDATE emails SET category = ? WHERE id = ?`, category, id)
	if err != nil {
		return fmt.Errorf("%w: update category of %s: %v", models.ErrStorage, id, err)
	}
	return s.checkUpdated(ctx, result, id)
}

func (s *SQLStore) SetForwardedTo(ctx context.Context, id, to string) error {
	result, err := database.ExecuteWriteQuery(ctx, s.db, `UPDATE emails SET forwarded_to = ? WHERE id = ?`, to, id)
	if err != nil {
		return fmt.Errorf("%w: update forward target of %s: %v", models.ErrStorage, id, err)
	}
	return s.checkUpdated(ctx, result, id)
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := database.ExecuteReadOnlyPing(ctx, s.db); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// checkUpdated maps zero affected rows to ErrNotFound. MySQL reports zero for
// rows whose values did not change, so existence is confirmed separately.
func (s *SQLStore) checkUpdated(ctx context.Context, result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err == nil && n > 0 {
		return nil
	}

	var count int
	if err := database.ExecuteReadOnlyQuerySingle(ctx, s.db, &count, `SELECT COUNT(*) FROM emails WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: check email %s: %v", models.ErrStorage, id, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
