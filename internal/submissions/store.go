package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"redline/internal/config"
	"redline/internal/services"
)

const submissionColumns = `id, recipient, subject, body, status, source, file_id, page_count,
	artifact_size, error_message, created_at, updated_at`

// Store manages submission persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the submissions database under the
// configured data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Create inserts a submission with its artifact.
func (s *Store) Create(ctx context.Context, in NewSubmission) (*Submission, error) {
	recipient := strings.TrimSpace(in.Recipient)
	if recipient == "" {
		return nil, services.Wrap(services.ErrValidation, "submissions", "create", "recipient is required", nil)
	}
	if len(in.Artifact) == 0 {
		return nil, services.Wrap(services.ErrValidation, "submissions", "create", "artifact is empty", nil)
	}
	status := in.Status
	if status == "" {
		status = StatusEmailSent
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, services.Wrap(services.ErrValidation, "submissions", "create", err.Error(), nil)
	}

	now := stamp(s.now())
	res, err := s.exec(ctx,
		`INSERT INTO submissions (recipient, subject, body, status, source, file_id, page_count,
			artifact, artifact_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recipient, in.Subject, in.Body, string(status), optional(in.Source), optional(in.FileID),
		in.PageCount, in.Artifact, len(in.Artifact), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches submission metadata. It returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	rec, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return rec, nil
}

// Artifact loads the stored artifact for id.
func (s *Store) Artifact(ctx context.Context, id int64) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT artifact FROM submissions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "submissions", "artifact", fmt.Sprintf("submission %d not found", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return data, nil
}

// List returns submissions newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// UpdateStatus moves a submission to status, recording message for failures.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status Status, message string) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return services.Wrap(services.ErrValidation, "submissions", "update status", err.Error(), nil)
	}
	res, err := s.exec(ctx,
		`UPDATE submissions SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), optional(message), stamp(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.Wrap(services.ErrNotFound, "submissions", "update status", fmt.Sprintf("submission %d not found", id), nil)
	}
	return nil
}

// Stats returns a count of submissions grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("submission stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Count returns the total number of submissions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM submissions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

func scanSubmission(scanner interface{ Scan(dest ...any) error }) (*Submission, error) {
	var (
		rec        Submission
		status     string
		source     sql.NullString
		fileID     sql.NullString
		errMessage sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID, &rec.Recipient, &rec.Subject, &rec.Body, &status, &source, &fileID, &rec.PageCount,
		&rec.ArtifactSize, &errMessage, instant{&rec.CreatedAt}, instant{&rec.UpdatedAt},
	); err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	rec.Source = source.String
	rec.FileID = fileID.String
	rec.ErrorMessage = errMessage.String
	return &rec, nil
}
