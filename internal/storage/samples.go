// ABOUTME: Sample CRUD operations for SQLite storage.
// ABOUTME: Also serves as the export data provider via Fetch and OldestSampleDate.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthexport/internal/models"
)

const sampleColumns = `id, sample_type, start_at, end_at, source, value, unit, category`

// SampleFilter narrows ListSamples. Zero fields are ignored.
type SampleFilter struct {
	SampleType *models.SampleType
	Source     string
	// Range matches samples whose start lies in [Range.Start, Range.End).
	Range *models.TimeRange
	Since *time.Time
	Limit int
	// Newest orders most recent first.
	Newest bool
}

// CreateSample stores a new sample. It returns false when a sample with
// the same ID already exists.
func (d *DB) CreateSample(ctx context.Context, s *models.Sample) (bool, error) {
	return insertSample(ctx, d.db, s)
}

// CreateSamples stores samples in one transaction and returns how many
// were new.
func (d *DB) CreateSamples(ctx context.Context, samples []models.Sample) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for i := range samples {
		ok, err := insertSample(ctx, tx, &samples[i])
		if err != nil {
			return 0, err
		}
		if ok {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return inserted, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSample(ctx context.Context, db execer, s *models.Sample) (bool, error) {
	if !models.IsValidSampleType(string(s.SampleType)) {
		return false, fmt.Errorf("create sample: unknown sample type %q", s.SampleType)
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.End.Before(s.Start) {
		return false, fmt.Errorf("create sample %s: end precedes start", s.ID)
	}
	if s.Unit == "" {
		s.Unit = models.SampleUnits[s.SampleType]
	}

	query := `
		INSERT INTO samples (` + sampleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	result, err := db.ExecContext(ctx, query,
		s.ID.String(),
		string(s.SampleType),
		s.Start.UnixNano(),
		s.End.UnixNano(),
		s.Source,
		s.Value,
		s.Unit,
		s.Category,
	)
	if err != nil {
		return false, fmt.Errorf("create sample: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create sample: %w", err)
	}
	return affected > 0, nil
}

// GetSample retrieves a sample by ID or ID prefix.
func (d *DB) GetSample(ctx context.Context, idOrPrefix string) (*models.Sample, error) {
	id, err := d.resolveSampleID(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}
	row := d.db.QueryRowContext(ctx, `SELECT `+sampleColumns+` FROM samples WHERE id = ?`, id)
	s, err := scanSample(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("not found: %s", idOrPrefix)
		}
		return nil, err
	}
	return s, nil
}

// ListSamples returns samples matching f, oldest first unless f.Newest.
func (d *DB) ListSamples(ctx context.Context, f SampleFilter) ([]models.Sample, error) {
	var where []string
	var args []any

	if f.SampleType != nil {
		where = append(where, "sample_type = ?")
		args = append(args, string(*f.SampleType))
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if f.Since != nil {
		where = append(where, "start_at >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if f.Range != nil {
		where = append(where, "start_at >= ? AND start_at < ?")
		args = append(args, f.Range.Start.UnixNano(), f.Range.End.UnixNano())
	}

	query := `SELECT ` + sampleColumns + ` FROM samples`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Newest {
		query += " ORDER BY start_at DESC, id DESC"
	} else {
		query += " ORDER BY start_at ASC, id ASC"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var samples []models.Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, *s)
	}
	return samples, rows.Err()
}

// DeleteSample removes a sample by ID or prefix.
func (d *DB) DeleteSample(ctx context.Context, idOrPrefix string) error {
	id, err := d.resolveSampleID(ctx, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete sample: %w", err)
	}

	result, err := d.db.ExecContext(ctx, "DELETE FROM samples WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete sample: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sample: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("not found: %s", idOrPrefix)
	}
	return nil
}

// CountSamples returns the number of stored samples per type.
func (d *DB) CountSamples(ctx context.Context) (map[models.SampleType]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT sample_type, COUNT(*) FROM samples GROUP BY sample_type`)
	if err != nil {
		return nil, fmt.Errorf("count samples: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SampleType]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.SampleType(st)] = n
	}
	return counts, rows.Err()
}

// Fetch returns samples of one type starting in r, oldest first.
func (d *DB) Fetch(ctx context.Context, st models.SampleType, r models.TimeRange) ([]models.Sample, error) {
	return d.ListSamples(ctx, SampleFilter{SampleType: &st, Range: &r})
}

// OldestSampleDate returns the start of the earliest sample of st.
func (d *DB) OldestSampleDate(ctx context.Context, st models.SampleType) (time.Time, bool, error) {
	var oldest sql.NullInt64
	err := d.db.QueryRowContext(ctx, `SELECT MIN(start_at) FROM samples WHERE sample_type = ?`, string(st)).Scan(&oldest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest sample: %w", err)
	}
	if !oldest.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(0, oldest.Int64).UTC(), true, nil
}

// resolveSampleID finds the full ID from a prefix.
func (d *DB) resolveSampleID(ctx context.Context, idOrPrefix string) (string, error) {
	if _, err := uuid.Parse(idOrPrefix); err == nil {
		return idOrPrefix, nil
	}

	rows, err := d.db.QueryContext(ctx, `SELECT id FROM samples WHERE id LIKE ? || '%'`, idOrPrefix)
	if err != nil {
		return "", fmt.Errorf("resolve sample ID: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan sample ID: %w", err)
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve sample ID: %w", err)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("not found: %s", idOrPrefix)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous prefix %s: matches multiple records", idOrPrefix)
	}
	return matches[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(row scanner) (*models.Sample, error) {
	var s models.Sample
	var idStr, sampleType string
	var start, end int64

	if err := row.Scan(&idStr, &sampleType, &start, &end, &s.Source, &s.Value, &s.Unit, &s.Category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan sample: %w", err)
	}

	s.ID, _ = uuid.Parse(idStr)
	s.SampleType = models.SampleType(sampleType)
	s.Start = time.Unix(0, start).UTC()
	s.End = time.Unix(0, end).UTC()
	return &s, nil
}
