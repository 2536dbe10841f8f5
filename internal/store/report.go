package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/akilli-icerik/apiserver/types"
)

// ReportRepository handles persistence for report metadata records.
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report types.Report) (types.Report, error) {
	report.CreatedAt = time.Now()

	const query = `
		INSERT INTO reports (user_id, gcs_url, file_name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		report.UserID,
		report.GCSURL,
		report.FileName,
		report.CreatedAt,
	).Scan(&report.ID); err != nil {
		return types.Report{}, err
	}
	return report, nil
}

// ListByUser returns the user's report records newest-first.
func (r *ReportRepository) ListByUser(ctx context.Context, userID, offset, limit int) ([]types.Report, error) {
	const query = `
		SELECT id, user_id, gcs_url, file_name, created_at
		FROM reports
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]types.Report, 0, limit)
	for rows.Next() {
		var report types.Report
		if err := rows.Scan(
			&report.ID,
			&report.UserID,
			&report.GCSURL,
			&report.FileName,
			&report.CreatedAt,
		); err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}
