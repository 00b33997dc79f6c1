package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// Repository reads the student roster joined with the tag scan log.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Roster returns every student with the scans of their (trimmed) tag id in
// [from, to), ordered by student id.
func (r *Repository) Roster(ctx context.Context, from, to time.Time) ([]StudentScans, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, COALESCE(btrim(s.tag_id), ''), COALESCE(s.admission_no, ''),
		       s.full_name, COALESCE(s.phone, ''), t.scanned_at
		FROM student_master s
		LEFT JOIN tag_scan_log t
		  ON btrim(t.tag_id) = btrim(s.tag_id)
		 AND t.scanned_at >= $1 AND t.scanned_at < $2
		ORDER BY s.id, t.scanned_at
	`, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "query roster")
	}
	defer rows.Close()

	var roster []StudentScans
	for rows.Next() {
		var (
			s         StudentScans
			scannedAt sql.NullTime
		)
		if err := rows.Scan(&s.StudentID, &s.TagID, &s.AdmissionNo, &s.Name, &s.Phone, &scannedAt); err != nil {
			return nil, errors.Wrap(err, "scan roster row")
		}
		if n := len(roster); n == 0 || roster[n-1].StudentID != s.StudentID {
			roster = append(roster, s)
		}
		if scannedAt.Valid {
			last := &roster[len(roster)-1]
			last.Scans = append(last.Scans, scannedAt.Time)
		}
	}
	return roster, errors.Wrap(rows.Err(), "iterate roster")
}
