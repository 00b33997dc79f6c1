package student

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"schoolattend/internal/store"
)

const selectStudent = `
SELECT s.id, s.school_code, s.zid, s.class_name, s.section, s.tag_id, s.full_name,
       s.admission_no, s.phone, s.status, s.created_by, s.ip_address, s.created_at,
       p.father_name, p.father_email, p.address
FROM student_master s
LEFT JOIN student_parent_detail p ON p.student_id = s.id`

const upsertParent = `
INSERT INTO student_parent_detail (student_id, father_name, father_email, address)
VALUES ($1, $2, $3, $4)
ON CONFLICT (student_id) DO UPDATE SET
  father_name  = COALESCE(EXCLUDED.father_name, student_parent_detail.father_name),
  father_email = COALESCE(EXCLUDED.father_email, student_parent_detail.father_email),
  address      = COALESCE(EXCLUDED.address, student_parent_detail.address),
  updated_at   = NOW()`

// Repository persists students and their parent detail.
type Repository struct {
	db *store.DB
}

func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.SchoolCode, &s.Zid, &s.ClassName, &s.Section, &s.TagID, &s.FullName,
		&s.AdmissionNo, &s.Phone, &s.Status, &s.CreatedBy, &s.IPAddress, &s.CreatedAt,
		&s.FatherName, &s.FatherEmail, &s.Address)
	if err != nil {
		return Student{}, err
	}
	s.CreateDate = s.CreatedAt.Format(CreateDateLayout)
	return s, nil
}

// List returns students matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Student, error) {
	var (
		clauses []string
		args    []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := "$" + strconv.Itoa(len(args))
		clauses = append(clauses, "(s.full_name ILIKE "+n+" OR s.admission_no ILIKE "+n+
			" OR s.tag_id ILIKE "+n+" OR s.phone ILIKE "+n+")")
	}
	if c := strings.TrimSpace(f.ClassName); c != "" {
		args = append(args, c)
		clauses = append(clauses, "s.class_name = $"+strconv.Itoa(len(args)))
	}

	query := selectStudent
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)
	query += " ORDER BY s.id DESC LIMIT $" + strconv.Itoa(len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.Client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list students")
	}
	defer rows.Close()

	out := []Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan student")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get returns the student with id, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (Student, error) {
	return r.one(ctx, selectStudent+" WHERE s.id = $1", id)
}

// FindByTag looks a student up by trimmed tag id.
func (r *Repository) FindByTag(ctx context.Context, tag string) (Student, error) {
	return r.one(ctx, selectStudent+" WHERE btrim(s.tag_id) = btrim($1)", tag)
}

// FindByAdmission looks a student up by admission number.
func (r *Repository) FindByAdmission(ctx context.Context, admissionNo string) (Student, error) {
	return r.one(ctx, selectStudent+" WHERE s.admission_no = $1", strings.TrimSpace(admissionNo))
}

func (r *Repository) one(ctx context.Context, query string, args ...any) (Student, error) {
	s, err := scanStudent(r.db.Client.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, errors.Wrap(err, "get student")
	}
	return s, nil
}

// Create inserts a student and, when present, its parent detail in one
// transaction. Existing tag ids and admission numbers are locked and checked
// before the insert.
func (r *Repository) Create(ctx context.Context, rec Record) (Student, *Parent, error) {
	tx, err := r.db.Client.BeginTx(ctx, nil)
	if err != nil {
		return Student{}, nil, errors.Wrap(err, "begin create student")
	}
	defer store.Rollback(tx)

	if err := lockedCheck(ctx, tx, "tag_id", rec.TagID, 0, ErrDuplicateTag); err != nil {
		return Student{}, nil, err
	}
	if err := lockedCheck(ctx, tx, "admission_no", rec.AdmissionNo, 0, ErrDuplicateAdmission); err != nil {
		return Student{}, nil, err
	}

	id, err := insertStudent(ctx, tx, rec)
	if err != nil {
		return Student{}, nil, err
	}

	var parent *Parent
	if rec.HasParent() {
		if _, err := tx.ExecContext(ctx, upsertParent, id,
			store.NullString(rec.FatherName), store.NullString(rec.FatherEmail), store.NullString(rec.Address)); err != nil {
			return Student{}, nil, errors.Wrap(err, "insert parent detail")
		}
		parent = &Parent{
			StudentID:   id,
			FatherName:  ptr(rec.FatherName),
			FatherEmail: ptr(rec.FatherEmail),
			Address:     ptr(rec.Address),
		}
	}

	if err := tx.Commit(); err != nil {
		return Student{}, nil, errors.Wrap(mapUnique(err), "commit create student")
	}

	s, err := r.Get(ctx, id)
	return s, parent, err
}

// Update applies the supplied members of p to the student with id.
func (r *Repository) Update(ctx context.Context, id int64, p Patch) (Student, error) {
	tx, err := r.db.Client.BeginTx(ctx, nil)
	if err != nil {
		return Student{}, errors.Wrap(err, "begin update student")
	}
	defer store.Rollback(tx)

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM student_master WHERE id = $1 FOR UPDATE`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, errors.Wrap(err, "lock student")
	}

	if p.TagID.Set {
		if err := lockedCheck(ctx, tx, "tag_id", p.TagID.Text(), id, ErrDuplicateTag); err != nil {
			return Student{}, err
		}
	}
	if p.AdmissionNo.Set {
		if err := lockedCheck(ctx, tx, "admission_no", p.AdmissionNo.Text(), id, ErrDuplicateAdmission); err != nil {
			return Student{}, err
		}
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, o Optional) {
		if !o.Set {
			return
		}
		args = append(args, nullable(o))
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	set("class_name", p.ClassName)
	set("section", p.Section)
	set("tag_id", p.TagID)
	set("admission_no", p.AdmissionNo)
	set("phone", p.Phone)
	set("created_by", p.CreatedBy)
	if p.FullName.Set {
		args = append(args, p.FullName.Text())
		sets = append(sets, "full_name = $"+strconv.Itoa(len(args)))
	}
	if p.Status.Set {
		var status any
		if v := p.Status.Text(); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Student{}, &ValidationError{Messages: []string{"Status must be a number"}}
			}
			status = n
		}
		args = append(args, status)
		sets = append(sets, "status = COALESCE($"+strconv.Itoa(len(args))+"::smallint, status)")
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := "UPDATE student_master SET " + strings.Join(sets, ", ") +
			", updated_at = NOW() WHERE id = $" + strconv.Itoa(len(args))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return Student{}, errors.Wrap(mapUnique(err), "update student")
		}
	}

	if p.TouchesParent() {
		if _, err := tx.ExecContext(ctx, upsertParent, id,
			nullable(p.FatherName), nullable(p.FatherEmail), nullable(p.Address)); err != nil {
			return Student{}, errors.Wrap(err, "update parent detail")
		}
	}

	if err := tx.Commit(); err != nil {
		return Student{}, errors.Wrap(mapUnique(err), "commit update student")
	}
	return r.Get(ctx, id)
}

// Delete removes a student and its parent detail. It returns ErrNotFound
// when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.Client.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin delete student")
	}
	defer store.Rollback(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM student_parent_detail WHERE student_id = $1`, id); err != nil {
		return errors.Wrap(err, "delete parent detail")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM student_master WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete student")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete student")
	}
	if n == 0 {
		return ErrNotFound
	}
	return errors.Wrap(tx.Commit(), "commit delete student")
}

// FindConflicts returns stored students holding any of the given admission
// numbers or tag ids.
func (r *Repository) FindConflicts(ctx context.Context, admissions, tags []string) ([]Conflict, error) {
	if len(admissions) == 0 && len(tags) == 0 {
		return nil, nil
	}
	if admissions == nil {
		admissions = []string{}
	}
	if tags == nil {
		tags = []string{}
	}
	rows, err := r.db.Client.QueryContext(ctx, `
		SELECT id, COALESCE(admission_no, ''), COALESCE(btrim(tag_id), '')
		FROM student_master
		WHERE admission_no = ANY($1) OR btrim(tag_id) = ANY($2)`, admissions, tags)
	if err != nil {
		return nil, errors.Wrap(err, "find import conflicts")
	}
	defer rows.Close()

	var out []Conflict
	for rows.Next() {
		var c Conflict
		if err := rows.Scan(&c.StudentID, &c.AdmissionNo, &c.TagID); err != nil {
			return nil, errors.Wrap(err, "scan conflict")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertImported writes an imported row keyed by admission number. It reports
// whether a new student was inserted rather than an existing one updated.
func (r *Repository) UpsertImported(ctx context.Context, rec Record) (int64, bool, error) {
	tx, err := r.db.Client.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, errors.Wrap(err, "begin import row")
	}
	defer store.Rollback(tx)

	var (
		id       int64
		inserted = true
	)
	if strings.TrimSpace(rec.AdmissionNo) == "" {
		id, err = insertStudent(ctx, tx, rec)
	} else {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO student_master
			  (school_code, zid, class_name, section, tag_id, full_name, admission_no, phone, status, created_by, ip_address)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (admission_no) DO UPDATE SET
			  class_name = EXCLUDED.class_name,
			  section    = EXCLUDED.section,
			  tag_id     = EXCLUDED.tag_id,
			  full_name  = EXCLUDED.full_name,
			  phone      = EXCLUDED.phone,
			  status     = EXCLUDED.status,
			  created_by = EXCLUDED.created_by,
			  updated_at = NOW()
			RETURNING id, (xmax = 0)`, recordArgs(rec)...).Scan(&id, &inserted)
		err = mapUnique(err)
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "upsert student")
	}

	if rec.HasParent() {
		if _, err := tx.ExecContext(ctx, upsertParent, id,
			store.NullString(rec.FatherName), store.NullString(rec.FatherEmail), store.NullString(rec.Address)); err != nil {
			return 0, false, errors.Wrap(err, "upsert parent detail")
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, false, errors.Wrap(err, "commit import row")
	}
	return id, inserted, nil
}

func insertStudent(ctx context.Context, tx *sql.Tx, rec Record) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO student_master
		  (school_code, zid, class_name, section, tag_id, full_name, admission_no, phone, status, created_by, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`, recordArgs(rec)...).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(mapUnique(err), "insert student")
	}
	return id, nil
}

func recordArgs(rec Record) []any {
	return []any{
		store.NullString(rec.SchoolCode),
		store.NullString(rec.Zid),
		store.NullString(rec.ClassName),
		store.NullString(rec.Section),
		store.NullString(rec.TagID),
		strings.TrimSpace(rec.FullName),
		store.NullString(rec.AdmissionNo),
		store.NullString(rec.Phone),
		rec.Status,
		store.NullString(rec.CreatedBy),
		store.NullString(rec.IPAddress),
	}
}

// lockedCheck fails with dup when another student than self holds value in
// column. Empty values are never checked.
func lockedCheck(ctx context.Context, tx *sql.Tx, column, value string, self int64, dup error) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	var id int64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM student_master WHERE btrim("+column+") = $1 AND id <> $2 FOR UPDATE", value, self).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return errors.Wrapf(err, "check %s", column)
	default:
		return dup
	}
}

func mapUnique(err error) error {
	constraint, ok := store.UniqueViolation(err)
	if !ok {
		return err
	}
	switch {
	case strings.Contains(constraint, "tag_id"):
		return ErrDuplicateTag
	case strings.Contains(constraint, "admission_no"):
		return ErrDuplicateAdmission
	}
	return err
}

func nullable(o Optional) sql.NullString {
	return store.NullString(o.Text())
}

func ptr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
