package importer

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shrimpsizemoose/trekker/logger"

	"schoolattend/internal/config"
	"schoolattend/internal/metrics"
	"schoolattend/internal/student"
)

// ErrNoRows is returned for an import without a single usable row.
var ErrNoRows = errors.New("No valid student rows found in uploaded file")

// Store is what reconciliation needs from persistence.
type Store interface {
	FindConflicts(ctx context.Context, admissions, tags []string) ([]student.Conflict, error)
	UpsertImported(ctx context.Context, rec student.Record) (id int64, inserted bool, err error)
	Create(ctx context.Context, rec student.Record) (student.Student, *student.Parent, error)
}

// RowError reports why a single row was not written.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// Result tallies a reconciled import.
type Result struct {
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Errors   []RowError `json:"errors"`
}

// DuplicateError rejects a whole import before any write.
type DuplicateError struct {
	InStore    bool
	Admissions []string
	Tags       []string
}

func (e *DuplicateError) Error() string {
	if e.InStore {
		return "Duplicate RFID or Admission No already exists in database"
	}
	return "Duplicate RFID or Admission No found in uploaded file"
}

// BulkError reports a failed row of a JSON bulk create.
type BulkError struct {
	Row   Row    `json:"row"`
	Error string `json:"error"`
}

// BulkResult lists the ids created by a JSON bulk create.
type BulkResult struct {
	Inserted []int64     `json:"inserted"`
	Errors   []BulkError `json:"errors"`
}

// Engine reconciles candidate rows against stored students.
type Engine struct {
	store    Store
	defaults config.Defaults
}

func NewEngine(store Store, defaults config.Defaults) *Engine {
	return &Engine{store: store, defaults: defaults}
}

// Reconcile rejects the batch when an admission number or tag id repeats in
// it or already exists in the store. Otherwise each row is upserted by
// admission number in its own transaction; a failing row is recorded and the
// rest continue. Cancelling ctx stops before the next row.
func (e *Engine) Reconcile(ctx context.Context, rows []Row) (Result, error) {
	res := Result{Errors: []RowError{}}
	if len(rows) == 0 {
		metrics.ImportRejectedTotal.WithLabelValues("empty").Inc()
		return res, ErrNoRows
	}

	normalized := make([]Row, len(rows))
	for i, r := range rows {
		normalized[i] = r.Normalize()
	}

	if dup := batchDuplicates(normalized); dup != nil {
		metrics.ImportRejectedTotal.WithLabelValues("batch_duplicate").Inc()
		return res, dup
	}

	admissions, tags := keys(normalized)
	conflicts, err := e.store.FindConflicts(ctx, admissions, tags)
	if err != nil {
		return res, errors.Wrap(err, "check stored duplicates")
	}
	if dup := storeDuplicates(admissions, tags, conflicts); dup != nil {
		metrics.ImportRejectedTotal.WithLabelValues("store_duplicate").Inc()
		return res, dup
	}

	for _, r := range normalized {
		if err := ctx.Err(); err != nil {
			logger.Info.Printf("import cancelled after %d inserted, %d updated", res.Inserted, res.Updated)
			return res, err
		}
		rec, err := r.Record(e.defaults, e.defaults.ExcelCreator)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: r.Line, Error: err.Error()})
			metrics.ImportRowsTotal.WithLabelValues("excel", "error").Inc()
			continue
		}
		_, inserted, err := e.store.UpsertImported(ctx, rec)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, RowError{Row: r.Line, Error: rowMessage(err)})
			metrics.ImportRowsTotal.WithLabelValues("excel", "error").Inc()
		case inserted:
			res.Inserted++
			metrics.ImportRowsTotal.WithLabelValues("excel", "inserted").Inc()
		default:
			res.Updated++
			metrics.ImportRowsTotal.WithLabelValues("excel", "updated").Inc()
		}
	}
	logger.Info.Printf("import finished: %d inserted, %d updated, %d failed", res.Inserted, res.Updated, len(res.Errors))
	return res, nil
}

// Bulk creates each row independently with create semantics. Existing
// students are never updated.
func (e *Engine) Bulk(ctx context.Context, rows []Row) (BulkResult, error) {
	res := BulkResult{Inserted: []int64{}, Errors: []BulkError{}}
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r = r.Normalize()
		rec, err := r.Record(e.defaults, e.defaults.ImportCreator)
		if err == nil {
			var st student.Student
			st, _, err = e.store.Create(ctx, rec)
			if err == nil {
				res.Inserted = append(res.Inserted, st.ID)
				metrics.ImportRowsTotal.WithLabelValues("json", "inserted").Inc()
				continue
			}
		}
		res.Errors = append(res.Errors, BulkError{Row: r, Error: rowMessage(err)})
		metrics.ImportRowsTotal.WithLabelValues("json", "error").Inc()
	}
	return res, nil
}

func batchDuplicates(rows []Row) *DuplicateError {
	seenAdm, seenTag := map[string]int{}, map[string]int{}
	dup := &DuplicateError{}
	for _, r := range rows {
		if r.AdmissionNo != "" {
			seenAdm[r.AdmissionNo]++
			if seenAdm[r.AdmissionNo] == 2 {
				dup.Admissions = append(dup.Admissions, r.AdmissionNo)
			}
		}
		if r.TagID != "" {
			seenTag[r.TagID]++
			if seenTag[r.TagID] == 2 {
				dup.Tags = append(dup.Tags, r.TagID)
			}
		}
	}
	if len(dup.Admissions) == 0 && len(dup.Tags) == 0 {
		return nil
	}
	return dup
}

func keys(rows []Row) (admissions, tags []string) {
	for _, r := range rows {
		if r.AdmissionNo != "" {
			admissions = append(admissions, r.AdmissionNo)
		}
		if r.TagID != "" {
			tags = append(tags, r.TagID)
		}
	}
	return admissions, tags
}

func storeDuplicates(admissions, tags []string, conflicts []student.Conflict) *DuplicateError {
	if len(conflicts) == 0 {
		return nil
	}
	wantAdm, wantTag := set(admissions), set(tags)
	dup := &DuplicateError{InStore: true}
	seenAdm, seenTag := map[string]bool{}, map[string]bool{}
	for _, c := range conflicts {
		if wantAdm[c.AdmissionNo] && !seenAdm[c.AdmissionNo] {
			seenAdm[c.AdmissionNo] = true
			dup.Admissions = append(dup.Admissions, c.AdmissionNo)
		}
		if wantTag[c.TagID] && !seenTag[c.TagID] {
			seenTag[c.TagID] = true
			dup.Tags = append(dup.Tags, c.TagID)
		}
	}
	return dup
}

func set(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// rowMessage strips wrapping context from duplicate errors.
func rowMessage(err error) string {
	switch {
	case errors.Is(err, student.ErrDuplicateTag):
		return student.ErrDuplicateTag.Error()
	case errors.Is(err, student.ErrDuplicateAdmission):
		return student.ErrDuplicateAdmission.Error()
	}
	return strings.TrimSpace(err.Error())
}
