package messages

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"schoolattend/internal/store"
)

const (
	// UserNotFound is the gateway response recorded when a student has no
	// phone number.
	UserNotFound = "USER NOT FOUND"

	FailureUserNotFound = "user_not_found"

	createDateLayout = "2006-01-02 15:04:05"
	defaultLimit     = 500
	MaxLimit         = 1000
)

var ErrInvalidStatus = errors.New("status must be a number")

// Message is one entry of the SMS log.
type Message struct {
	ID          int64     `json:"smsSeqNbr"`
	ResidenceID *string   `json:"residenceId"`
	MobileNo    *string   `json:"mobileNo"`
	Text        *string   `json:"smsText"`
	APIResponse *string   `json:"apiResponse"`
	Status      int       `json:"status"`
	CreatedAt   time.Time `json:"-"`
	CreateDate  string    `json:"createDate"`
}

// Entry is a log line to append.
type Entry struct {
	ResidenceID string
	MobileNo    string
	Text        string
	APIResponse string
	Status      int
}

// Filter narrows List. Status is the raw query value.
type Filter struct {
	Search      string
	Status      string
	FailureType string
	Limit       int
}

// limit clamps Limit to (0, MaxLimit], defaulting when unset.
func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	}
	return f.Limit
}

// where builds the WHERE clause and its arguments.
func (f Filter) where() (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+q+"%")
		n := "$" + strconv.Itoa(len(args))
		clauses = append(clauses, "(residence_id ILIKE "+n+" OR mobile_no ILIKE "+n+" OR sms_text ILIKE "+n+")")
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		status, err := strconv.Atoi(s)
		if err != nil {
			return "", nil, ErrInvalidStatus
		}
		args = append(args, status)
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	if strings.TrimSpace(f.FailureType) == FailureUserNotFound {
		args = append(args, UserNotFound)
		clauses = append(clauses, "mobile_no IS NULL AND api_response = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// Repository reads and appends the SMS log.
type Repository struct {
	db *store.DB
}

func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// List returns log entries matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Message, error) {
	where, args, err := f.where()
	if err != nil {
		return nil, err
	}
	args = append(args, f.limit())
	query := `SELECT id, residence_id, mobile_no, sms_text, api_response, status, created_at FROM sms_log` +
		where + " ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.db.Client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ResidenceID, &m.MobileNo, &m.Text, &m.APIResponse, &m.Status, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		m.CreateDate = m.CreatedAt.Format(createDateLayout)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Insert appends e to the log. An empty mobile number is stored as NULL.
func (r *Repository) Insert(ctx context.Context, e Entry) (int64, error) {
	var id int64
	err := r.db.Client.QueryRowContext(ctx, `
		INSERT INTO sms_log (residence_id, mobile_no, sms_text, api_response, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		store.NullString(e.ResidenceID), store.NullString(e.MobileNo), e.Text, e.APIResponse, e.Status,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert message")
	}
	return id, nil
}
