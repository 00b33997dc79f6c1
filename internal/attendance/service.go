package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shrimpsizemoose/trekker/logger"

	"schoolattend/internal/metrics"
	"schoolattend/internal/queue"
)

// DateLayout is the wire format of calendar days.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidRange = errors.New("from must not be after to")
	ErrRangeTooLong = errors.New("date range too long")
)

// RosterSource loads students with their scans in a time window.
type RosterSource interface {
	Roster(ctx context.Context, from, to time.Time) ([]StudentScans, error)
}

// Summary aggregates one student's statuses over several days.
type Summary struct {
	StudentID int64  `json:"id"`
	TagID     string `json:"tagId"`
	Name      string `json:"name"`
	Present   int    `json:"present"`
	Absent    int    `json:"absent"`
	Pending   int    `json:"pending"`
	Days      int    `json:"days"`
}

// CloseResult reports what closing a day queued.
type CloseResult struct {
	Date   time.Time
	Absent int
	Queued int
}

// Service evaluates attendance over the roster.
type Service struct {
	repo      RosterSource
	policy    Policy
	publisher queue.Publisher
	maxDays   int
	now       func() time.Time
}

// NewService creates a service. publisher may be nil, in which case closing a
// day queues nothing.
func NewService(repo RosterSource, policy Policy, publisher queue.Publisher, maxDays int) *Service {
	if policy.Cooldown <= 0 {
		policy.Cooldown = 30 * time.Minute
	}
	if maxDays <= 0 {
		maxDays = 366
	}
	return &Service{repo: repo, policy: policy, publisher: publisher, maxDays: maxDays, now: time.Now}
}

// Policy returns the evaluation rules in use.
func (s *Service) Policy() Policy { return s.policy }

// ParseDate reads a YYYY-MM-DD day in the policy's location.
func (s *Service) ParseDate(v string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(v), s.policy.loc())
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Today evaluates the current day.
func (s *Service) Today(ctx context.Context) (Report, error) {
	return s.Day(ctx, s.now())
}

// Day evaluates a single day.
func (s *Service) Day(ctx context.Context, day time.Time) (Report, error) {
	rows, err := s.evaluate(ctx, day, s.now())
	if err != nil {
		return Report{}, err
	}
	return Report{Rows: rows, Stats: Tally(rows)}, nil
}

// Range evaluates each day of [from, to] independently and concatenates the
// rows in day order.
func (s *Service) Range(ctx context.Context, from, to time.Time) (Report, error) {
	days, err := s.days(from, to)
	if err != nil {
		return Report{}, err
	}
	now := s.now()
	var all []Row
	for _, d := range days {
		rows, err := s.evaluate(ctx, d, now)
		if err != nil {
			return Report{}, err
		}
		all = append(all, rows...)
	}
	return Report{Rows: all, Stats: Tally(all)}, nil
}

// Summary tallies per-student statuses over [from, to], skipping days after
// today.
func (s *Service) Summary(ctx context.Context, from, to time.Time) ([]Summary, error) {
	now := s.now()
	today := s.policy.StartOfDay(now)
	if s.policy.StartOfDay(to).After(today) {
		to = today
	}
	if s.policy.StartOfDay(from).After(to) {
		return []Summary{}, nil
	}
	days, err := s.days(from, to)
	if err != nil {
		return nil, err
	}

	index := map[int64]int{}
	out := []Summary{}
	for _, d := range days {
		rows, err := s.evaluate(ctx, d, now)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			i, ok := index[r.StudentID]
			if !ok {
				i = len(out)
				index[r.StudentID] = i
				out = append(out, Summary{StudentID: r.StudentID, TagID: r.TagID, Name: r.Name})
			}
			out[i].Days++
			switch r.Status {
			case StatusPresent:
				out[i].Present++
			case StatusAbsent:
				out[i].Absent++
			case StatusPending:
				out[i].Pending++
			}
		}
	}
	return out, nil
}

// CloseDay evaluates today and queues a parent notification for every absent
// student. Pending students are treated as absent once the day is closed.
func (s *Service) CloseDay(ctx context.Context) (CloseResult, error) {
	now := s.now()
	closing := s.policy.StartOfDay(now)
	rows, err := s.evaluate(ctx, closing, closing.AddDate(0, 0, 1))
	if err != nil {
		return CloseResult{}, err
	}

	res := CloseResult{Date: closing}
	for _, r := range rows {
		if r.Status != StatusAbsent {
			continue
		}
		res.Absent++
		if s.publisher == nil {
			continue
		}
		msg, err := queue.NewAbsence(queue.Absence{
			StudentID:   r.StudentID,
			AdmissionNo: r.AdmissionNo,
			TagID:       r.TagID,
			Name:        r.Name,
			Phone:       r.Phone,
			Date:        closing.Format(DateLayout),
		})
		if err != nil {
			return res, err
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			logger.Error.Printf("queue absence for student %d: %v", r.StudentID, err)
			continue
		}
		res.Queued++
	}
	logger.Info.Printf("closed %s: %d absent, %d notifications queued", res.Date.Format(DateLayout), res.Absent, res.Queued)
	return res, nil
}

func (s *Service) evaluate(ctx context.Context, day, now time.Time) ([]Row, error) {
	start := s.policy.StartOfDay(day)
	roster, err := s.repo.Roster(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, errors.Wrapf(err, "roster for %s", start.Format(DateLayout))
	}
	rows := s.policy.Evaluate(start, now, roster)
	for _, r := range rows {
		metrics.AttendanceRowsTotal.WithLabelValues(string(r.Status)).Inc()
	}
	return rows, nil
}

func (s *Service) days(from, to time.Time) ([]time.Time, error) {
	start, end := s.policy.StartOfDay(from), s.policy.StartOfDay(to)
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if len(days) == s.maxDays {
			return nil, ErrRangeTooLong
		}
		days = append(days, d)
	}
	return days, nil
}
