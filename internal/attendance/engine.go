package attendance

import (
	"sort"
	"time"
)

// Status is the derived attendance state of one student on one day.
type Status string

const (
	StatusPresent Status = "Present"
	StatusPending Status = "Pending"
	StatusAbsent  Status = "Absent"
)

// Status messages shown next to each row.
const (
	MsgExited   = "Student exited"
	MsgInside   = "Student inside (cooldown active)"
	MsgAwaiting = "Awaiting scan"
	MsgNoScan   = "No scan today"
)

// StudentScans is one roster entry: a student and the scans read for their tag
// on the evaluated day.
type StudentScans struct {
	StudentID   int64
	TagID       string
	AdmissionNo string
	Name        string
	Phone       string
	Scans       []time.Time
}

// Row is the evaluated attendance of one student on one day.
type Row struct {
	StudentID   int64
	TagID       string
	AdmissionNo string
	Name        string
	Phone       string
	Date        time.Time
	InTime      *time.Time
	OutTime     *time.Time
	ScanCount   int
	Status      Status
	Message     string
}

// Stats tallies rows by status.
type Stats struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Pending int `json:"pending"`
	Absent  int `json:"absent"`
}

// Report is a set of evaluated rows with their tally.
type Report struct {
	Rows  []Row
	Stats Stats
}

// Policy holds the rules used to turn scans into a status.
type Policy struct {
	CutoffHour   int
	CutoffMinute int
	Cooldown     time.Duration
	Location     *time.Location
}

// DefaultPolicy is the 11:00 cutoff with a 30 minute cooldown in local time.
func DefaultPolicy() Policy {
	return Policy{CutoffHour: 11, Cooldown: 30 * time.Minute, Location: time.Local}
}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// StartOfDay truncates t to midnight in the policy's location.
func (p Policy) StartOfDay(t time.Time) time.Time {
	t = t.In(p.loc())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc())
}

// AfterCutoff reports whether an unscanned student counts as absent on day,
// evaluated at now. Past days are always after cutoff, future days never.
func (p Policy) AfterCutoff(day, now time.Time) bool {
	d := p.StartOfDay(day)
	today := p.StartOfDay(now)
	switch {
	case d.Before(today):
		return true
	case d.After(today):
		return false
	}
	cutoff := time.Date(today.Year(), today.Month(), today.Day(), p.CutoffHour, p.CutoffMinute, 0, 0, p.loc())
	return !now.In(p.loc()).Before(cutoff)
}

// Evaluate derives one row per roster entry for day and orders them: scanned
// students by first scan, then the rest in roster order.
func (p Policy) Evaluate(day, now time.Time, roster []StudentScans) []Row {
	day = p.StartOfDay(day)
	afterCutoff := p.AfterCutoff(day, now)

	rows := make([]Row, 0, len(roster))
	for _, s := range roster {
		row := Row{
			StudentID:   s.StudentID,
			TagID:       s.TagID,
			AdmissionNo: s.AdmissionNo,
			Name:        s.Name,
			Phone:       s.Phone,
			Date:        day,
			ScanCount:   len(s.Scans),
		}
		if row.ScanCount == 0 {
			if afterCutoff {
				row.Status, row.Message = StatusAbsent, MsgNoScan
			} else {
				row.Status, row.Message = StatusPending, MsgAwaiting
			}
			rows = append(rows, row)
			continue
		}

		first, last := s.Scans[0], s.Scans[0]
		for _, ts := range s.Scans[1:] {
			if ts.Before(first) {
				first = ts
			}
			if ts.After(last) {
				last = ts
			}
		}
		in := first.In(p.loc())
		row.InTime = &in
		row.Status, row.Message = StatusPresent, MsgInside
		if row.ScanCount > 1 && last.Sub(first) >= p.Cooldown {
			out := last.In(p.loc())
			row.OutTime = &out
			row.Message = MsgExited
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].InTime, rows[j].InTime
		switch {
		case a != nil && b != nil:
			return a.Before(*b)
		case a != nil:
			return true
		default:
			return false
		}
	})
	return rows
}

// Tally counts rows per status.
func Tally(rows []Row) Stats {
	st := Stats{Total: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case StatusPresent:
			st.Present++
		case StatusPending:
			st.Pending++
		case StatusAbsent:
			st.Absent++
		}
	}
	return st
}
