package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shrimpsizemoose/trekker/logger"

	"schoolattend/internal/attendance"
)

// ClockLayout renders scan times in responses.
const ClockLayout = "03:04 PM"

type dashboardRow struct {
	ID            int64   `json:"id"`
	AdmissionCode string  `json:"admissionCode"`
	Name          string  `json:"name"`
	InTime        *string `json:"inTime"`
	OutTime       *string `json:"outTime"`
	MessageError  string  `json:"messageError"`
	Status        string  `json:"status"`
}

type historyRow struct {
	ID      int64   `json:"id"`
	TagID   string  `json:"tagId"`
	Name    string  `json:"name"`
	InTime  *string `json:"inTime"`
	OutTime *string `json:"outTime"`
	Date    string  `json:"date"`
	Message string  `json:"message"`
	Status  string  `json:"status"`
}

func (h *Handler) location() *time.Location {
	if loc := h.Attendance.Policy().Location; loc != nil {
		return loc
	}
	return time.Local
}

func clock(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	s := t.In(loc).Format(ClockLayout)
	return &s
}

func (h *Handler) dashboardToday(c *gin.Context) {
	report, err := h.Attendance.Today(c.Request.Context())
	if err != nil {
		logger.Error.Printf("dashboard: %v", err)
		fail(c, http.StatusInternalServerError, "Dashboard failed")
		return
	}
	loc := h.location()
	rows := make([]dashboardRow, 0, len(report.Rows))
	for _, r := range report.Rows {
		code := r.AdmissionNo
		if code == "" {
			code = strings.TrimSpace(r.TagID)
		}
		rows = append(rows, dashboardRow{
			ID:            r.StudentID,
			AdmissionCode: code,
			Name:          r.Name,
			InTime:        clock(r.InTime, loc),
			OutTime:       clock(r.OutTime, loc),
			MessageError:  r.Message,
			Status:        string(r.Status),
		})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "rows": rows, "stats": report.Stats})
}

func (h *Handler) attendanceReport(c *gin.Context) {
	ctx := c.Request.Context()
	date, from, to := c.Query("date"), c.Query("from"), c.Query("to")

	var (
		report attendance.Report
		err    error
	)
	switch {
	case date != "":
		var day time.Time
		if day, err = h.Attendance.ParseDate(date); err == nil {
			report, err = h.Attendance.Day(ctx, day)
		}
	case from != "" || to != "":
		if from == "" {
			from = to
		}
		if to == "" {
			to = from
		}
		var start, end time.Time
		if start, err = h.Attendance.ParseDate(from); err != nil {
			break
		}
		if end, err = h.Attendance.ParseDate(to); err != nil {
			break
		}
		report, err = h.Attendance.Range(ctx, start, end)
	default:
		report, err = h.Attendance.Today(ctx)
	}
	if err != nil {
		if isRangeError(err) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error.Printf("history report: %v", err)
		fail(c, http.StatusInternalServerError, "History report failed")
		return
	}

	loc := h.location()
	rows := make([]historyRow, 0, len(report.Rows))
	for _, r := range report.Rows {
		rows = append(rows, historyRow{
			ID:      r.StudentID,
			TagID:   strings.TrimSpace(r.TagID),
			Name:    r.Name,
			InTime:  clock(r.InTime, loc),
			OutTime: clock(r.OutTime, loc),
			Date:    r.Date.In(loc).Format(attendance.DateLayout),
			Message: r.Message,
			Status:  string(r.Status),
		})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "rows": rows, "stats": report.Stats})
}

func (h *Handler) monthlyReport(c *gin.Context) {
	loc := h.location()
	start := h.now().In(loc)
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
	if v := c.Query("month"); v != "" {
		m, err := time.ParseInLocation("2006-01", strings.TrimSpace(v), loc)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid month, expected YYYY-MM")
			return
		}
		start = m
	}
	h.summary(c, start, start.AddDate(0, 1, -1))
}

func (h *Handler) yearlyReport(c *gin.Context) {
	loc := h.location()
	year := h.now().In(loc).Year()
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || y < 1900 || y > 9999 {
			fail(c, http.StatusBadRequest, "invalid year, expected YYYY")
			return
		}
		year = y
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	h.summary(c, start, start.AddDate(1, 0, -1))
}

func (h *Handler) summary(c *gin.Context, from, to time.Time) {
	rows, err := h.Attendance.Summary(c.Request.Context(), from, to)
	if err != nil {
		if isRangeError(err) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error.Printf("summary report: %v", err)
		fail(c, http.StatusInternalServerError, "Summary report failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"from": from.Format(attendance.DateLayout),
		"to":   to.Format(attendance.DateLayout),
		"rows": rows,
	})
}

func (h *Handler) closeDay(c *gin.Context) {
	res, err := h.Attendance.CloseDay(c.Request.Context())
	if err != nil {
		logger.Error.Printf("close day: %v", err)
		fail(c, http.StatusInternalServerError, "Close day failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"date":   res.Date.In(h.location()).Format(attendance.DateLayout),
		"absent": res.Absent,
		"queued": res.Queued,
	})
}

func isRangeError(err error) bool {
	return errors.Is(err, attendance.ErrInvalidDate) ||
		errors.Is(err, attendance.ErrInvalidRange) ||
		errors.Is(err, attendance.ErrRangeTooLong)
}
