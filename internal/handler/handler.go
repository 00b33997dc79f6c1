package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"schoolattend/internal/attendance"
	"schoolattend/internal/auth"
	"schoolattend/internal/importer"
	"schoolattend/internal/messages"
	"schoolattend/internal/student"
)

// Attendance is the attendance evaluation the HTTP layer needs.
type Attendance interface {
	Policy() attendance.Policy
	ParseDate(v string) (time.Time, error)
	Today(ctx context.Context) (attendance.Report, error)
	Day(ctx context.Context, day time.Time) (attendance.Report, error)
	Range(ctx context.Context, from, to time.Time) (attendance.Report, error)
	Summary(ctx context.Context, from, to time.Time) ([]attendance.Summary, error)
	CloseDay(ctx context.Context) (attendance.CloseResult, error)
}

// Students is the student record store with validation.
type Students interface {
	Create(ctx context.Context, p student.Payload, ip string) (student.Student, *student.Parent, error)
	Update(ctx context.Context, id int64, p student.Payload) (student.Student, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (student.Student, error)
	List(ctx context.Context, f student.Filter) ([]student.Student, error)
	Export(ctx context.Context, f student.Filter) ([]student.Student, error)
}

// Importer writes spreadsheet and JSON batches.
type Importer interface {
	Reconcile(ctx context.Context, rows []importer.Row) (importer.Result, error)
	Bulk(ctx context.Context, rows []importer.Row) (importer.BulkResult, error)
}

// MessageLog lists the SMS log.
type MessageLog interface {
	List(ctx context.Context, f messages.Filter) ([]messages.Message, error)
}

// Handler serves the JSON API.
type Handler struct {
	Attendance Attendance
	Students   Students
	Importer   Importer
	Messages   MessageLog

	Signer      *auth.Signer
	Admin       auth.Admin
	AuthEnabled bool

	MaxUploadBytes int64

	now func() time.Time
}

// Register mounts every route under /api on r.
func (h *Handler) Register(r gin.IRouter) {
	if h.now == nil {
		h.now = time.Now
	}
	api := r.Group("/api")
	api.POST("/auth/login", h.login)
	api.POST("/auth/refresh", h.refresh)

	protected := api.Group("")
	if h.AuthEnabled && h.Signer != nil {
		protected.Use(auth.Bearer(h.Signer))
	}

	protected.GET("/dashboard/today", h.dashboardToday)
	protected.GET("/report/attendance", h.attendanceReport)
	protected.GET("/report/history", h.attendanceReport)
	protected.GET("/report/monthly", h.monthlyReport)
	protected.GET("/report/yearly", h.yearlyReport)
	protected.POST("/report/close-day", h.closeDay)

	for _, base := range []string{"/students", "/all-students"} {
		protected.GET(base, h.listStudents)
		protected.GET(base+"/export", h.exportStudents)
		protected.GET(base+"/:id", h.getStudent)
		protected.PUT(base+"/:id", h.updateStudent)
		protected.DELETE(base+"/:id", h.deleteStudent)
	}
	protected.POST("/students", h.createStudents)

	protected.GET("/masterdata/students", h.queryStudents)
	protected.POST("/masterdata/import", h.importSpreadsheet)
	protected.GET("/masterdata/export/excel", h.exportSpreadsheet)

	protected.GET("/messages", h.listMessages)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"ok": false, "message": message})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// intQuery reads a non-negative integer parameter, falling back on absence
// or garbage.
func intQuery(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
