package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shrimpsizemoose/trekker/logger"

	"schoolattend/internal/importer"
	"schoolattend/internal/student"
)

const (
	defaultListLimit   = 500
	defaultQueryLimit  = 100
	maxQueryLimit      = 1000
	msgTagInUse        = "RFID / Tag ID is already in use by another student"
	msgAdmissionInUse  = "Admission number is already in use by another student"
	msgStudentNotFound = "Student not found"
)

func (h *Handler) listStudents(c *gin.Context) {
	rows, err := h.Students.List(c.Request.Context(), student.Filter{Limit: intQuery(c, "limit", defaultListLimit)})
	if err != nil {
		logger.Error.Printf("list students: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to load students")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "students": rows})
}

func (h *Handler) exportStudents(c *gin.Context) {
	rows, err := h.Students.Export(c.Request.Context(), student.Filter{
		Query:     c.Query("q"),
		ClassName: c.Query("className"),
	})
	if err != nil {
		logger.Error.Printf("export students: %v", err)
		fail(c, http.StatusInternalServerError, "Export failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "students": rows})
}

func (h *Handler) queryStudents(c *gin.Context) {
	limit := intQuery(c, "limit", defaultQueryLimit)
	if limit == 0 || limit > maxQueryLimit {
		limit = defaultQueryLimit
	}
	rows, err := h.Students.List(c.Request.Context(), student.Filter{
		Query:     c.Query("q"),
		ClassName: c.Query("className"),
		Limit:     limit,
		Offset:    intQuery(c, "offset", 0),
	})
	if err != nil {
		logger.Error.Printf("query students: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to load students")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "rows": rows})
}

func (h *Handler) getStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	st, err := h.Students.Get(c.Request.Context(), id)
	if err != nil {
		h.studentError(c, err, "Failed to load student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "student": st})
}

// createStudents accepts one student object, an array of rows, or
// {"rows": [...]}.
func (h *Handler) createStudents(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []json.RawMessage
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			fail(c, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		h.bulkCreate(c, rows)
		return
	}

	var wrapped struct {
		Rows *[]json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if wrapped.Rows != nil {
		h.bulkCreate(c, *wrapped.Rows)
		return
	}

	var p student.Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	st, parent, err := h.Students.Create(c.Request.Context(), p, c.ClientIP())
	if err != nil {
		h.studentError(c, err, "Failed to create student")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "student": st, "parent": parent})
}

func (h *Handler) bulkCreate(c *gin.Context, raw []json.RawMessage) {
	if h.Importer == nil {
		fail(c, http.StatusNotImplemented, "Bulk import is not available")
		return
	}
	rows := make([]importer.Row, 0, len(raw))
	rejected := []importer.BulkError{}
	for i, r := range raw {
		row, err := importer.FromJSON(r, i+1)
		if err != nil {
			rejected = append(rejected, importer.BulkError{Row: row, Error: err.Error()})
			continue
		}
		rows = append(rows, row)
	}

	res, err := h.Importer.Bulk(c.Request.Context(), rows)
	if err != nil {
		logger.Error.Printf("bulk create: %v", err)
		fail(c, http.StatusInternalServerError, "Bulk import failed")
		return
	}
	res.Errors = append(rejected, res.Errors...)
	c.JSON(http.StatusOK, gin.H{"ok": true, "inserted": res.Inserted, "errors": res.Errors})
}

func (h *Handler) updateStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var p student.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	st, err := h.Students.Update(c.Request.Context(), id, p)
	switch {
	case errors.Is(err, student.ErrDuplicateTag):
		fail(c, http.StatusBadRequest, msgTagInUse)
	case errors.Is(err, student.ErrDuplicateAdmission):
		fail(c, http.StatusBadRequest, msgAdmissionInUse)
	case err != nil:
		h.studentError(c, err, "Failed to update student")
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "student": st})
	}
}

func (h *Handler) deleteStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Students.Delete(c.Request.Context(), id); err != nil {
		h.studentError(c, err, "Failed to delete student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// studentError maps student errors to responses, logging anything unexpected
// and answering it with fallback.
func (h *Handler) studentError(c *gin.Context, err error, fallback string) {
	var verr *student.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "errors": verr.Messages})
	case errors.Is(err, student.ErrNotFound):
		fail(c, http.StatusNotFound, msgStudentNotFound)
	case errors.Is(err, student.ErrDuplicateTag):
		fail(c, http.StatusBadRequest, student.ErrDuplicateTag.Error())
	case errors.Is(err, student.ErrDuplicateAdmission):
		fail(c, http.StatusBadRequest, student.ErrDuplicateAdmission.Error())
	default:
		logger.Error.Printf("%s: %v", strings.ToLower(fallback), err)
		fail(c, http.StatusInternalServerError, fallback)
	}
}
