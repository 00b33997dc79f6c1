package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shrimpsizemoose/trekker/logger"

	"schoolattend/internal/importer"
	"schoolattend/internal/metrics"
	"schoolattend/internal/spreadsheet"
	"schoolattend/internal/student"
)

func (h *Handler) importSpreadsheet(c *gin.Context) {
	if h.Importer == nil {
		fail(c, http.StatusNotImplemented, "Import is not available")
		return
	}
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
			return
		}
		fail(c, http.StatusBadRequest, "File is required")
		return
	}
	if !spreadsheet.Supported(fh.Filename) {
		fail(c, http.StatusBadRequest, spreadsheet.ErrUnsupportedFile.Error())
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	defer f.Close()

	cells, err := spreadsheet.ReadRows(f, fh.Filename)
	if err != nil {
		logger.Error.Printf("read %s: %v", fh.Filename, err)
		fail(c, http.StatusBadRequest, "Could not read spreadsheet")
		return
	}
	rows, err := spreadsheet.ParseStudents(cells)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Importer.Reconcile(c.Request.Context(), rows)
	var dup *importer.DuplicateError
	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":                  false,
			"message":             dup.Error(),
			"duplicateRfids":      dup.Tags,
			"duplicateAdmissions": dup.Admissions,
		})
	case errors.Is(err, importer.ErrNoRows):
		fail(c, http.StatusBadRequest, err.Error())
	case err != nil:
		logger.Error.Printf("import %s: %v", fh.Filename, err)
		fail(c, http.StatusInternalServerError, "Import failed")
	default:
		logger.Info.Printf("import %s: %d inserted, %d updated, %d errors",
			fh.Filename, res.Inserted, res.Updated, len(res.Errors))
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Import finished", "result": res})
	}
}

func (h *Handler) exportSpreadsheet(c *gin.Context) {
	rows, err := h.Students.Export(c.Request.Context(), student.Filter{
		Query:     c.Query("q"),
		ClassName: c.Query("className"),
	})
	if err != nil {
		logger.Error.Printf("excel export: %v", err)
		fail(c, http.StatusInternalServerError, "Export failed")
		return
	}
	data, err := spreadsheet.ExportStudents(rows)
	if err != nil {
		logger.Error.Printf("excel export: %v", err)
		fail(c, http.StatusInternalServerError, "Export failed")
		return
	}
	metrics.ExportRowsTotal.Add(float64(len(rows)))
	c.Header("Content-Disposition", `attachment; filename="`+spreadsheet.ExportFilename(h.now())+`"`)
	c.Data(http.StatusOK, spreadsheet.ContentType, data)
}
