package importer

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"schoolattend/internal/config"
	"schoolattend/internal/student"
)

var (
	nonDigit   = regexp.MustCompile(`\D+`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Row is one candidate student before reconciliation. Line is the 1-based
// sheet row, or the 1-based position in a JSON array.
type Row struct {
	Line        int    `json:"-"`
	SchoolCode  string `json:"schoolCode,omitempty"`
	Zid         string `json:"zid,omitempty"`
	ClassName   string `json:"className,omitempty"`
	Section     string `json:"csaction,omitempty"`
	TagID       string `json:"tagId,omitempty"`
	FullName    string `json:"fullName"`
	AdmissionNo string `json:"studentRegistrationNbr,omitempty"`
	Phone       string `json:"noOfCommunication,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedBy   string `json:"createdBy,omitempty"`
	FatherName  string `json:"fatherName,omitempty"`
	FatherEmail string `json:"fatherEmailId,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Set assigns v to the column f. Unknown fields are ignored.
func (r *Row) Set(f Field, v string) {
	v = strings.TrimSpace(v)
	switch f {
	case FieldSchoolCode:
		r.SchoolCode = v
	case FieldZid:
		r.Zid = v
	case FieldClassName:
		r.ClassName = v
	case FieldSection:
		r.Section = v
	case FieldTagID:
		r.TagID = v
	case FieldFullName:
		r.FullName = v
	case FieldAdmissionNo:
		r.AdmissionNo = v
	case FieldPhone:
		r.Phone = v
	case FieldStatus:
		r.Status = v
	case FieldCreatedBy:
		r.CreatedBy = v
	case FieldFatherName:
		r.FatherName = v
	case FieldFatherEmail:
		r.FatherEmail = v
	case FieldAddress:
		r.Address = v
	}
}

// Get returns the value of column f.
func (r Row) Get(f Field) string {
	switch f {
	case FieldSchoolCode:
		return r.SchoolCode
	case FieldZid:
		return r.Zid
	case FieldClassName:
		return r.ClassName
	case FieldSection:
		return r.Section
	case FieldTagID:
		return r.TagID
	case FieldFullName:
		return r.FullName
	case FieldAdmissionNo:
		return r.AdmissionNo
	case FieldPhone:
		return r.Phone
	case FieldStatus:
		return r.Status
	case FieldCreatedBy:
		return r.CreatedBy
	case FieldFatherName:
		return r.FatherName
	case FieldFatherEmail:
		return r.FatherEmail
	case FieldAddress:
		return r.Address
	}
	return ""
}

// NormalizePhone strips every non-digit.
func NormalizePhone(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// NormalizeEmail lower-cases s and returns "" unless it looks like
// local@domain.tld.
func NormalizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !emailRegex.MatchString(s) {
		return ""
	}
	return s
}

// SwapEmailFromName moves an email typed into the name column over to the
// email column when no email was given.
func SwapEmailFromName(name, email string) (string, string) {
	if strings.TrimSpace(email) == "" && strings.Contains(name, "@") {
		return "", strings.TrimSpace(name)
	}
	return name, email
}

// Normalize returns a copy of r with every rule applied.
func (r Row) Normalize() Row {
	for _, f := range allFields {
		r.Set(f, r.Get(f))
	}
	r.Phone = NormalizePhone(r.Phone)
	r.FatherName, r.FatherEmail = SwapEmailFromName(r.FatherName, r.FatherEmail)
	r.FatherEmail = NormalizeEmail(r.FatherEmail)
	return r
}

// parseStatus reads a whole smallint. Spreadsheet numerics such as "1.0" are
// accepted; fractions, exponents and NaN are not.
func parseStatus(v string) (int, error) {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, '.'); i >= 0 {
		if strings.Trim(v[i+1:], "0") != "" {
			return 0, errors.Errorf("not a whole number: %q", v)
		}
		v = v[:i]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse status %q", v)
	}
	if n < math.MinInt16 || n > math.MaxInt16 {
		return 0, errors.Errorf("status %d out of range", n)
	}
	return n, nil
}

// Record resolves a normalized row into a student record.
func (r Row) Record(d config.Defaults, creator string) (student.Record, error) {
	if r.FullName == "" {
		return student.Record{}, errors.New("Full name is required")
	}
	status := d.Status
	if r.Status != "" {
		n, err := parseStatus(r.Status)
		if err != nil {
			return student.Record{}, errors.Errorf("Status must be a number, got %q", r.Status)
		}
		status = n
	}
	if r.CreatedBy != "" {
		creator = r.CreatedBy
	}
	return student.Record{
		SchoolCode:  orDefault(r.SchoolCode, d.SchoolCode),
		Zid:         orDefault(r.Zid, d.Zid),
		ClassName:   r.ClassName,
		Section:     r.Section,
		TagID:       r.TagID,
		FullName:    r.FullName,
		AdmissionNo: r.AdmissionNo,
		Phone:       r.Phone,
		Status:      status,
		CreatedBy:   creator,
		FatherName:  r.FatherName,
		FatherEmail: r.FatherEmail,
		Address:     r.Address,
	}, nil
}

// FromJSON reads one object of a JSON import body. Keys go through the same
// alias table as spreadsheet headers; when two keys claim a field the first
// non-empty one in key order wins.
func FromJSON(raw json.RawMessage, line int) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return Row{Line: line}, errors.Wrap(err, "row is not a JSON object")
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := Row{Line: line}
	for _, k := range keys {
		f := MapHeader(k)
		if f == FieldNone || row.Get(f) != "" {
			continue
		}
		row.Set(f, scalar(obj[k]))
	}
	return row, nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var allFields = []Field{
	FieldSchoolCode, FieldZid, FieldClassName, FieldSection, FieldTagID, FieldFullName,
	FieldAdmissionNo, FieldPhone, FieldStatus, FieldCreatedBy, FieldFatherName, FieldFatherEmail, FieldAddress,
}
