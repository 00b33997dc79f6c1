package importer

import (
	"regexp"
	"strings"
)

// Field is the canonical name of a student column.
type Field string

const (
	FieldNone        Field = ""
	FieldSchoolCode  Field = "schoolCode"
	FieldZid         Field = "zid"
	FieldClassName   Field = "className"
	FieldSection     Field = "section"
	FieldTagID       Field = "tagId"
	FieldFullName    Field = "fullName"
	FieldAdmissionNo Field = "admissionNo"
	FieldPhone       Field = "phone"
	FieldStatus      Field = "status"
	FieldCreatedBy   Field = "createdBy"
	FieldFatherName  Field = "fatherName"
	FieldFatherEmail Field = "fatherEmail"
	FieldAddress     Field = "address"
)

// exactAliases is keyed by the normalized header with spaces removed.
var exactAliases = map[string]Field{
	"admissionno":            FieldAdmissionNo,
	"admissionnumber":        FieldAdmissionNo,
	"admno":                  FieldAdmissionNo,
	"studentregistrationnbr": FieldAdmissionNo,
	"registrationno":         FieldAdmissionNo,

	"studentname": FieldFullName,
	"fullname":    FieldFullName,
	"name":        FieldFullName,

	"class":     FieldClassName,
	"classname": FieldClassName,

	"section":     FieldSection,
	"sectionname": FieldSection,
	"csaction":    FieldSection,

	"rfid":   FieldTagID,
	"rfidno": FieldTagID,
	"tagid":  FieldTagID,

	"contactno":            FieldPhone,
	"phone":                FieldPhone,
	"mobile":               FieldPhone,
	"noofcommunication":    FieldPhone,
	"fatherprimarycontact": FieldPhone,
	"fatherphone":          FieldPhone,
	"fathermobile":         FieldPhone,

	"fathername":    FieldFatherName,
	"fatheremail":   FieldFatherEmail,
	"fatheremailid": FieldFatherEmail,
	"email":         FieldFatherEmail,
	"address":       FieldAddress,

	"status":     FieldStatus,
	"schoolcode": FieldSchoolCode,
	"zid":        FieldZid,
	"createdby":  FieldCreatedBy,
}

// keywordRule matches when the header contains every word in all and at least
// one of any (when any is non-empty).
type keywordRule struct {
	all   []string
	any   []string
	field Field
}

// keywordRules are tried in order after the exact aliases miss.
var keywordRules = []keywordRule{
	{all: []string{"date"}, field: FieldNone},
	{all: []string{"admission"}, field: FieldAdmissionNo},
	{all: []string{"student", "name"}, field: FieldFullName},
	{all: []string{"class"}, field: FieldClassName},
	{all: []string{"section"}, field: FieldSection},
	{any: []string{"email", "mail"}, field: FieldFatherEmail},
	{any: []string{"contact", "phone", "mobile"}, field: FieldPhone},
	{any: []string{"father", "parent", "guardian"}, field: FieldFatherName},
	{all: []string{"address"}, field: FieldAddress},
	{any: []string{"rfid", "tag"}, field: FieldTagID},
	{all: []string{"status"}, field: FieldStatus},
	{all: []string{"school"}, field: FieldSchoolCode},
	{all: []string{"zid"}, field: FieldZid},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader lower-cases h, turns punctuation into spaces and collapses
// whitespace.
func NormalizeHeader(h string) string {
	h = nonAlnum.ReplaceAllString(strings.ToLower(h), " ")
	return strings.Join(strings.Fields(h), " ")
}

// MapHeader resolves a column header or JSON key to its canonical field.
// Unknown headers map to FieldNone.
func MapHeader(h string) Field {
	norm := NormalizeHeader(splitCamel(h))
	if norm == "" {
		return FieldNone
	}
	if f, ok := exactAliases[strings.ReplaceAll(norm, " ", "")]; ok {
		return f
	}
	for _, rule := range keywordRules {
		if rule.matches(norm) {
			return rule.field
		}
	}
	return FieldNone
}

func (r keywordRule) matches(h string) bool {
	for _, w := range r.all {
		if !strings.Contains(h, w) {
			return false
		}
	}
	if len(r.any) == 0 {
		return len(r.all) > 0
	}
	for _, w := range r.any {
		if strings.Contains(h, w) {
			return true
		}
	}
	return false
}

// splitCamel inserts a space before each upper-case letter that follows a
// lower-case one so that "fatherEmailId" reads as "father Email Id".
func splitCamel(s string) string {
	var b strings.Builder
	var prevLower bool
	for _, r := range s {
		isUpper := r >= 'A' && r <= 'Z'
		if isUpper && prevLower {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prevLower = r >= 'a' && r <= 'z'
	}
	return b.String()
}

// HeaderIndex maps a header row to column positions. The first column
// claiming a field wins.
func HeaderIndex(header []string) map[Field]int {
	idx := make(map[Field]int, len(header))
	for i, h := range header {
		f := MapHeader(h)
		if f == FieldNone {
			continue
		}
		if _, taken := idx[f]; !taken {
			idx[f] = i
		}
	}
	return idx
}
