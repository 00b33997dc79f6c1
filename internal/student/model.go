package student

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CreateDateLayout is how creation timestamps are rendered.
const CreateDateLayout = "2006-01-02 15:04:05"

var (
	ErrNotFound           = errors.New("Student not found")
	ErrDuplicateTag       = errors.New("Tag ID already exists")
	ErrDuplicateAdmission = errors.New("Admission No already exists")
)

// Student is a student master row joined with its parent detail.
type Student struct {
	ID          int64     `json:"studentSeqNbr"`
	SchoolCode  *string   `json:"schoolCode"`
	Zid         *string   `json:"zid"`
	ClassName   *string   `json:"className"`
	Section     *string   `json:"csaction"`
	TagID       *string   `json:"tagId"`
	FullName    string    `json:"fullName"`
	AdmissionNo *string   `json:"studentRegistrationNbr"`
	Phone       *string   `json:"noOfCommunication"`
	Status      int       `json:"status"`
	CreatedBy   *string   `json:"createdBy"`
	IPAddress   *string   `json:"ipAddress,omitempty"`
	FatherName  *string   `json:"fatherName"`
	FatherEmail *string   `json:"fatherEmailId"`
	Address     *string   `json:"address"`
	CreatedAt   time.Time `json:"-"`
	CreateDate  string    `json:"createDate"`
}

// Parent is the one-to-one guardian detail of a student.
type Parent struct {
	StudentID   int64   `json:"studentSeqNbr"`
	FatherName  *string `json:"fatherName"`
	FatherEmail *string `json:"fatherEmail"`
	Address     *string `json:"address"`
}

// Record is a fully resolved student to be written. Empty strings are stored
// as NULL.
type Record struct {
	SchoolCode  string
	Zid         string
	ClassName   string
	Section     string
	TagID       string
	FullName    string
	AdmissionNo string
	Phone       string
	Status      int
	IPAddress   string
	CreatedBy   string

	FatherName  string
	FatherEmail string
	Address     string
}

// HasParent reports whether any parent detail field is non-empty.
func (r Record) HasParent() bool {
	return strings.TrimSpace(r.FatherName) != "" ||
		strings.TrimSpace(r.FatherEmail) != "" ||
		strings.TrimSpace(r.Address) != ""
}

// Patch lists the members supplied to an update. Unset members are left alone.
type Patch struct {
	ClassName   Optional
	Section     Optional
	TagID       Optional
	FullName    Optional
	AdmissionNo Optional
	Phone       Optional
	Status      Optional
	CreatedBy   Optional

	FatherName  Optional
	FatherEmail Optional
	Address     Optional
}

// TouchesParent reports whether the patch carries a non-empty parent value.
func (p Patch) TouchesParent() bool {
	for _, o := range []Optional{p.FatherName, p.FatherEmail, p.Address} {
		if o.Text() != "" {
			return true
		}
	}
	return false
}

// Filter narrows List.
type Filter struct {
	Query     string
	ClassName string
	Limit     int
	Offset    int
}

// Conflict is an existing student holding an admission number or tag id
// that an import wants to use.
type Conflict struct {
	StudentID   int64
	AdmissionNo string
	TagID       string
}
