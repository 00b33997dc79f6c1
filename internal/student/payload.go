package student

import (
	"strconv"
	"strings"

	"schoolattend/internal/config"
)

// Payload is a student body as sent by the web client. Several members have
// aliases; the first non-null one wins.
type Payload struct {
	SchoolCode Optional `json:"schoolCode"`
	Zid        Optional `json:"zid"`
	ClassName  Optional `json:"className"`

	Csaction    Optional `json:"csaction"`
	SectionName Optional `json:"sectionName"`

	TagIDField Optional `json:"tagId"`
	RfidNo     Optional `json:"rfidNo"`

	FullNameField Optional `json:"fullName"`
	StudentName   Optional `json:"studentName"`
	FullNameSnake Optional `json:"full_name"`

	StudentRegistrationNbr Optional `json:"studentRegistrationNbr"`
	AdmissionNoField       Optional `json:"admissionNo"`

	NoOfCommunication    Optional `json:"noOfCommunication"`
	FatherPrimaryContact Optional `json:"fatherPrimaryContact"`

	StatusField Optional `json:"status"`
	CreatedBy   Optional `json:"createdBy"`

	FatherName    Optional `json:"fatherName"`
	FatherEmailID Optional `json:"fatherEmailId"`
	FatherEmail   Optional `json:"fatherEmail"`
	Address       Optional `json:"address"`
}

func (p Payload) Section() Optional     { return first(p.Csaction, p.SectionName) }
func (p Payload) TagID() Optional       { return first(p.TagIDField, p.RfidNo) }
func (p Payload) FullName() Optional    { return first(p.FullNameField, p.StudentName, p.FullNameSnake) }
func (p Payload) AdmissionNo() Optional { return first(p.StudentRegistrationNbr, p.AdmissionNoField) }
func (p Payload) Phone() Optional       { return first(p.NoOfCommunication, p.FatherPrimaryContact) }
func (p Payload) Email() Optional       { return first(p.FatherEmailID, p.FatherEmail) }

// Record resolves the payload into a row to insert, filling gaps from d.
func (p Payload) Record(d config.Defaults, ip string) Record {
	rec := Record{
		SchoolCode:  orDefault(p.SchoolCode.Text(), d.SchoolCode),
		Zid:         orDefault(p.Zid.Text(), d.Zid),
		ClassName:   p.ClassName.Text(),
		Section:     p.Section().Text(),
		TagID:       p.TagID().Text(),
		FullName:    p.FullName().Text(),
		AdmissionNo: p.AdmissionNo().Text(),
		Phone:       p.Phone().Text(),
		Status:      d.Status,
		IPAddress:   ip,
		CreatedBy:   orDefault(p.CreatedBy.Text(), d.WebCreator),
		FatherName:  p.FatherName.Text(),
		FatherEmail: p.Email().Text(),
		Address:     p.Address.Text(),
	}
	if n, err := strconv.Atoi(p.StatusField.Text()); err == nil {
		rec.Status = n
	}
	return rec
}

// Patch keeps only the members present in the body.
func (p Payload) Patch() Patch {
	return Patch{
		ClassName:   p.ClassName,
		Section:     p.Section(),
		TagID:       p.TagID(),
		FullName:    p.FullName(),
		AdmissionNo: p.AdmissionNo(),
		Phone:       p.Phone(),
		Status:      p.StatusField,
		CreatedBy:   p.CreatedBy,
		FatherName:  p.FatherName,
		FatherEmail: p.Email(),
		Address:     p.Address,
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
