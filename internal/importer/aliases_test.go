package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "admission no", NormalizeHeader("  Admission   No. "))
	assert.Equal(t, "father e mail", NormalizeHeader("Father E-Mail"))
	assert.Equal(t, "", NormalizeHeader(" -- "))
}

func TestMapHeader(t *testing.T) {
	testCases := []struct {
		header string
		want   Field
	}{
		{"Admission No", FieldAdmissionNo},
		{"ADMISSION NUMBER", FieldAdmissionNo},
		{"studentRegistrationNbr", FieldAdmissionNo},
		{"Student Name", FieldFullName},
		{"full_name", FieldFullName},
		{"Class", FieldClassName},
		{"Section", FieldSection},
		{"sectionName", FieldSection},
		{"RFID No", FieldTagID},
		{"tagId", FieldTagID},
		{"Contact No", FieldPhone},
		{"Parent Mobile", FieldPhone},
		{"noOfCommunication", FieldPhone},
		{"Father Name", FieldFatherName},
		{"Guardian", FieldFatherName},
		{"Father Email", FieldFatherEmail},
		{"fatherEmailId", FieldFatherEmail},
		{"Residential Address", FieldAddress},
		{"Status", FieldStatus},
		{"School Code", FieldSchoolCode},
		{"ZID", FieldZid},
		{"Admission Date", FieldNone},
		{"StudentSeqNo", FieldNone},
		{"Remarks", FieldNone},
		{"", FieldNone},
	}

	for _, tc := range testCases {
		t.Run(tc.header, func(t *testing.T) {
			assert.Equal(t, tc.want, MapHeader(tc.header))
		})
	}
}

func TestHeaderIndexFirstColumnWins(t *testing.T) {
	idx := HeaderIndex([]string{"Admission No", "Student Name", "Phone", "Mobile", "Notes"})

	assert.Equal(t, map[Field]int{
		FieldAdmissionNo: 0,
		FieldFullName:    1,
		FieldPhone:       2,
	}, idx)
}
