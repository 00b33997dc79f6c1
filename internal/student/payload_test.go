package student

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolattend/internal/config"
)

func TestOptionalDistinguishesAbsentFromNull(t *testing.T) {
	var body struct {
		A Optional `json:"a"`
		B Optional `json:"b"`
		C Optional `json:"c"`
		D Optional `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":" x ","c":0}`), &body))

	assert.True(t, body.A.Set)
	assert.Nil(t, body.A.Value)
	assert.Equal(t, "x", body.B.Text())
	assert.Equal(t, "0", body.C.Text())
	assert.False(t, body.D.Set)
}

func TestPayloadRecordAppliesAliasesAndDefaults(t *testing.T) {
	p := payload(t, `{
		"studentName": "Asha Rao",
		"sectionName": "B",
		"rfidNo": " 00A1 ",
		"admissionNo": "ADM-7",
		"fatherPrimaryContact": "9876543210",
		"fatherEmail": "dad@example.com",
		"status": 0
	}`)
	rec := p.Record(config.DefaultValues(), "10.0.0.1")

	assert.Equal(t, Record{
		SchoolCode:  "shalom",
		Zid:         "1",
		Section:     "B",
		TagID:       "00A1",
		FullName:    "Asha Rao",
		AdmissionNo: "ADM-7",
		Phone:       "9876543210",
		Status:      0,
		IPAddress:   "10.0.0.1",
		CreatedBy:   "web",
		FatherEmail: "dad@example.com",
	}, rec)
	assert.True(t, rec.HasParent())
}

func TestPayloadAliasPrecedence(t *testing.T) {
	p := payload(t, `{"fullName":null,"studentName":"Second","csaction":"A","sectionName":"B"}`)
	assert.Equal(t, "Second", p.FullName().Text())
	assert.Equal(t, "A", p.Section().Text())

	p = payload(t, `{"tagId":null}`)
	assert.True(t, p.TagID().Set)
	assert.Nil(t, p.TagID().Value)
}

func TestPayloadPatchOnlySuppliedMembers(t *testing.T) {
	patch := payload(t, `{"status":0}`).Patch()

	assert.True(t, patch.Status.Set)
	assert.False(t, patch.FullName.Set)
	assert.False(t, patch.ClassName.Set)
	assert.False(t, patch.TagID.Set)
	assert.False(t, patch.TouchesParent())

	patch = payload(t, `{"address":"  "}`).Patch()
	assert.True(t, patch.Address.Set)
	assert.False(t, patch.TouchesParent(), "blank parent values do not create a parent row")
}
