package student

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	phoneRegex = regexp.MustCompile(`^\d{10}$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// custom validation tags
const (
	notBlankTag   = "notblank"
	phoneTag      = "phone10"
	looseEmailTag = "looseemail"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation(phoneTag, func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
	_ = validate.RegisterValidation(looseEmailTag, func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(strings.TrimSpace(fl.Field().String()))
	})
}

// IsValidPhone reports whether s is exactly ten digits.
func IsValidPhone(s string) bool {
	return phoneRegex.MatchString(s)
}

// ValidationError carries every failed rule of a request body.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

type form struct {
	FullName             string `json:"fullName" validate:"notblank"`
	Status               string `json:"status" validate:"required,number"`
	TagID                string `json:"tagId" validate:"omitempty,min=3"`
	NoOfCommunication    string `json:"noOfCommunication" validate:"omitempty,numeric"`
	FatherPrimaryContact string `json:"fatherPrimaryContact" validate:"omitempty,phone10"`
	FatherEmail          string `json:"fatherEmailId" validate:"omitempty,looseemail"`
}

var createMessages = map[string]string{
	"fullName":             "Full name is required",
	"status":               "Status is required and must be a number",
	"tagId":                "RFID/Tag ID must contain at least 3 characters",
	"noOfCommunication":    "No. of communication must be a number",
	"fatherPrimaryContact": "Father phone must be 10 digits",
	"fatherEmailId":        "Father email is invalid",
}

var updateMessages = map[string]string{
	"fullName": "Student name is required",
	"status":   "Status must be a number",
}

func newForm(p Payload) form {
	return form{
		FullName:             p.FullName().Text(),
		Status:               p.StatusField.Text(),
		TagID:                p.TagID().Text(),
		NoOfCommunication:    p.NoOfCommunication.Text(),
		FatherPrimaryContact: p.FatherPrimaryContact.Text(),
		FatherEmail:          p.Email().Text(),
	}
}

// ValidateCreate checks a body meant to create a student.
func ValidateCreate(p Payload) error {
	return check(validate.Struct(newForm(p)), nil)
}

// ValidateUpdate checks only the members present in the body. A null status
// is accepted and keeps the stored value.
func ValidateUpdate(p Payload) error {
	var fields []string
	add := func(o Optional, name string) {
		if o.Set {
			fields = append(fields, name)
		}
	}
	add(p.FullName(), "FullName")
	if p.StatusField.Value != nil {
		fields = append(fields, "Status")
	}
	add(p.TagID(), "TagID")
	add(p.NoOfCommunication, "NoOfCommunication")
	add(p.FatherPrimaryContact, "FatherPrimaryContact")
	add(p.Email(), "FatherEmail")
	if len(fields) == 0 {
		return nil
	}
	return check(validate.StructPartial(newForm(p), fields...), updateMessages)
}

func check(err error, override map[string]string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if m, ok := override[fe.Field()]; ok {
			msgs = append(msgs, m)
			continue
		}
		if m, ok := createMessages[fe.Field()]; ok {
			msgs = append(msgs, m)
			continue
		}
		msgs = append(msgs, fe.Translate(translator))
	}
	return &ValidationError{Messages: msgs}
}
