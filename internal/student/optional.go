package student

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Optional is a JSON member that tells "absent" apart from "null". Numbers and
// booleans are kept as their literal text.
type Optional struct {
	Set   bool
	Value *string
}

// Some returns a set Optional holding v.
func Some(v string) Optional { return Optional{Set: true, Value: &v} }

// Null returns a set Optional holding null.
func Null() Optional { return Optional{Set: true} }

func (o *Optional) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value = nil
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	o.Value = &s
	return nil
}

func (o Optional) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// Text returns the trimmed value, or "" when unset or null.
func (o Optional) Text() string {
	if o.Value == nil {
		return ""
	}
	return strings.TrimSpace(*o.Value)
}

// first returns the first option carrying a value, else the first one that
// was set to null, else an unset Optional.
func first(opts ...Optional) Optional {
	var null Optional
	for _, o := range opts {
		if o.Value != nil {
			return o
		}
		if o.Set && !null.Set {
			null = o
		}
	}
	return null
}
