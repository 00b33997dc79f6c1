package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Defaults are the values stamped onto records whose origin does not supply
// them, plus the attendance policy knobs.
type Defaults struct {
	SchoolCode    string `toml:"school_code"`
	Zid           string `toml:"zid"`
	Status        int    `toml:"status"`
	WebCreator    string `toml:"web_creator"`
	ImportCreator string `toml:"import_creator"`
	ExcelCreator  string `toml:"excel_creator"`

	CutoffHour   int    `toml:"cutoff_hour"`
	CutoffMinute int    `toml:"cutoff_minute"`
	Cooldown     string `toml:"cooldown"`
	TimeZone     string `toml:"time_zone"`
}

// DefaultValues returns the built-in defaults.
func DefaultValues() Defaults {
	return Defaults{
		SchoolCode:    "shalom",
		Zid:           "1",
		Status:        1,
		WebCreator:    "web",
		ImportCreator: "import",
		ExcelCreator:  "excel-import",
		CutoffHour:    11,
		CutoffMinute:  0,
		Cooldown:      "30m",
		TimeZone:      "Local",
	}
}

// LoadDefaults reads a TOML file on top of DefaultValues. Keys missing from the
// file keep their built-in value.
func LoadDefaults(path string) (Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, errors.Wrap(err, "error reading defaults file")
	}
	d := DefaultValues()
	if err := toml.Unmarshal(data, &d); err != nil {
		return Defaults{}, errors.Wrapf(err, "error parsing defaults file %s", path)
	}
	if d.CutoffHour < 0 || d.CutoffHour > 23 || d.CutoffMinute < 0 || d.CutoffMinute > 59 {
		return Defaults{}, errors.Errorf("cutoff %02d:%02d out of range", d.CutoffHour, d.CutoffMinute)
	}
	if _, err := time.ParseDuration(d.Cooldown); err != nil {
		return Defaults{}, errors.Wrapf(err, "invalid cooldown %q", d.Cooldown)
	}
	if _, err := time.LoadLocation(d.TimeZone); err != nil {
		return Defaults{}, errors.Wrapf(err, "invalid time_zone %q", d.TimeZone)
	}
	return d, nil
}

// CooldownDuration parses Cooldown, falling back to 30 minutes.
func (d Defaults) CooldownDuration() time.Duration {
	dur, err := time.ParseDuration(d.Cooldown)
	if err != nil || dur <= 0 {
		return 30 * time.Minute
	}
	return dur
}

// Location resolves TimeZone, falling back to time.Local.
func (d Defaults) Location() *time.Location {
	if d.TimeZone == "" || d.TimeZone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}
