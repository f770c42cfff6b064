// Package mains works out which hum a record player would pick up: the
// electrical mains frequency of the country the machine is set to.
package mains

import (
	"strings"
	"sync"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// Mains frequencies in Hz
const (
	Hz50 = 50
	Hz60 = 60
)

// Detection records how a frequency was chosen
type Detection struct {
	Timezone string // IANA name, empty when the runtime zone is unknown
	Country  string // empty when the zone maps to no country
	Hz       int
}

var (
	localOnce sync.Once
	local     Detection

	countryMap = sync.OnceValues(tz.NewTimezoneCountryMap)
)

// Local detects the mains frequency from the runtime timezone. The lookup runs
// once per process; unknown zones fall back to 50 Hz.
func Local() Detection {
	localOnce.Do(func() {
		name, err := tzlocal.RuntimeTZ()
		if err != nil {
			local = Detection{Hz: Hz50}
			return
		}
		local = ForTimezone(name)
	})
	return local
}

// Frequency returns the local mains frequency, 50 or 60
func Frequency() int {
	return Local().Hz
}

// ForTimezone maps an IANA timezone to its country's mains frequency
func ForTimezone(name string) Detection {
	d := Detection{Timezone: name, Hz: Hz50}
	if name == "" || name == "UTC" || name == "GMT" || strings.HasPrefix(name, "Etc/") {
		return d
	}

	m, err := countryMap()
	if err != nil {
		return d
	}
	country, err := m.GetCountry(name)
	if err != nil {
		return d
	}
	d.Country = country
	if sixtyHertz[country] {
		d.Hz = Hz60
	}
	return d
}

// sixtyHertz is the set of countries on 60 Hz mains; everything else is 50 Hz.
// Japan runs both and is left at 50 Hz, the Tokyo side.
var sixtyHertz = func() map[string]bool {
	set := map[string]bool{}
	for _, c := range []string{
		"United States", "Canada", "Mexico",
		"Belize", "Costa Rica", "El Salvador", "Guatemala", "Honduras", "Nicaragua", "Panama",
		"Bahamas", "Barbados", "Cayman Islands", "Cuba", "Dominican Republic", "Haiti",
		"Jamaica", "Puerto Rico", "Trinidad and Tobago", "U.S. Virgin Islands",
		"Brazil", "Colombia", "Ecuador", "Guyana", "Peru", "Suriname", "Venezuela",
		"South Korea", "Taiwan", "Philippines", "Saudi Arabia", "Liberia",
		"Guam", "American Samoa", "Marshall Islands", "Micronesia", "Palau",
	} {
		set[c] = true
	}
	return set
}()
