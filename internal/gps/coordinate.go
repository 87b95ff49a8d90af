// internal/gps/coordinate.go
package gps

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// dmsPattern matches `<deg><sep><min><sep><sec><sep><hemisphere>` where each
// separator is a run of characters that are neither digits nor '.', and the
// hemisphere letter must not be followed by another letter ("46 sec" is not "S").
// Numbers may carry a leading or trailing dot ("46.", ".5"). The degrees must
// start the string or follow a character that is not a digit, '.' or '-', so
// "-40" or "40.5.3" are rejected rather than silently truncated.
var dmsPattern = regexp.MustCompile(
	`(?:^|[^\d.\-])` + dmsNumber + `[^\d.]+` + dmsNumber + `[^\d.]+` + dmsNumber + `[^\d.]+([NSEWnsew])(?:[^A-Za-z]|$)`,
)

const dmsNumber = `(\d+(?:\.\d*)?|\.\d+)`

// Parse converts a degrees/minutes/seconds coordinate with a trailing
// hemisphere letter (e.g. `40° 26' 46" N`, `40 deg 26' 46.00" N`) into signed
// decimal degrees. The second return value is false when the input is not in
// that form; no range checking is performed.
//
// Hemisphere letters are accepted in either case.
func Parse(s string) (float64, bool) {
	m := dmsPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	deg, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	min, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	sec, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}

	decimal := deg + min/60 + sec/3600
	if IsNegativeHemisphere(m[4]) {
		decimal = -decimal
	}

	if math.IsNaN(decimal) || math.IsInf(decimal, 0) {
		return 0, false
	}
	return decimal, true
}

// IsNegativeHemisphere reports whether ref names the southern or western
// hemisphere.
func IsNegativeHemisphere(ref string) bool {
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "W", "SOUTH", "WEST":
		return true
	default:
		return false
	}
}
