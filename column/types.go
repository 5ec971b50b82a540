package column

import (
	"regexp"
	"strconv"
	"strings"
)

// Type is the affinity tag of a declared column type.
type Type int

const (
	Integer Type = iota
	Real
	Text
	Blob
	Numeric
	Boolean
	DateTime
)

// String returns the type's upper-case name.
func (t Type) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	case Blob:
		return "BLOB"
	case Numeric:
		return "NUMERIC"
	case Boolean:
		return "BOOLEAN"
	case DateTime:
		return "DATETIME"
	default:
		return "UNKNOWN"
	}
}

// Affinity maps a declared type to its tag using SQLite's affinity rules,
// extended with BOOL and DATE/TIME. An empty declaration is Blob.
func Affinity(declared string) Type {
	upperType := strings.ToUpper(declared)

	switch {
	case upperType == "":
		return Blob
	case strings.Contains(upperType, "INT"):
		return Integer
	case strings.Contains(upperType, "CHAR"), strings.Contains(upperType, "TEXT"), strings.Contains(upperType, "CLOB"):
		return Text
	case strings.Contains(upperType, "BLOB"):
		return Blob
	case strings.Contains(upperType, "REAL"), strings.Contains(upperType, "FLOA"), strings.Contains(upperType, "DOUB"):
		return Real
	case strings.Contains(upperType, "BOOL"):
		return Boolean
	case strings.Contains(upperType, "DATE"), strings.Contains(upperType, "TIME"):
		return DateTime
	default:
		return Numeric
	}
}

// integerBits returns the storage width enforced for an integer declaration.
func integerBits(declared string) int {
	upperType := strings.ToUpper(declared)
	switch {
	case strings.Contains(upperType, "TINYINT"):
		return 8
	case strings.Contains(upperType, "SMALLINT"), strings.Contains(upperType, "INT2"):
		return 16
	case strings.Contains(upperType, "MEDIUMINT"):
		return 24
	default:
		return 64
	}
}

var sizeSuffix = regexp.MustCompile(`\(\s*(\d+)\s*\)$`)

// textLength returns the n of VARCHAR(n) style declarations, 0 when absent.
func textLength(declared string) int {
	m := sizeSuffix.FindStringSubmatch(declared)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
