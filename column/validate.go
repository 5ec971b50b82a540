package column

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// dateLayouts are the textual forms accepted for DATETIME columns.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

// Validate reports whether value may be stored in the column. nil is
// governed by nullability alone; anything else must pass the type check and
// then the custom validator, if one is set.
func (c *Column) Validate(value any) bool {
	if value == nil {
		return c.nullable
	}
	if !c.checkType(value) {
		return false
	}
	if c.validator != nil {
		return c.validator.Validate(value)
	}
	return true
}

func (c *Column) checkType(value any) bool {
	switch c.typ {
	case Integer:
		return c.checkInteger(value)
	case Real:
		if f, ok := asFloat(value); ok {
			return !math.IsNaN(f)
		}
		return false
	case Text:
		s, ok := value.(string)
		if !ok {
			return false
		}
		return c.maxLen == 0 || utf8.RuneCountInString(s) <= c.maxLen
	case Blob:
		if _, ok := value.([]byte); ok {
			return true
		}
		// no declared type stores anything
		return c.declared == "" && scalar(value)
	case Numeric:
		switch v := value.(type) {
		case bool:
			return true
		case string:
			_, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			return err == nil
		}
		if f, ok := asFloat(value); ok {
			return !math.IsNaN(f)
		}
		return false
	case Boolean:
		if _, ok := value.(bool); ok {
			return true
		}
		if i, ok := asInt(value); ok {
			return i == 0 || i == 1
		}
		return false
	case DateTime:
		switch v := value.(type) {
		case time.Time:
			return true
		case string:
			_, ok := parseTime(v)
			return ok
		}
		_, ok := asInt(value)
		return ok
	}
	return false
}

func (c *Column) checkInteger(value any) bool {
	bits := c.bits
	if bits == 0 {
		bits = 64
	}
	maxUnsigned := uint64(1)<<(bits-1) - 1
	switch v := value.(type) {
	case uint:
		return uint64(v) <= maxUnsigned
	case uint64:
		return v <= maxUnsigned
	}
	i, ok := asInt(value)
	if !ok {
		return false
	}
	if bits == 64 {
		return true
	}
	limit := int64(1) << (bits - 1)
	return i >= -limit && i < limit
}

// asInt converts signed and small unsigned integers. uint and uint64 are
// only converted when they fit.
func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	}
	return 0, false
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	if i, ok := asInt(value); ok {
		return float64(i), true
	}
	return 0, false
}

func scalar(value any) bool {
	switch value.(type) {
	case string, []byte, bool, time.Time:
		return true
	}
	_, ok := asFloat(value)
	return ok
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
