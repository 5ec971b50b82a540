package column

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ParseLiteral converts literal text (a DDL default, a CSV cell, a CLI
// argument) into the Go value the column binds. NULL becomes nil.
func (c *Column) ParseLiteral(text string) (any, error) {
	return c.parseLiteral(text, false)
}

// parseLiteral is ParseLiteral for text that may have been a quoted SQL
// string. Quoted text is never the NULL keyword and stays a string wherever
// the column stores strings.
func (c *Column) parseLiteral(text string, quoted bool) (any, error) {
	if !quoted && strings.EqualFold(text, "NULL") {
		return nil, nil
	}
	if quoted {
		switch {
		case c.typ == Text:
			return text, nil
		case c.typ == Blob && c.declared == "":
			return text, nil
		}
	}

	switch c.typ {
	case Integer:
		if i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64); err == nil {
			return i, nil
		}
		switch strings.ToUpper(text) {
		case "TRUE":
			return int64(1), nil
		case "FALSE":
			return int64(0), nil
		}
	case Real:
		if f, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return f, nil
		}
	case Text:
		return text, nil
	case Blob:
		if b, ok := blobLiteral(text); ok {
			return b, nil
		}
		if c.declared == "" {
			return untypedLiteral(text), nil
		}
		return []byte(text), nil
	case Numeric:
		trimmed := strings.TrimSpace(text)
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f, nil
		}
	case Boolean:
		if b, err := strconv.ParseBool(strings.TrimSpace(text)); err == nil {
			return b, nil
		}
	case DateTime:
		if _, ok := parseTime(text); ok {
			return text, nil
		}
		if i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64); err == nil {
			return i, nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not a %s literal", ErrInvalidValue, text, c.typ)
}

func blobLiteral(text string) ([]byte, bool) {
	if len(text) < 3 || (text[0] != 'x' && text[0] != 'X') || text[1] != '\'' || text[len(text)-1] != '\'' {
		return nil, false
	}
	b, err := hex.DecodeString(text[2 : len(text)-1])
	if err != nil {
		return nil, false
	}
	return b, true
}

func untypedLiteral(text string) any {
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}
