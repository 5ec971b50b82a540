// Package column models a single table column: its declared type,
// constraints, default value, validation and supported operators.
package column

import (
	"fmt"
	"strings"

	"github.com/MoffettMcKenna/IniLiteORM/ddl"
)

// DefaultKind says where a column's default comes from.
type DefaultKind int

const (
	// DefaultNone means the column declares no default.
	DefaultNone DefaultKind = iota
	// DefaultValue is a literal the caller binds on insert.
	DefaultValue
	// DefaultStore is evaluated by the store (CURRENT_TIMESTAMP, expressions).
	DefaultStore
)

// ForeignKey is the target of a REFERENCES constraint.
type ForeignKey struct {
	Table   string
	Columns []string
}

// Validator is a caller-supplied predicate run after the type check.
type Validator interface {
	Validate(value any) bool
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc func(value any) bool

// Validate calls f(value).
func (f ValidatorFunc) Validate(value any) bool {
	return f(value)
}

// Column is one declared column.
type Column struct {
	name     string
	declared string
	typ      Type
	bits     int
	maxLen   int

	nullable      bool
	primaryKey    bool
	unique        bool
	autoIncrement bool
	foreignKey    *ForeignKey

	defaultKind   DefaultKind
	defaultVal    any
	defaultQuoted bool

	tokens    []string
	validator Validator
}

// constraintWords start the constraint part of a declaration; everything
// before the first of them is the declared type.
var constraintWords = map[string]bool{
	"CONSTRAINT":    true,
	"PRIMARY":       true,
	"NOT":           true,
	"NULL":          true,
	"UNIQUE":        true,
	"CHECK":         true,
	"COLLATE":       true,
	"GENERATED":     true,
	"AS":            true,
	"AUTOINCREMENT": true,
	"ON":            true,
}

func isConstraint(tok string) bool {
	if ddl.IsPrimaryKey(tok) {
		return true
	}
	if _, ok := ddl.SplitDefault(tok); ok {
		return true
	}
	if _, _, ok := ddl.SplitForeignKey(tok); ok {
		return true
	}
	upper := strings.ToUpper(tok)
	if strings.HasPrefix(upper, "CHECK(") {
		return true
	}
	return constraintWords[upper]
}

// Parse builds a column from a declaration such as "TEXT NOT NULL".
func Parse(name, decl string) (*Column, error) {
	def, err := ddl.ParseColumnDef(decl)
	if err != nil {
		return nil, fmt.Errorf("%w: column %s: %v", ErrInvalidDeclaration, name, err)
	}
	def.Name = name
	return FromDef(def)
}

// New builds a column from constraint tokens as produced by the ddl package.
// Whether the default literal was quoted is unknown here, so a bare keyword
// such as CURRENT_TIMESTAMP is taken as one; use FromDef to keep quoting.
func New(name string, tokens []string) (*Column, error) {
	return FromDef(ddl.ColumnDef{Name: name, Tokens: tokens})
}

// FromDef builds a column from a parsed definition. A literal default that
// the column itself would reject is an error unless the column is a primary
// key. Quoted defaults are always plain strings: '007' keeps its zeros and
// 'NULL' or 'CURRENT_TIMESTAMP' are text, not keywords.
func FromDef(def ddl.ColumnDef) (*Column, error) {
	name, tokens := def.Name, def.Tokens
	if name == "" {
		return nil, fmt.Errorf("%w: empty column name", ErrInvalidDeclaration)
	}

	c := &Column{
		name:          name,
		tokens:        append([]string(nil), tokens...),
		defaultQuoted: def.DefaultQuoted,
	}

	var typeTokens []string
	inType := true
	notNull := false
	defaultLit, hasDefault := "", false

	for i, tok := range tokens {
		if inType && isConstraint(tok) {
			inType = false
		}
		if inType {
			typeTokens = append(typeTokens, tok)
			continue
		}

		switch upper := strings.ToUpper(tok); {
		case ddl.IsPrimaryKey(tok):
			c.primaryKey = true
		case upper == "NOT" && i+1 < len(tokens) && strings.EqualFold(tokens[i+1], "NULL"):
			notNull = true
		case upper == "UNIQUE":
			c.unique = true
		case upper == "AUTOINCREMENT":
			c.autoIncrement = true
		default:
			if lit, ok := ddl.SplitDefault(tok); ok {
				defaultLit, hasDefault = lit, true
			} else if table, cols, ok := ddl.SplitForeignKey(tok); ok {
				c.foreignKey = &ForeignKey{Table: table, Columns: cols}
			}
		}
	}

	c.declared = strings.Join(typeTokens, " ")
	c.typ = Affinity(c.declared)
	c.nullable = !notNull || c.primaryKey
	switch c.typ {
	case Integer:
		c.bits = integerBits(c.declared)
	case Text:
		c.maxLen = textLength(c.declared)
	}

	if hasDefault {
		if err := c.applyDefaultLiteral(defaultLit); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Column) applyDefaultLiteral(lit string) error {
	if !c.defaultQuoted && storeEvaluated(lit) {
		c.defaultKind = DefaultStore
		return nil
	}

	value, err := c.parseLiteral(lit, c.defaultQuoted)
	if err != nil {
		if c.primaryKey {
			c.defaultKind = DefaultStore
			return nil
		}
		return fmt.Errorf("default of column %s: %w", c.name, err)
	}
	if !c.primaryKey && !c.Validate(value) {
		return fmt.Errorf("%w: default %q of column %s", ErrInvalidValue, lit, c.name)
	}
	c.defaultKind = DefaultValue
	c.defaultVal = value
	return nil
}

func storeEvaluated(lit string) bool {
	switch strings.ToUpper(lit) {
	case "CURRENT_TIME", "CURRENT_DATE", "CURRENT_TIMESTAMP":
		return true
	}
	return strings.HasPrefix(lit, "(")
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// DeclaredType returns the declared type text, e.g. "VARCHAR(64)".
func (c *Column) DeclaredType() string { return c.declared }

// Type returns the affinity tag.
func (c *Column) Type() Type { return c.typ }

// Nullable reports whether nil is an acceptable value.
func (c *Column) Nullable() bool { return c.nullable }

// PrimaryKey reports whether the column carries PRIMARY KEY.
func (c *Column) PrimaryKey() bool { return c.primaryKey }

// Unique reports whether the column carries UNIQUE.
func (c *Column) Unique() bool { return c.unique }

// AutoIncrement reports whether the column carries AUTOINCREMENT.
func (c *Column) AutoIncrement() bool { return c.autoIncrement }

// MaxLength returns the declared text length limit, 0 when unlimited.
func (c *Column) MaxLength() int { return c.maxLen }

// ForeignKey returns the REFERENCES target, if any.
func (c *Column) ForeignKey() (ForeignKey, bool) {
	if c.foreignKey == nil {
		return ForeignKey{}, false
	}
	return ForeignKey{Table: c.foreignKey.Table, Columns: append([]string(nil), c.foreignKey.Columns...)}, true
}

// Default returns the value bound for the column when an insert omits it.
// Store-evaluated defaults report false.
func (c *Column) Default() (any, bool) {
	if c.defaultKind != DefaultValue {
		return nil, false
	}
	return c.defaultVal, true
}

// DefaultKind returns where the default comes from.
func (c *Column) DefaultKind() DefaultKind { return c.defaultKind }

// DefaultQuoted reports whether the declared default was a quoted string.
func (c *Column) DefaultQuoted() bool { return c.defaultQuoted }

// Tokens returns a copy of the declaration's constraint tokens.
func (c *Column) Tokens() []string {
	return append([]string(nil), c.tokens...)
}

// BuildDDLFragment renders the column as it appears inside CREATE TABLE.
func (c *Column) BuildDDLFragment() string {
	body := ddl.RenderDecl(c.tokens, c.defaultQuoted)
	if body == "" {
		return ddl.QuoteIdent(c.name)
	}
	return ddl.QuoteIdent(c.name) + " " + body
}

// SetValidator replaces the custom validator. It fails, leaving the old
// validator in place, when the new one rejects the current literal default.
func (c *Column) SetValidator(v Validator) error {
	prev := c.validator
	c.validator = v
	if c.defaultKind == DefaultValue && !c.primaryKey && !c.Validate(c.defaultVal) {
		c.validator = prev
		return fmt.Errorf("%w: default %v of column %s rejected by validator", ErrInvalidValue, c.defaultVal, c.name)
	}
	return nil
}

// SetDefault replaces the literal default. The declaration tokens are left
// untouched, so the change does not affect schema comparison.
func (c *Column) SetDefault(value any) error {
	if !c.Validate(value) {
		return fmt.Errorf("%w: %v for column %s", ErrInvalidValue, value, c.name)
	}
	c.defaultKind = DefaultValue
	c.defaultVal = value
	return nil
}

// ValidateOperator reports whether op is a meaningful comparison for the
// column's type.
func (c *Column) ValidateOperator(op Operator) bool {
	switch op {
	case Equals, NotEquals:
		return true
	case LessThan, GreaterThan, LessOrEqual, GreaterOrEqual:
		return c.typ != Blob && c.typ != Boolean
	default:
		return false
	}
}
