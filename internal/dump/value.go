// Package dump serializes live MySQL tables into a replayable plain-text
// SQL script and splits such scripts back into executable statements.
package dump

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedType reports a column value that cannot be mapped onto one
// of the literal kinds. Values are never silently stringified.
var ErrUnsupportedType = errors.New("unsupported column type")

// Kind tags a Value. The tag chosen at dump time is reproduced exactly at
// restore time: Bytes and Text have different literal encodings and must
// never be confused.
type Kind uint8

const (
	Null Kind = iota
	Int
	Float
	Bytes
	Text
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bytes:
		return "bytes"
	case Text:
		return "text"
	}
	return "invalid"
}

// Value is one column value in its dump representation. Numeric kinds keep
// the decimal literal text verbatim, so encoding never re-rounds a float or
// applies locale formatting.
type Value struct {
	Kind Kind
	Num  string // Int, Float
	Data []byte // Bytes
	Str  string // Text
}

func NullValue() Value { return Value{Kind: Null} }

func IntValue(i int64) Value {
	return Value{Kind: Int, Num: strconv.FormatInt(i, 10)}
}

func UintValue(u uint64) Value {
	return Value{Kind: Int, Num: strconv.FormatUint(u, 10)}
}

func FloatValue(f float64) Value {
	return Value{Kind: Float, Num: strconv.FormatFloat(f, 'g', -1, 64)}
}

func BytesValue(b []byte) Value { return Value{Kind: Bytes, Data: b} }

func TextValue(s string) Value { return Value{Kind: Text, Str: s} }

// textEscaper rewrites the five characters that must not appear raw inside
// a single-quoted MySQL literal.
var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Encode renders the value as a MySQL literal. Bytes become a hex literal
// (X'..') so embedded NUL or arbitrary bytes need no escaping at all.
func (v Value) Encode() string {
	switch v.Kind {
	case Null:
		return "NULL"
	case Int, Float:
		return v.Num
	case Bytes:
		return "X'" + hex.EncodeToString(v.Data) + "'"
	case Text:
		return "'" + textEscaper.Replace(v.Str) + "'"
	}
	return "NULL"
}

// DecodeLiteral parses a single literal produced by Encode back into a
// Value. DecodeLiteral(v.Encode()) == v for every representable value.
func DecodeLiteral(lit string) (Value, error) {
	s := strings.TrimSpace(lit)
	if s == "" {
		return Value{}, fmt.Errorf("decode literal: empty input")
	}

	if strings.EqualFold(s, "NULL") {
		return NullValue(), nil
	}

	if len(s) >= 3 && (s[0] == 'X' || s[0] == 'x') && s[1] == '\'' && s[len(s)-1] == '\'' {
		raw, err := hex.DecodeString(s[2 : len(s)-1])
		if err != nil {
			return Value{}, fmt.Errorf("decode hex literal %q: %w", s, err)
		}
		return BytesValue(raw), nil
	}

	if s[0] == '\'' {
		return decodeQuoted(s)
	}

	return decodeNumber(s)
}

func decodeQuoted(s string) (Value, error) {
	if len(s) < 2 || s[len(s)-1] != '\'' {
		return Value{}, fmt.Errorf("decode literal %q: unterminated string", s)
	}
	body := s[1 : len(s)-1]

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			if c == '\'' {
				return Value{}, fmt.Errorf("decode literal %q: bare quote inside string", s)
			}
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return Value{}, fmt.Errorf("decode literal %q: dangling escape", s)
		}
		switch body[i] {
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			return Value{}, fmt.Errorf("decode literal %q: unknown escape \\%c", s, body[i])
		}
	}
	return TextValue(b.String()), nil
}

func decodeNumber(s string) (Value, error) {
	if strings.ContainsAny(s, ".eE") {
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return Value{}, fmt.Errorf("decode numeric literal %q: %w", s, err)
		}
		return Value{Kind: Float, Num: s}, nil
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		if _, uerr := strconv.ParseUint(s, 10, 64); uerr != nil {
			return Value{}, fmt.Errorf("decode numeric literal %q: %w", s, err)
		}
	}
	return Value{Kind: Int, Num: s}, nil
}

// MySQL column type families, keyed by the driver's DatabaseTypeName. Any
// type missing from these maps is an ErrUnsupportedType at dump time.
var (
	intColumnTypes = map[string]bool{
		"TINYINT": true, "SMALLINT": true, "MEDIUMINT": true,
		"INT": true, "BIGINT": true, "YEAR": true,
	}
	floatColumnTypes = map[string]bool{
		"FLOAT": true, "DOUBLE": true,
	}
	textColumnTypes = map[string]bool{
		"CHAR": true, "VARCHAR": true,
		"TINYTEXT": true, "TEXT": true, "MEDIUMTEXT": true, "LONGTEXT": true,
		"ENUM": true, "SET": true, "JSON": true,
		"DATE": true, "DATETIME": true, "TIMESTAMP": true, "TIME": true,
		"DECIMAL": true, "NUMERIC": true,
	}
	binaryColumnTypes = map[string]bool{
		"BINARY": true, "VARBINARY": true,
		"TINYBLOB": true, "BLOB": true, "MEDIUMBLOB": true, "LONGBLOB": true,
		"BIT": true, "GEOMETRY": true,
	}
)

// Classify maps one raw driver value to its Value given the column's MySQL
// type name. The MySQL text protocol hands most values over as []byte, so
// the column type, not the Go type, decides the kind.
func Classify(raw any, dbType string) (Value, error) {
	if raw == nil {
		return NullValue(), nil
	}

	typ := strings.TrimPrefix(strings.ToUpper(dbType), "UNSIGNED ")

	switch {
	case intColumnTypes[typ]:
		switch v := raw.(type) {
		case int64:
			return IntValue(v), nil
		case uint64:
			return UintValue(v), nil
		case []byte:
			if _, err := strconv.ParseInt(string(v), 10, 64); err != nil {
				if _, uerr := strconv.ParseUint(string(v), 10, 64); uerr != nil {
					return Value{}, fmt.Errorf("%w: %s value %q is not an integer", ErrUnsupportedType, dbType, v)
				}
			}
			return Value{Kind: Int, Num: string(v)}, nil
		}

	case floatColumnTypes[typ]:
		switch v := raw.(type) {
		case float64:
			return FloatValue(v), nil
		case float32:
			return FloatValue(float64(v)), nil
		case []byte:
			if _, err := strconv.ParseFloat(string(v), 64); err != nil {
				return Value{}, fmt.Errorf("%w: %s value %q is not a float", ErrUnsupportedType, dbType, v)
			}
			return Value{Kind: Float, Num: string(v)}, nil
		}

	case textColumnTypes[typ]:
		switch v := raw.(type) {
		case string:
			return TextValue(v), nil
		case []byte:
			return TextValue(string(v)), nil
		}

	case binaryColumnTypes[typ]:
		switch v := raw.(type) {
		case []byte:
			return BytesValue(v), nil
		case string:
			return BytesValue([]byte(v)), nil
		}
	}

	return Value{}, fmt.Errorf("%w: column type %s (Go %T)", ErrUnsupportedType, dbType, raw)
}
