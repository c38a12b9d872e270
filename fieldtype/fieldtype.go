// Package fieldtype enumerates the scalar types a schema field can hold and
// maps JSON tokens onto them.
package fieldtype

import (
	"fmt"

	"github.com/c360/eventschema/errors"
)

// Type is a closed enumeration of the field types supported by a schema.
// Nested objects and array-of-array have no representation here by design;
// the ingestion pipeline rejects them rather than modeling them.
type Type int

const (
	// STRING holds a JSON string token.
	STRING Type = iota
	// LONG holds an integral JSON number.
	LONG
	// DOUBLE holds a fractional JSON number.
	DOUBLE
	// BOOLEAN holds a JSON boolean. Historically decoded only from a JSON
	// string token on the fast path, never from true/false; see the
	// BOOLEAN open question recorded in DESIGN.md.
	BOOLEAN
	// ARRAY holds an array of STRING elements. Always array-of-STRING in
	// this model; array-of-array is rejected.
	ARRAY
)

// String returns the canonical lowercase name of the type.
func (t Type) String() string {
	switch t {
	case STRING:
		return "string"
	case LONG:
		return "long"
	case DOUBLE:
		return "double"
	case BOOLEAN:
		return "boolean"
	case ARRAY:
		return "array"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Token is the subset of JSON token kinds the type model distinguishes.
// It abstracts over the specific streaming-decoder library so fieldtype has
// no import dependency on jsonstream.
type Token int

const (
	TokenNull Token = iota
	TokenString
	TokenTrue
	TokenFalse
	TokenInt
	TokenFloat
	TokenStartArray
	TokenStartObject
	TokenEmbedded
	// TokenEndObject and TokenEndArray are structural closing delimiters.
	// They never reach FromToken as a value token; a caller consumes them
	// purely to advance past the end of a container.
	TokenEndObject
	TokenEndArray
)

// FromToken maps a single scalar JSON token to a Type, mirroring
// fieldTypeFromToken in the original algorithm.
//
// A null token yields (0, false): the field contributes no type information
// and is skipped by the caller. Start-of-object or embedded-binary tokens
// are rejected with ErrNestedNotSupported; start-of-array yields ARRAY.
func FromToken(tok Token) (Type, bool, error) {
	switch tok {
	case TokenString:
		return STRING, true, nil
	case TokenTrue, TokenFalse:
		return BOOLEAN, true, nil
	case TokenInt:
		return LONG, true, nil
	case TokenFloat:
		return DOUBLE, true, nil
	case TokenStartArray:
		return ARRAY, true, nil
	case TokenNull:
		return 0, false, nil
	case TokenStartObject, TokenEmbedded:
		return 0, false, errors.ErrNestedNotSupported
	default:
		return 0, false, nil
	}
}

// FromJSONValue infers a Type from an already-decoded Go value, used by the
// schemaless bootstrap (cold) path where the properties object has been
// unmarshaled into a generic tree rather than streamed token-by-token.
//
// nil yields (0, false). A one-element-deep slice is accepted as ARRAY; a
// slice of slices is rejected with ErrNestedNotSupported, mirroring
// getTypeFromJsonNode's single level of recursion.
func FromJSONValue(v any) (Type, bool, error) {
	switch val := v.(type) {
	case nil:
		return 0, false, nil
	case string:
		return STRING, true, nil
	case bool:
		return BOOLEAN, true, nil
	case float64:
		if val == float64(int64(val)) {
			return LONG, true, nil
		}
		return DOUBLE, true, nil
	case []any:
		if len(val) == 0 {
			return ARRAY, true, nil
		}
		elemType, ok, err := FromJSONValue(val[0])
		if err != nil {
			return 0, false, err
		}
		if ok && elemType == ARRAY {
			return 0, false, errors.ErrNestedNotSupported
		}
		return ARRAY, true, nil
	case map[string]any:
		return 0, false, errors.ErrNestedNotSupported
	default:
		return 0, false, errors.Wrap(errors.ErrNestedNotSupported, "fieldtype", "FromJSONValue", fmt.Sprintf("unsupported value %T", v))
	}
}
