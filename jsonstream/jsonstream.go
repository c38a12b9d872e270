// Package jsonstream implements the rewindable JSON tokenizer the
// deserializer relies on to tolerate "properties" arriving before
// "project"/"collection" in field order.
//
// A Parser wraps github.com/goccy/go-json's streaming Decoder over an
// in-memory buffer (one event's payload fits comfortably in memory, so
// there is no need to stream from an io.Reader). It supports a single
// savepoint: Save records the current read position, Load abandons the
// active decoder and starts a fresh one at that position. The fresh
// decoder sees the saved byte range as a brand new top-level value, which
// is exactly what re-parsing a buffered "properties" subtree needs.
package jsonstream

import (
	"bytes"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/fieldtype"
)

// Parser tokenizes a single JSON document with one-savepoint rewind
// support. The zero value is not usable; construct with New.
type Parser struct {
	buf    []byte
	dec    *gojson.Decoder
	saved  bool
	offset int64
}

// New returns a Parser over buf. buf is not copied; the caller must not
// mutate it while the Parser is in use.
func New(buf []byte) *Parser {
	return &Parser{
		buf: buf,
		dec: gojson.NewDecoder(bytes.NewReader(buf)),
	}
}

// More reports whether there is another token before the end of the
// current value or input.
func (p *Parser) More() bool {
	return p.dec.More()
}

// Token returns the next JSON token, classified into fieldtype.Token, and
// the corresponding decoded leaf value where applicable (string, float64,
// bool, or nil; delimiters carry no value).
func (p *Parser) Token() (fieldtype.Token, any, error) {
	tok, err := p.dec.Token()
	if err != nil {
		if err == io.EOF {
			return fieldtype.TokenNull, nil, io.EOF
		}
		return fieldtype.TokenNull, nil, errors.WrapInvalid(errors.ErrMalformedEvent, "jsonstream", "Token", err.Error())
	}

	switch v := tok.(type) {
	case gojson.Delim:
		switch rune(v) {
		case '{':
			return fieldtype.TokenStartObject, nil, nil
		case '}':
			return fieldtype.TokenEndObject, nil, nil
		case '[':
			return fieldtype.TokenStartArray, nil, nil
		case ']':
			return fieldtype.TokenEndArray, nil, nil
		}
	case string:
		return fieldtype.TokenString, v, nil
	case bool:
		if v {
			return fieldtype.TokenTrue, v, nil
		}
		return fieldtype.TokenFalse, v, nil
	case float64:
		if v == float64(int64(v)) {
			return fieldtype.TokenInt, v, nil
		}
		return fieldtype.TokenFloat, v, nil
	case nil:
		return fieldtype.TokenNull, nil, nil
	}
	return fieldtype.TokenEmbedded, nil, nil
}

// Decode decodes the next JSON value (scalar, array, or object) into v,
// delegating directly to the underlying decoder. Used to unmarshal an
// entire "properties" subtree into a generic tree on the cold path.
func (p *Parser) Decode(v any) error {
	if err := p.dec.Decode(v); err != nil {
		return errors.WrapInvalid(errors.ErrMalformedEvent, "jsonstream", "Decode", err.Error())
	}
	return nil
}

// Skip discards the next JSON value without interpreting it, advancing
// the decoder past it. Used to step over ignored top-level fields, and
// over a "properties" subtree encountered before project/collection are
// known, once its start position has been saved.
func (p *Parser) Skip() error {
	var discard gojson.RawMessage
	if err := p.dec.Decode(&discard); err != nil {
		return errors.WrapInvalid(errors.ErrMalformedEvent, "jsonstream", "Skip", err.Error())
	}
	return nil
}

// Save records the current read position as the single savepoint. It is
// an error to call Save while a savepoint is already active; the parser
// supports exactly one outstanding savepoint at a time, matching the
// single-occurrence contract: "properties" appears at most once per
// event.
func (p *Parser) Save() error {
	if p.saved {
		return errors.WrapFatal(errors.ErrMalformedEvent, "jsonstream", "Save", "savepoint already active")
	}
	p.offset = p.dec.InputOffset()
	p.saved = true
	return nil
}

// IsSaved reports whether a savepoint is currently active.
func (p *Parser) IsSaved() bool {
	return p.saved
}

// Load abandons the current decoder and starts a fresh one positioned at
// the active savepoint, consuming the savepoint in the process. The new
// decoder observes the saved byte range as a fresh top-level value: if
// the savepoint was recorded immediately before a '{', the very next
// Token() call returns TokenStartObject for that object, exactly as if
// it were the start of the input.
func (p *Parser) Load() error {
	if !p.saved {
		return errors.WrapFatal(errors.ErrMalformedEvent, "jsonstream", "Load", "no active savepoint")
	}
	p.dec = gojson.NewDecoder(bytes.NewReader(p.buf[p.offset:]))
	p.saved = false
	return nil
}
