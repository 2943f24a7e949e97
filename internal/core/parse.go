package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Parse errors. Use errors.Is to classify a failed upload.
var (
	ErrEmptyInput   = errors.New("uploaded CSV is empty")
	ErrNoColumns    = errors.New("no columns to parse from file")
	ErrMalformedCSV = errors.New("invalid csv")
)

// ParseError describes why an upload could not be read as a table.
// Kind is one of ErrEmptyInput, ErrNoColumns or ErrMalformedCSV.
type ParseError struct {
	Kind error
	Line int   // 1-based input line, 0 if unknown
	Err  error // underlying cause, if any
}

func (e *ParseError) Error() string {
	switch {
	case e.Err == nil:
		return e.Kind.Error()
	case e.Line > 0:
		return fmt.Sprintf("%v: line %d: %v", e.Kind, e.Line, e.Err)
	default:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Parse reads a CSV payload into a Table. The first record is the header.
//
// A leading UTF-8 BOM is skipped and blank lines are ignored. Records with
// fewer fields than the header are padded with missing cells; records with
// more fields are rejected.
func Parse(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, &ParseError{Kind: ErrMalformedCSV, Err: fmt.Errorf("encoding error: invalid UTF-8 at byte %d", invalidUTF8Offset(data))}
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Kind: ErrNoColumns}
	}
	if err != nil {
		return nil, malformed(err)
	}
	if len(header) == 0 {
		return nil, &ParseError{Kind: ErrNoColumns}
	}

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}
		if len(rec) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, &ParseError{
				Kind: ErrMalformedCSV,
				Line: line,
				Err:  fmt.Errorf("expected %d fields, saw %d", len(header), len(rec)),
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &ParseError{Kind: ErrEmptyInput}
	}

	t, err := NewTable(header, records)
	if err != nil {
		return nil, malformed(err)
	}
	return t, nil
}

// ParseReader reads r fully and parses it with Parse.
func ParseReader(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(NewBOMSkippingReader(r))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return Parse(data)
}

// malformed wraps a csv reader error, keeping its line number.
func malformed(err error) *ParseError {
	pe := &ParseError{Kind: ErrMalformedCSV, Err: err}
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		pe.Line = csvErr.Line
		pe.Err = csvErr.Err
	}
	return pe
}

func invalidUTF8Offset(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(data)
}
