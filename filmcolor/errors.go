package filmcolor

import "errors"

var (
	// ErrConversion is returned for RGB channels outside [0,255].
	ErrConversion = errors.New("color conversion failed")
	// ErrNormalization is returned for a zero background channel under ZeroReject.
	ErrNormalization = errors.New("normalization failed")
	// ErrSchemaMismatch is returned when a table's columns differ from the lookup columns.
	ErrSchemaMismatch = errors.New("lookup table column mismatch")
	// ErrEmptyTable is returned when matching against a table without entries.
	ErrEmptyTable = errors.New("lookup table is empty")
	// ErrLookupTableNotFound is returned when a substrate has no persisted table.
	ErrLookupTableNotFound = errors.New("lookup table not found")
	// ErrMalformedResultRecord is returned when a stored result row cannot be parsed.
	ErrMalformedResultRecord = errors.New("malformed result record")
	// ErrUnknownSubstrate is returned for substrates outside the configured set.
	ErrUnknownSubstrate = errors.New("unknown substrate")
	// ErrNoResults is returned by remap when no result log exists yet.
	ErrNoResults = errors.New("no results file")
	// ErrInvalidRequest is returned for requests missing a mode or method.
	ErrInvalidRequest = errors.New("invalid request")
)
