// Package bte defines the canonical error taxonomy shared by every layer of
// the log: the object state machine, the view store, the striper and the
// backend façade all return a bte.BTE rather than a bare error so that
// callers can switch on Code() without parsing strings.
package bte

import "fmt"

// Code identifies one of the deterministic outcomes described in spec.md
// §4.6 and §7. Codes are grouped there into input errors, state errors and
// infrastructure errors; the grouping is informative only, Code itself is
// flat.
type Code int

const (
	// OK is never carried by a BTE; it exists so zero-value Code is
	// distinguishable from a real error in tests that compare codes.
	OK Code = iota

	InvalidArgument
	IOError
	NotFound
	AlreadyExists
	WrongObject
	TooLarge
	ReadOnly
	Unwritten
	Invalidated

	// NotWritten is the backend façade's canonical code for a read of an
	// Unused slot (spec.md §4.5/§6, original_source's ZLOG_NOT_WRITTEN):
	// the externally-observable name for what the object store tags
	// internally as Unwritten. internal/objectstore keeps returning
	// Unwritten on ReadResult; backend.Read translates it to NotWritten.
	NotWritten

	// StaleEpoch and InvalidEpoch are carried on the wire by the backend
	// façade (spec.md §4.5); the object/view store never produce them
	// directly since epoch-based sealing is not consulted by this spec's
	// state machine (spec.md §9, "v2 shape is authoritative").
	StaleEpoch
	InvalidEpoch

	// OutOfRange is a striper-local condition (spec.md §4.4): the position
	// is not covered by any view the striper currently knows about.
	OutOfRange
)

var names = map[Code]string{
	OK:              "OK",
	InvalidArgument: "InvalidArgument",
	IOError:         "IOError",
	NotFound:        "NotFound",
	AlreadyExists:   "AlreadyExists",
	WrongObject:     "WrongObject",
	TooLarge:        "TooLarge",
	ReadOnly:        "ReadOnly",
	Unwritten:       "Unwritten",
	Invalidated:     "Invalidated",
	NotWritten:      "NotWritten",
	StaleEpoch:      "StaleEpoch",
	InvalidEpoch:    "InvalidEpoch",
	OutOfRange:      "OutOfRange",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// BTE is the error interface carried across every package boundary in this
// module. It is deliberately small: a code to switch on, and a message for
// humans.
type BTE interface {
	error
	Code() Code
}

type bte struct {
	code Code
	msg  string
}

func (e *bte) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e *bte) Code() Code {
	return e.code
}

// Err constructs a BTE carrying the given code and message.
func Err(code Code, msg string) BTE {
	return &bte{code: code, msg: msg}
}

// Errf is Err with fmt.Sprintf-style formatting.
func Errf(code Code, format string, args ...interface{}) BTE {
	return &bte{code: code, msg: fmt.Sprintf(format, args...)}
}

// Chan wraps a single BTE in a closed, one-element channel, used by
// streaming APIs that report errors out of band (mirrors the teacher's
// bte.Chan helper used throughout quasar.go's streaming query methods).
func Chan(e BTE) chan BTE {
	c := make(chan BTE, 1)
	c <- e
	close(c)
	return c
}

// Is reports whether err is a BTE carrying the given code.
func Is(err error, code Code) bool {
	b, ok := err.(BTE)
	return ok && b.Code() == code
}
