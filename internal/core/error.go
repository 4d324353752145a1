package core

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	KindExecution ErrorKind = iota
	KindInvalidMarker
	KindUnserializable
	KindBundle
)

func (k ErrorKind) String() string {
	switch k {
	case KindExecution:
		return "execution failed"
	case KindInvalidMarker:
		return "invalid serialization marker"
	case KindUnserializable:
		return "value is not serializable"
	case KindBundle:
		return "bundling failed"
	}
	return "unknown error"
}

var (
	ErrInvalidMarker   = errors.New("invalid serialization marker")
	ErrNotSerializable = errors.New("value is not serializable")
)

type ErrorDetail struct {
	Message  string
	File     string
	Line     int
	Column   int
	LineText string
}

// CompileError aborts the pipeline for one file. Nothing is emitted for a
// file that produced one.
type CompileError struct {
	Kind      ErrorKind
	File      string
	ExportKey string
	ValueKind string
	Message   string
	Stack     string
	Errors    []ErrorDetail
	Err       error
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.File != "" {
		fmt.Fprintf(&sb, " in %s", e.File)
	}
	if e.ExportKey != "" {
		fmt.Fprintf(&sb, " (export %q", e.ExportKey)
		if e.ValueKind != "" {
			fmt.Fprintf(&sb, ", %s", e.ValueKind)
		}
		sb.WriteString(")")
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	for _, d := range e.Errors {
		fmt.Fprintf(&sb, "\n  - %s", d.Message)
		if d.File != "" {
			fmt.Fprintf(&sb, " (%s:%d:%d)", d.File, d.Line, d.Column)
		}
	}
	return sb.String()
}

func (e *CompileError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	switch e.Kind {
	case KindInvalidMarker:
		return ErrInvalidMarker
	case KindUnserializable:
		return ErrNotSerializable
	}
	return nil
}

// WithFile attaches the originating file to err when it is a CompileError
// that does not name one yet.
func WithFile(err error, file string) error {
	var ce *CompileError
	if errors.As(err, &ce) && ce.File == "" {
		ce.File = file
	}
	return err
}
