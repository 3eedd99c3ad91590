// Package indexdoc streams index documents as JSON.
//
// Writer only ever appends to its underlying io.Writer: it never seeks,
// buffers whole documents or rewrites earlier bytes. Fragment producers such
// as the attachment encoder receive the Writer mid-object and add fields.
package indexdoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrState is returned when a write does not fit the current nesting.
var ErrState = errors.New("indexdoc: invalid writer state")

type frame struct {
	array bool
	count int
}

// Writer is an append-only streaming JSON writer.
type Writer struct {
	w     io.Writer
	stack []frame
	n     int64
	err   error
}

// NewWriter returns a Writer appending to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Fragment returns a Writer positioned inside an object that already holds
// fields written elsewhere, so the next field is preceded by a comma.
func Fragment(w io.Writer, hasFields bool) *Writer {
	f := frame{}
	if hasFields {
		f.count = 1
	}
	return &Writer{w: w, stack: []frame{f}}
}

// Written returns the number of bytes appended so far.
func (w *Writer) Written() int64 {
	return w.n
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(s string) {
	if w.err != nil {
		return
	}
	n, err := io.WriteString(w.w, s)
	w.n += int64(n)
	w.err = err
}

func (w *Writer) top() *frame {
	if len(w.stack) == 0 {
		return nil
	}
	return &w.stack[len(w.stack)-1]
}

// separate emits the comma between siblings.
func (w *Writer) separate() {
	if f := w.top(); f != nil {
		if f.count > 0 {
			w.write(",")
		}
		f.count++
	}
}

// BeginObject opens an object, as a top-level value or an array element.
func (w *Writer) BeginObject() error {
	if f := w.top(); f != nil && !f.array {
		return fmt.Errorf("%w: object needs a field name", ErrState)
	}
	w.separate()
	w.write("{")
	w.stack = append(w.stack, frame{})
	return w.err
}

// EndObject closes the innermost object.
func (w *Writer) EndObject() error {
	if f := w.top(); f == nil || f.array {
		return fmt.Errorf("%w: no open object", ErrState)
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.write("}")
	return w.err
}

// BeginArray opens a top-level array of documents.
func (w *Writer) BeginArray() error {
	if f := w.top(); f != nil {
		return fmt.Errorf("%w: arrays are top-level only", ErrState)
	}
	w.write("[")
	w.stack = append(w.stack, frame{array: true})
	return w.err
}

// EndArray closes the top-level array.
func (w *Writer) EndArray() error {
	if f := w.top(); f == nil || !f.array {
		return fmt.Errorf("%w: no open array", ErrState)
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.write("]")
	return w.err
}

// name writes `"name":` after the separator.
func (w *Writer) name(name string) error {
	f := w.top()
	if f == nil || f.array {
		return fmt.Errorf("%w: fields need an open object", ErrState)
	}
	key, err := json.Marshal(name)
	if err != nil {
		return err
	}
	w.separate()
	w.write(string(key))
	w.write(":")
	return nil
}

// Field writes name and the JSON encoding of value.
func (w *Writer) Field(name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode field %s: %w", name, err)
	}
	if err := w.name(name); err != nil {
		return err
	}
	w.write(string(data))
	return w.err
}

// RawField writes name and then lets fn append the value bytes directly.
// fn must emit exactly one valid JSON value.
func (w *Writer) RawField(name string, fn func(io.Writer) error) error {
	if err := w.name(name); err != nil {
		return err
	}
	if w.err != nil {
		return w.err
	}
	cw := &countingWriter{w: w.w}
	err := fn(cw)
	w.n += cw.n
	if err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

// Depth returns the current nesting depth.
func (w *Writer) Depth() int {
	return len(w.stack)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
