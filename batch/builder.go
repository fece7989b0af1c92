/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package batch

import "fmt"

// Builder accumulates encoded records into one request body.
// It is not safe for concurrent use.
type Builder struct {
	buf     []byte
	count   int
	maxSize int
}

// NewBuilder creates a new Builder without size limit.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewBuilderWithMaxSize creates a new Builder that never grows over maxSize bytes.
// Zero or negative maxSize means no limit.
func NewBuilderWithMaxSize(maxSize int) *Builder {
	return &Builder{maxSize: maxSize}
}

// Add encodes and appends a single lookup.
func (b *Builder) Add(road string, slkFrom, slkTo, offset float32, cwy Carriageway) error {
	return b.AddRecord(Record{Road: road, SLKFrom: slkFrom, SLKTo: slkTo, Offset: offset, Carriageway: cwy})
}

// AddRecord encodes and appends the record. On error the builder is left unchanged.
func (b *Builder) AddRecord(rec Record) error {
	if b.maxSize > 0 && len(b.buf)+rec.EncodedLen() > b.maxSize {
		return fmt.Errorf("%w: adding %d bytes to %d would exceed %d", ErrBatchTooLarge, rec.EncodedLen(), len(b.buf), b.maxSize)
	}
	buf, err := rec.AppendBinary(b.buf)
	if err != nil {
		return err
	}
	b.buf = buf
	b.count++
	return nil
}

// Len returns the size of the accumulated body in bytes.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Count returns the number of added records.
func (b *Builder) Count() int {
	return b.count
}

// Bytes returns the accumulated body. The slice is valid until the next call to Add or Reset.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Reset empties the builder keeping the allocated memory.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
	b.count = 0
}
