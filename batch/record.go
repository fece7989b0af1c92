/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package batch encodes road lookups into the compact binary format accepted by the batch endpoint.
//
// Each record is laid out as
//
//	[name length: u8][name: UTF-8][slk from: f32][slk to: f32][offset: f32][carriageway: u8]
//
// with floats in IEEE-754 little-endian byte order. Records are concatenated without any
// delimiters or count prefix, a decoder finds record boundaries by reading the name length.
package batch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// MaxRoadLen is the maximum length of a road name in bytes.
const MaxRoadLen = math.MaxUint8

// fixedTailLen is the size of the three floats and the carriageway byte.
const fixedTailLen = 4 + 4 + 4 + 1

// MinRecordLen is the size of a record with an empty road name.
const MinRecordLen = 1 + fixedTailLen

var (
	// ErrInvalidArgument is returned for records that cannot be encoded (road name too long or not UTF-8).
	// Names are never truncated.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTruncated is returned when the input ends in the middle of a record.
	ErrTruncated = errors.New("truncated record")

	// ErrBatchTooLarge is returned by Builder when adding a record would exceed its size limit.
	ErrBatchTooLarge = errors.New("batch too large")
)

// Record is a single road lookup.
// SLKFrom and SLKTo are straight line kilometres along the road, Offset is a lateral offset in metres.
type Record struct {
	Road        string
	SLKFrom     float32
	SLKTo       float32
	Offset      float32
	Carriageway Carriageway
}

// Validate checks that the record can be encoded.
func (r Record) Validate() error {
	if len(r.Road) > MaxRoadLen {
		return fmt.Errorf("%w: road name is %d bytes long, max is %d", ErrInvalidArgument, len(r.Road), MaxRoadLen)
	}
	if !utf8.ValidString(r.Road) {
		return fmt.Errorf("%w: road name is not valid UTF-8", ErrInvalidArgument)
	}
	return nil
}

// EncodedLen returns the number of bytes the record takes in the wire format.
func (r Record) EncodedLen() int {
	return 1 + len(r.Road) + fixedTailLen
}

// AppendBinary appends the encoded record to dst and returns the extended buffer.
// dst is returned unchanged if the record is invalid.
func (r Record) AppendBinary(dst []byte) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return dst, err
	}
	dst = append(dst, byte(len(r.Road)))
	dst = append(dst, r.Road...)
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(r.SLKFrom))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(r.SLKTo))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(r.Offset))
	dst = append(dst, byte(r.Carriageway))
	return dst, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r Record) MarshalBinary() ([]byte, error) {
	buf, err := r.AppendBinary(make([]byte, 0, r.EncodedLen()))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. data must hold exactly one record.
func (r *Record) UnmarshalBinary(data []byte) error {
	rec, n, err := decodeRecord(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("%w: %d trailing bytes after record", ErrInvalidArgument, len(data)-n)
	}
	*r = rec
	return nil
}

// Encode encodes a single lookup. It fails with ErrInvalidArgument if road is longer
// than MaxRoadLen bytes or is not valid UTF-8.
func Encode(road string, slkFrom, slkTo, offset float32, cwy Carriageway) ([]byte, error) {
	return Record{Road: road, SLKFrom: slkFrom, SLKTo: slkTo, Offset: offset, Carriageway: cwy}.MarshalBinary()
}

// Concatenate joins encoded records in the given order into one request body.
func Concatenate(records ...[]byte) []byte {
	size := 0
	for _, rec := range records {
		size += len(rec)
	}
	buf := make([]byte, 0, size)
	for _, rec := range records {
		buf = append(buf, rec...)
	}
	return buf
}
