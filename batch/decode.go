/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package batch

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Decode parses a buffer of concatenated records.
func Decode(buf []byte) ([]Record, error) {
	var records []Record
	for offset := 0; offset < len(buf); {
		rec, n, err := decodeRecord(buf[offset:])
		if err != nil {
			return nil, fmt.Errorf("record #%d at offset %d: %w", len(records), offset, err)
		}
		records = append(records, rec)
		offset += n
	}
	return records, nil
}

// decodeRecord decodes the first record of buf and returns it with the number of consumed bytes.
func decodeRecord(buf []byte) (Record, int, error) {
	if len(buf) == 0 {
		return Record{}, 0, fmt.Errorf("%w: empty input", ErrTruncated)
	}
	nameLen := int(buf[0])
	total := 1 + nameLen + fixedTailLen
	if len(buf) < total {
		return Record{}, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, total, len(buf))
	}
	rec, err := parseRecord(buf[1:1+nameLen], buf[1+nameLen:total])
	if err != nil {
		return Record{}, 0, err
	}
	return rec, total, nil
}

func parseRecord(name, tail []byte) (Record, error) {
	if !utf8.Valid(name) {
		return Record{}, fmt.Errorf("%w: road name is not valid UTF-8", ErrInvalidArgument)
	}
	return Record{
		Road:        string(name),
		SLKFrom:     math.Float32frombits(binary.LittleEndian.Uint32(tail[0:4])),
		SLKTo:       math.Float32frombits(binary.LittleEndian.Uint32(tail[4:8])),
		Offset:      math.Float32frombits(binary.LittleEndian.Uint32(tail[8:12])),
		Carriageway: Carriageway(tail[12]),
	}, nil
}

// Decoder reads records one by one from a stream.
type Decoder struct {
	r    *bufio.Reader
	buf  [MaxRoadLen + fixedTailLen]byte
	read int
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the next record. It returns io.EOF when the stream ends at a record boundary
// and an error wrapping ErrTruncated when it ends inside a record.
func (d *Decoder) Decode(rec *Record) error {
	nameLen, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	n := int(nameLen) + fixedTailLen
	if _, err = io.ReadFull(d.r, d.buf[:n]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("record #%d: %w", d.read, ErrTruncated)
		}
		return err
	}
	parsed, err := parseRecord(d.buf[:nameLen], d.buf[nameLen:n])
	if err != nil {
		return fmt.Errorf("record #%d: %w", d.read, err)
	}
	*rec = parsed
	d.read++
	return nil
}
