/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package batch

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	got, err := Encode("H001", 10.0, 20.0, 0.0, 0b0000_0111)
	require.NoError(t, err)
	want := []byte{
		4, 'H', '0', '0', '1',
		0x00, 0x00, 0x20, 0x41, // 10.0
		0x00, 0x00, 0xA0, 0x41, // 20.0
		0x00, 0x00, 0x00, 0x00, // 0.0
		0x07,
	}
	require.Equal(t, want, got)

	// Decoding by hand, the way the server reads it.
	nameLen := int(got[0])
	require.Equal(t, "H001", string(got[1:1+nameLen]))
	tail := got[1+nameLen:]
	require.Len(t, tail, 13)
	require.Equal(t, math.Float32bits(10.0), binary.LittleEndian.Uint32(tail[0:4]))
	require.Equal(t, math.Float32bits(20.0), binary.LittleEndian.Uint32(tail[4:8]))
	require.Equal(t, math.Float32bits(0.0), binary.LittleEndian.Uint32(tail[8:12]))
	require.Equal(t, CarriagewayLRS, Carriageway(tail[12]))
}

func TestEncode_RoundTripExactBits(t *testing.T) {
	tests := []Record{
		{Road: "H001", SLKFrom: 10.0, SLKTo: 20.0, Offset: 0.0, Carriageway: CarriagewayLRS},
		{Road: "", SLKFrom: 0, SLKTo: 0, Offset: 0, Carriageway: 0},
		{Road: "M010", SLKFrom: 0.1, SLKTo: 123.456, Offset: -3.5, Carriageway: CarriagewayL},
		{Road: "Ωmega road", SLKFrom: float32(math.Inf(1)), SLKTo: math.SmallestNonzeroFloat32, Offset: -0.0, Carriageway: CarriagewayRS},
		{Road: "X", SLKFrom: math.MaxFloat32, SLKTo: 1, Offset: 2, Carriageway: 0xFF},
	}
	for _, rec := range tests {
		encoded, err := rec.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, encoded, rec.EncodedLen())

		var decoded Record
		require.NoError(t, decoded.UnmarshalBinary(encoded))
		require.Equal(t, rec.Road, decoded.Road)
		require.Equal(t, math.Float32bits(rec.SLKFrom), math.Float32bits(decoded.SLKFrom))
		require.Equal(t, math.Float32bits(rec.SLKTo), math.Float32bits(decoded.SLKTo))
		require.Equal(t, math.Float32bits(rec.Offset), math.Float32bits(decoded.Offset))
		require.Equal(t, rec.Carriageway, decoded.Carriageway)
	}
}

func TestEncode_NaNKeepsBits(t *testing.T) {
	nan := math.Float32frombits(0x7FC00001)
	encoded, err := Encode("H001", nan, 0, 0, CarriagewayL)
	require.NoError(t, err)
	records, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, uint32(0x7FC00001), math.Float32bits(records[0].SLKFrom))
}

func TestEncode_InvalidRoad(t *testing.T) {
	t.Run("max length is accepted", func(t *testing.T) {
		encoded, err := Encode(strings.Repeat("a", MaxRoadLen), 0, 1, 0, CarriagewayL)
		require.NoError(t, err)
		require.Equal(t, byte(255), encoded[0])
		require.Len(t, encoded, 1+255+13)
	})

	t.Run("too long is rejected", func(t *testing.T) {
		encoded, err := Encode(strings.Repeat("a", MaxRoadLen+1), 0, 1, 0, CarriagewayL)
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.Nil(t, encoded)
	})

	t.Run("multi-byte characters are counted in bytes", func(t *testing.T) {
		_, err := Encode(strings.Repeat("é", 128), 0, 1, 0, CarriagewayL) // 256 bytes
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("invalid UTF-8", func(t *testing.T) {
		_, err := Encode("H\xff01", 0, 1, 0, CarriagewayL)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("append leaves dst unchanged", func(t *testing.T) {
		dst := []byte{1, 2, 3}
		got, err := Record{Road: strings.Repeat("a", 300)}.AppendBinary(dst)
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.Equal(t, []byte{1, 2, 3}, got)
	})
}

func TestConcatenate(t *testing.T) {
	first, err := Encode("H001", 0, 1, 0, 1)
	require.NoError(t, err)
	second, err := Encode("H002", 5, 6, 0, 2)
	require.NoError(t, err)

	buf := Concatenate(first, second)
	require.Len(t, buf, len(first)+len(second))
	require.True(t, bytes.HasPrefix(buf, first))
	require.True(t, bytes.HasSuffix(buf, second))

	records, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, []Record{
		{Road: "H001", SLKFrom: 0, SLKTo: 1, Offset: 0, Carriageway: CarriagewayR},
		{Road: "H002", SLKFrom: 5, SLKTo: 6, Offset: 0, Carriageway: CarriagewayS},
	}, records)

	require.Empty(t, Concatenate())
}

func TestRecord_UnmarshalBinary_TrailingBytes(t *testing.T) {
	encoded, err := Encode("H001", 0, 1, 0, 1)
	require.NoError(t, err)
	var rec Record
	require.ErrorIs(t, rec.UnmarshalBinary(append(encoded, 0)), ErrInvalidArgument)
}
