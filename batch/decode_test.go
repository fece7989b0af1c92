/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package batch

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustEncode(t *testing.T, rec Record) []byte {
	t.Helper()
	encoded, err := rec.MarshalBinary()
	require.NoError(t, err)
	return encoded
}

func TestDecode(t *testing.T) {
	recs := []Record{
		{Road: "H001", SLKFrom: 0, SLKTo: 1, Carriageway: CarriagewayL},
		{Road: "", SLKFrom: 2, SLKTo: 3, Carriageway: 0},
		{Road: "H015", SLKFrom: 1.5, SLKTo: 2.5, Offset: 10, Carriageway: CarriagewayLR},
	}
	var buf []byte
	for _, rec := range recs {
		buf = append(buf, mustEncode(t, rec)...)
	}

	t.Run("buffer", func(t *testing.T) {
		got, err := Decode(buf)
		require.NoError(t, err)
		require.Equal(t, recs, got)

		got, err = Decode(nil)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("stream", func(t *testing.T) {
		dec := NewDecoder(bytes.NewReader(buf))
		var got []Record
		for {
			var rec Record
			err := dec.Decode(&rec)
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			got = append(got, rec)
		}
		require.Equal(t, recs, got)
	})

	t.Run("truncated", func(t *testing.T) {
		for _, cut := range []int{1, 5, len(buf) - 1} {
			_, err := Decode(buf[:len(buf)-cut])
			require.ErrorIs(t, err, ErrTruncated, "cut %d", cut)
		}

		single := mustEncode(t, recs[0])
		dec := NewDecoder(bytes.NewReader(single[:len(single)-1]))
		var rec Record
		require.ErrorIs(t, dec.Decode(&rec), ErrTruncated)

		require.ErrorIs(t, (&rec).UnmarshalBinary(nil), ErrTruncated)
	})

	t.Run("invalid UTF-8 name", func(t *testing.T) {
		bad := mustEncode(t, Record{Road: "H001"})
		bad[2] = 0xff
		_, err := Decode(bad)
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.ErrorIs(t, NewDecoder(bytes.NewReader(bad)).Decode(&Record{}), ErrInvalidArgument)
	})
}
