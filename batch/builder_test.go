/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add("H001", 0, 1, 0, CarriagewayR))
	require.NoError(t, b.AddRecord(Record{Road: "H002", SLKFrom: 5, SLKTo: 6, Carriageway: CarriagewayS}))
	require.Equal(t, 2, b.Count())

	first, err := Encode("H001", 0, 1, 0, CarriagewayR)
	require.NoError(t, err)
	second, err := Encode("H002", 5, 6, 0, CarriagewayS)
	require.NoError(t, err)
	require.Equal(t, Concatenate(first, second), b.Bytes())
	require.Equal(t, len(first)+len(second), b.Len())

	require.ErrorIs(t, b.Add(strings.Repeat("x", 256), 0, 0, 0, 0), ErrInvalidArgument)
	require.Equal(t, 2, b.Count())
	require.Equal(t, len(first)+len(second), b.Len())

	b.Reset()
	require.Equal(t, 0, b.Count())
	require.Equal(t, 0, b.Len())
}

func TestBuilder_MaxSize(t *testing.T) {
	rec := Record{Road: "H001", SLKTo: 1, Carriageway: CarriagewayL}
	b := NewBuilderWithMaxSize(2 * rec.EncodedLen())
	require.NoError(t, b.AddRecord(rec))
	require.NoError(t, b.AddRecord(rec))
	require.ErrorIs(t, b.AddRecord(rec), ErrBatchTooLarge)
	require.Equal(t, 2, b.Count())
	require.Equal(t, 2*rec.EncodedLen(), b.Len())
}
