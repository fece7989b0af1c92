/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package batch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCarriageway_Values(t *testing.T) {
	require.Equal(t, Carriageway(0b100), CarriagewayL)
	require.Equal(t, Carriageway(0b001), CarriagewayR)
	require.Equal(t, Carriageway(0b010), CarriagewayS)
	require.Equal(t, Carriageway(0b101), CarriagewayLR)
	require.Equal(t, Carriageway(0b110), CarriagewayLS)
	require.Equal(t, Carriageway(0b011), CarriagewayRS)
	require.Equal(t, Carriageway(0b111), CarriagewayLRS)
}

func TestParseCarriageway(t *testing.T) {
	tests := []struct {
		in   string
		want Carriageway
	}{
		{"L", CarriagewayL},
		{"R", CarriagewayR},
		{"S", CarriagewayS},
		{"LR", CarriagewayLR},
		{"RL", CarriagewayLR},
		{"LS", CarriagewayLS},
		{"SL", CarriagewayLS},
		{"RS", CarriagewayRS},
		{"SR", CarriagewayRS},
		{"LRS", CarriagewayLRS},
		{"RLS", CarriagewayLRS},
		{"RSL", CarriagewayLRS},
		{"SLR", CarriagewayLRS},
		{"SRL", CarriagewayLRS},
		{"LSR", CarriagewayLRS},
		{"lr", CarriagewayLR},
	}
	for _, tt := range tests {
		got, err := ParseCarriageway(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	for _, in := range []string{"", "X", "LL", "LRSL", "L R", "é"} {
		_, err := ParseCarriageway(in)
		require.ErrorIs(t, err, ErrInvalidArgument, in)
	}
	require.Panics(t, func() { MustParseCarriageway("Q") })
}

func TestCarriageway_String(t *testing.T) {
	require.Equal(t, "LR", MustParseCarriageway("RL").String())
	require.Equal(t, "LRS", CarriagewayLRS.String())
	require.Equal(t, "none", Carriageway(0).String())
	require.Equal(t, "Carriageway(0b00001000)", Carriageway(0b1000).String())
}

func TestCarriageway_Sets(t *testing.T) {
	require.True(t, CarriagewayLRS.Has(CarriagewayLS))
	require.False(t, CarriagewayLR.Has(CarriagewayS))
	require.True(t, CarriagewayLR.Overlaps(CarriagewayRS))
	require.False(t, CarriagewayL.Overlaps(CarriagewayRS))

	require.Equal(t, CarriagewayLRS, Carriageway(0).Effective())
	require.Equal(t, CarriagewayLRS, Carriageway(0xF0).Effective())
	require.Equal(t, CarriagewayRS, CarriagewayRS.Effective())
}

func TestCarriageway_Text(t *testing.T) {
	var v struct {
		Cwy Carriageway `json:"cwy"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"cwy":"SR"}`), &v))
	require.Equal(t, CarriagewayRS, v.Cwy)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.JSONEq(t, `{"cwy":"RS"}`, string(data))

	require.Error(t, json.Unmarshal([]byte(`{"cwy":"Z"}`), &v))
	_, err = json.Marshal(struct{ Cwy Carriageway }{})
	require.Error(t, err)
}
