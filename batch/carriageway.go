/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package batch

import (
	"fmt"
	"strings"
)

// Carriageway is a bit set of carriageways a lookup applies to.
// Zero value means that no carriageway is specified.
type Carriageway uint8

// Single carriageways and all their combinations.
const (
	CarriagewayR Carriageway = 0b0000_0001
	CarriagewayS Carriageway = 0b0000_0010
	CarriagewayL Carriageway = 0b0000_0100

	CarriagewayLR  = CarriagewayL | CarriagewayR
	CarriagewayLS  = CarriagewayL | CarriagewayS
	CarriagewayRS  = CarriagewayR | CarriagewayS
	CarriagewayLRS = CarriagewayL | CarriagewayR | CarriagewayS
)

var carriagewayLetters = []struct {
	letter byte
	flag   Carriageway
}{
	{'L', CarriagewayL},
	{'R', CarriagewayR},
	{'S', CarriagewayS},
}

// ParseCarriageway parses carriageway letters (L, R, S) given in any order and case,
// so "RL" and "lr" both give CarriagewayLR. Every letter may occur only once.
func ParseCarriageway(s string) (Carriageway, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty carriageway", ErrInvalidArgument)
	}
	var c Carriageway
	for i := 0; i < len(s); i++ {
		flag, ok := carriagewayFlag(s[i])
		if !ok {
			return 0, fmt.Errorf("%w: unknown carriageway %q", ErrInvalidArgument, s)
		}
		if c&flag != 0 {
			return 0, fmt.Errorf("%w: duplicated carriageway in %q", ErrInvalidArgument, s)
		}
		c |= flag
	}
	return c, nil
}

// MustParseCarriageway is like ParseCarriageway but panics on error.
func MustParseCarriageway(s string) Carriageway {
	c, err := ParseCarriageway(s)
	if err != nil {
		panic(err)
	}
	return c
}

func carriagewayFlag(letter byte) (Carriageway, bool) {
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	for _, cl := range carriagewayLetters {
		if cl.letter == letter {
			return cl.flag, true
		}
	}
	return 0, false
}

// IsValid reports whether c contains no bits other than L, R and S.
func (c Carriageway) IsValid() bool {
	return c&^CarriagewayLRS == 0
}

// Has reports whether all carriageways of other are in c.
func (c Carriageway) Has(other Carriageway) bool {
	return c&other == other
}

// Overlaps reports whether c and other have at least one carriageway in common.
func (c Carriageway) Overlaps(other Carriageway) bool {
	return c&other != 0
}

// Effective returns the carriageways the lookup service actually searches:
// values other than the seven known combinations mean all carriageways.
func (c Carriageway) Effective() Carriageway {
	if c == 0 || !c.IsValid() {
		return CarriagewayLRS
	}
	return c
}

// String returns letters in L, R, S order, e.g. "LR".
func (c Carriageway) String() string {
	if c == 0 {
		return "none"
	}
	if !c.IsValid() {
		return fmt.Sprintf("Carriageway(0b%08b)", uint8(c))
	}
	var sb strings.Builder
	for _, cl := range carriagewayLetters {
		if c&cl.flag != 0 {
			sb.WriteByte(cl.letter)
		}
	}
	return sb.String()
}

// UnmarshalText implements encoding.TextUnmarshaler, so carriageways may be read from configs and JSON.
func (c *Carriageway) UnmarshalText(text []byte) error {
	parsed, err := ParseCarriageway(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Carriageway) MarshalText() ([]byte, error) {
	if c == 0 || !c.IsValid() {
		return nil, fmt.Errorf("%w: carriageway %s cannot be represented as text", ErrInvalidArgument, c)
	}
	return []byte(c.String()), nil
}
