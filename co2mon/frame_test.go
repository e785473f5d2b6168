package co2mon

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		frame     Frame
		expect    Reading
		expectErr error
	}{
		{"tamb", Frame{0x42, 0x12, 0x34, 0x88, 0x0d}, Reading{Code: 0x42, Raw: 0x1234}, nil},
		{"cntr", Frame{0x50, 0x01, 0x9f, 0xf0, 0x0d}, Reading{Code: 0x50, Raw: 415}, nil},
		{"unknown-code", Frame{0x6d, 0x0e, 0x68, 0xe3, 0x0d}, Reading{Code: 0x6d, Raw: 0x0e68}, nil},
		{"bad-terminator", Frame{0x42, 0x12, 0x34, 0x88, 0x0e}, Reading{}, ErrBadTerminator},
		{"bad-terminator-valid-checksum", Frame{0x50, 0x01, 0x9f, 0xf0, 0x00}, Reading{}, ErrBadTerminator},
		{"checksum", Frame{0x42, 0x12, 0x34, 0x89, 0x0d}, Reading{}, ErrChecksum},
		{"checksum-zero", Frame{0x42, 0x12, 0x34, 0x00, 0x0d}, Reading{}, ErrChecksum},
		// CO2 gate: 3001=0x0bb9 rejected, 3000=0x0bb8 passes
		{"co2-spurious", Frame{0x50, 0x0b, 0xb9, 0x14, 0x0d}, Reading{}, ErrOutOfRange},
		{"co2-max", Frame{0x50, 0x0b, 0xb8, 0x13, 0x0d}, Reading{Code: 0x50, Raw: 3000}, nil},
		// range gate applies to the CO2 code only
		{"tamb-high", Frame{0x42, 0x53, 0x14, 0xa9, 0x0d}, Reading{Code: 0x42, Raw: 0x5314}, nil},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			r, err := Decode(c.frame)
			if c.expectErr != nil {
				require.Error(t, err)
				assert.Equal(t, c.expectErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expect, r)
		})
	}
}

func TestDecodeTerminatorFirst(t *testing.T) {
	t.Parallel()

	// terminator is checked before the checksum
	f := Frame{0xff, 0xff, 0xff, 0x00, 0x00}
	_, err := Decode(f)
	assert.Equal(t, ErrBadTerminator, errors.Cause(err))
}
