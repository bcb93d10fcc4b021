package globals

import (
	"errors"
	"testing"
)

func TestByteForMatchesDataSheet(t *testing.T) {
	want := map[Operation][NUM_COLUMNS]byte{
		OP_SET_HIGH:   {0x60, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38},
		OP_SET_LOW:    {0x5C, 0x51, 0x57, 0x45, 0x52, 0x54, 0x59, 0x55, 0x49},
		OP_DIGITAL_IN: {0x4C, 0x41, 0x53, 0x44, 0x46, 0x47, 0x48, 0x4A, 0x4B},
		OP_VOLTS:      {0x3B, 0x5A, 0x58, 0x43, 0x56, 0x42, 0x4E, 0x4D, 0x2C},
		OP_TEMP:       {0x27, 0x39, 0x30, 0x2D, 0x3D, 0x4F, 0x50, 0x5B, 0x5D},
	}

	for op, row := range want {
		t.Run(op.String(), func(t *testing.T) {
			for ch, b := range row {
				got, err := ByteFor(op, ch)
				if err != nil {
					t.Fatalf("ByteFor(%s, %d) err=%v", op, ch, err)
				}
				if got != b {
					t.Errorf("ByteFor(%s, %d) got 0x%02X want 0x%02X", op, ch, got, b)
				}
			}
		})
	}
}

func TestByteForDeviceLevelColumn(t *testing.T) {
	cases := []struct {
		op   Operation
		want byte
	}{
		{OP_SET_HIGH, CMD_RETURN_ASCII},
		{OP_SET_LOW, CMD_RETURN_BINARY},
		{OP_DIGITAL_IN, CMD_DEG_F},
		{OP_VOLTS, CMD_DEG_C},
		{OP_TEMP, CMD_PING},
	}

	for _, c := range cases {
		got, _ := ByteFor(c.op, 0)
		if got != c.want {
			t.Errorf("%s column 0 got 0x%02X want 0x%02X", c.op, got, c.want)
		}
	}
}

func TestByteForRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name    string
		op      Operation
		channel int
	}{
		{"negative channel", OP_VOLTS, -1},
		{"channel 9", OP_VOLTS, 9},
		{"negative operation", Operation(-1), 1},
		{"unknown operation", NUM_OPERATIONS, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := ByteFor(c.op, c.channel); !errors.Is(err, ErrUnknownCommand) {
				t.Errorf("got err=%v want ErrUnknownCommand", err)
			}
		})
	}
}

func TestTableIsACopy(t *testing.T) {
	table := Table()
	table[OP_VOLTS][3] = 0x00

	got, _ := ByteFor(OP_VOLTS, 3)
	if got != 0x43 {
		t.Errorf("command table was mutated through a copy: got 0x%02X", got)
	}
}

func TestValidChannel(t *testing.T) {
	for ch := -1; ch <= 10; ch++ {
		want := ch >= 1 && ch <= 8
		if got := ValidChannel(ch); got != want {
			t.Errorf("ValidChannel(%d) got %v want %v", ch, got, want)
		}
	}
}
