package globals

import "errors"

const DEVICE_NAME = "DLP-IO8-G"
const BAUD_RATE = 115200

// device-level command sequences (column 0 of the command table)
const (
	CMD_RETURN_ASCII  = 0x60
	CMD_RETURN_BINARY = 0x5C
	CMD_DEG_F         = 0x4C
	CMD_DEG_C         = 0x3B
	CMD_PING          = 0x27
)

// the device answers a ping with this byte
const PING_RESPONSE = 0x51

const (
	MIN_CHANNEL = 1
	MAX_CHANNEL = 8
	NUM_COLUMNS = MAX_CHANNEL + 1
)

// analog conversion: 10 bit count over a 0-5V range
const (
	VOLTS_FULL_SCALE = 5.0
	ADC_MAX_COUNT    = 1023.0
)

type Operation int

const (
	OP_SET_HIGH Operation = iota
	OP_SET_LOW
	OP_DIGITAL_IN
	OP_VOLTS
	OP_TEMP
	NUM_OPERATIONS
)

var ErrUnknownCommand = errors.New("no command byte for operation and channel")

func (op Operation) String() string {
	switch op {
	case OP_SET_HIGH:
		return "SetHigh"
	case OP_SET_LOW:
		return "SetLow"
	case OP_DIGITAL_IN:
		return "DigitalIn"
	case OP_VOLTS:
		return "Volts"
	case OP_TEMP:
		return "Temp"
	}
	return "Unknown"
}

type CommandTable [NUM_OPERATIONS][NUM_COLUMNS]byte

// Commands from the DLP-IO8-G data sheet, rows are operations and columns are channels.
// Column 0 carries the device-level setup and ping commands.
var commandTable = CommandTable{
	OP_SET_HIGH:   {CMD_RETURN_ASCII, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38},
	OP_SET_LOW:    {CMD_RETURN_BINARY, 0x51, 0x57, 0x45, 0x52, 0x54, 0x59, 0x55, 0x49},
	OP_DIGITAL_IN: {CMD_DEG_F, 0x41, 0x53, 0x44, 0x46, 0x47, 0x48, 0x4A, 0x4B},
	OP_VOLTS:      {CMD_DEG_C, 0x5A, 0x58, 0x43, 0x56, 0x42, 0x4E, 0x4D, 0x2C},
	OP_TEMP:       {CMD_PING, 0x39, 0x30, 0x2D, 0x3D, 0x4F, 0x50, 0x5B, 0x5D},
}

// Table returns a copy of the command table.
func Table() CommandTable {
	return commandTable
}

// ByteFor looks up the command byte for an operation on a channel (0 = device level).
func ByteFor(op Operation, channel int) (byte, error) {
	if op < 0 || op >= NUM_OPERATIONS || channel < 0 || channel >= NUM_COLUMNS {
		return 0, ErrUnknownCommand
	}
	return commandTable[op][channel], nil
}

func ValidChannel(channel int) bool {
	return channel >= MIN_CHANNEL && channel <= MAX_CHANNEL
}
