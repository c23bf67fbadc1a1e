package rtl

import (
	"context"
	"errors"

	"github.com/ardnew/softusb/host/hal"
)

// Block selects a register bank of the RTL2832U.
type Block uint8

const (
	BlockDemod Block = iota
	BlockUSB
	BlockSys
	BlockTuner
	BlockROM
	BlockIR
	BlockI2C
)

// SYS block GPIO registers.
const (
	RegGPO  uint16 = 0x3001 // output value
	RegGPI  uint16 = 0x3002 // input value
	RegGPOE uint16 = 0x3003 // output enable
	RegGPD  uint16 = 0x3004 // direction, 1 = input
)

const (
	requestTypeOut uint8 = 0x40 // vendor, host to device
	requestTypeIn  uint8 = 0xc0 // vendor, device to host
)

const blockWriteFlag = 0x10

func writeSetup(block Block, addr uint16, n int) hal.SetupPacket {
	return hal.SetupPacket{
		RequestType: requestTypeOut,
		Value:       addr,
		Index:       uint16(block)<<8 | blockWriteFlag,
		Length:      uint16(n),
	}
}

func readSetup(block Block, addr uint16, n int) hal.SetupPacket {
	return hal.SetupPacket{
		RequestType: requestTypeIn,
		Value:       addr,
		Index:       uint16(block) << 8,
		Length:      uint16(n),
	}
}

// writeArray performs one vendor OUT transfer. A short transfer is reported
// as a BusError carrying the count actually moved.
func writeArray(ctx context.Context, h Handle, op string, block Block, addr uint16, buf []byte) (int, error) {
	setup := writeSetup(block, addr, len(buf))
	n, err := h.ControlTransfer(ctx, &setup, buf)
	if err != nil {
		return n, transferError(op, addr, n, err)
	}
	if n != len(buf) {
		return n, &BusError{Op: op, Addr: addr, N: n}
	}
	return n, nil
}

// readArray fills buf with one vendor IN transfer. buf is only valid when
// the error is nil.
func readArray(ctx context.Context, h Handle, op string, block Block, addr uint16, buf []byte) error {
	setup := readSetup(block, addr, len(buf))
	n, err := h.ControlTransfer(ctx, &setup, buf)
	if err != nil {
		return transferError(op, addr, n, err)
	}
	if n != len(buf) {
		return &BusError{Op: op, Addr: addr, N: n}
	}
	return nil
}

// transferError classifies a transport failure. Handles without control
// transfers report ErrUnsupported, which is not a bus fault.
func transferError(op string, addr uint16, n int, err error) error {
	if errors.Is(err, ErrUnsupported) {
		return err
	}
	return &BusError{Op: op, Addr: addr, N: n, Err: err}
}

// readReg reads a 1 or 2 byte big-endian register.
func readReg(ctx context.Context, h Handle, block Block, addr uint16, width int) (uint16, error) {
	var data [2]byte
	if err := readArray(ctx, h, "reg read", block, addr, data[:width]); err != nil {
		return 0, err
	}
	if width == 1 {
		return uint16(data[0]), nil
	}
	return uint16(data[0])<<8 | uint16(data[1]), nil
}

// writeReg writes a 1 or 2 byte big-endian register.
func writeReg(ctx context.Context, h Handle, block Block, addr uint16, val uint16, width int) error {
	var data [2]byte
	if width == 1 {
		data[0] = byte(val)
	} else {
		data[0] = byte(val >> 8)
		data[1] = byte(val)
	}
	_, err := writeArray(ctx, h, "reg write", block, addr, data[:width])
	return err
}
