package rtl

import (
	"context"
	"fmt"

	"github.com/rjboer/GoRTL/internal/logging"
)

// BusAddress is an I2C target in the 8-bit wire form: the 7-bit address
// shifted left with the R/W bit clear. The demodulator sets the R/W bit.
type BusAddress uint8

// Addr7 converts a 7-bit address to wire form.
func Addr7(a uint8) BusAddress { return BusAddress(a << 1) }

func (a BusAddress) String() string { return fmt.Sprintf("0x%02x", uint8(a)) }

// Valid reports whether the R/W bit is clear.
func (a BusAddress) Valid() bool { return a&1 == 0 }

func (d *Dongle) checkTransfer(addr BusAddress, n int) error {
	if !addr.Valid() {
		return invalidf("i2c address %s has the R/W bit set", addr)
	}
	if n == 0 {
		return invalidf("zero-length i2c transfer")
	}
	if n > d.maxTransfer {
		return invalidf("i2c transfer of %d bytes exceeds limit %d", n, d.maxTransfer)
	}
	return nil
}

// WriteI2C writes buf to the chip at addr in a single transaction and
// returns the number of bytes transferred. No retry is attempted; a failed
// write must not be assumed to have partially applied.
func (d *Dongle) WriteI2C(ctx context.Context, addr BusAddress, buf []byte) (int, error) {
	if err := d.checkTransfer(addr, len(buf)); err != nil {
		return 0, err
	}
	n, err := writeArray(ctx, d.h, "i2c write", BlockI2C, uint16(addr), buf)
	if err != nil {
		d.log.Debug("i2c write failed",
			logging.Field{Key: "addr", Value: addr.String()},
			logging.Hex("data", buf),
			logging.Field{Key: "error", Value: err},
		)
		return n, err
	}
	return n, nil
}

// ReadI2C reads exactly n bytes from the chip at addr. A short read is an
// error and no data is returned with it.
func (d *Dongle) ReadI2C(ctx context.Context, addr BusAddress, n int) ([]byte, error) {
	if n < 0 {
		return nil, invalidf("negative i2c read length %d", n)
	}
	buf := make([]byte, n)
	if err := d.ReadI2CInto(ctx, addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadI2CInto fills buf from the chip at addr. buf holds valid data only
// when the returned error is nil.
func (d *Dongle) ReadI2CInto(ctx context.Context, addr BusAddress, buf []byte) error {
	if err := d.checkTransfer(addr, len(buf)); err != nil {
		return err
	}
	if err := readArray(ctx, d.h, "i2c read", BlockI2C, uint16(addr), buf); err != nil {
		d.log.Debug("i2c read failed",
			logging.Field{Key: "addr", Value: addr.String()},
			logging.Field{Key: "len", Value: len(buf)},
			logging.Field{Key: "error", Value: err},
		)
		return err
	}
	return nil
}

// WriteTunerReg writes val to register reg of the identified tuner, the
// common register-pointer-then-data framing used by all supported tuners.
func (d *Dongle) WriteTunerReg(ctx context.Context, reg uint8, val ...byte) error {
	m := d.Identify().Model
	if m.TunerAddr == 0 {
		return fmt.Errorf("write tuner register 0x%02x: no tuner identified: %w", reg, ErrUnsupported)
	}
	buf := append([]byte{reg}, val...)
	_, err := d.WriteI2C(ctx, m.TunerAddr, buf)
	return err
}

// ReadTunerReg sets the register pointer of the identified tuner to reg
// and reads n bytes from it.
func (d *Dongle) ReadTunerReg(ctx context.Context, reg uint8, n int) ([]byte, error) {
	m := d.Identify().Model
	if m.TunerAddr == 0 {
		return nil, fmt.Errorf("read tuner register 0x%02x: no tuner identified: %w", reg, ErrUnsupported)
	}
	if _, err := d.WriteI2C(ctx, m.TunerAddr, []byte{reg}); err != nil {
		return nil, err
	}
	return d.ReadI2C(ctx, m.TunerAddr, n)
}
