package rtl

import (
	"context"
	"fmt"

	"github.com/rjboer/GoRTL/internal/logging"
)

// GpioLine is a GPIO pin of the RTL2832U.
type GpioLine uint8

// MaxGpioLine is the highest pin in the 8-bit GPIO bank.
const MaxGpioLine GpioLine = 7

// Valid reports whether the line exists on the device.
func (l GpioLine) Valid() bool { return l <= MaxGpioLine }

func (l GpioLine) mask() uint16 { return 1 << l }

// GPIOSupported reports whether this build carries GPIO control. When it
// returns false every SetGPIO call fails with ErrUnsupported.
func (d *Dongle) GPIOSupported() bool {
	return gpioBuild
}

// SetGPIO drives line as an output at the given level. The line is
// validated before any transaction is issued.
func (d *Dongle) SetGPIO(ctx context.Context, line GpioLine, on bool) error {
	if !d.GPIOSupported() {
		return fmt.Errorf("set gpio %d: %w", line, ErrUnsupported)
	}
	if !line.Valid() {
		return invalidf("gpio line %d out of range 0..%d", line, MaxGpioLine)
	}

	if bt, ok := d.h.(BiasTeeSetter); ok {
		return bt.SetBiasTee(ctx, line, on)
	}

	if err := d.setGPIOOutput(ctx, line); err != nil {
		return d.gpioFailed(line, err)
	}
	if err := d.setGPIOBit(ctx, line, on); err != nil {
		return d.gpioFailed(line, err)
	}
	return nil
}

// SetBiasTee powers the bias-tee of the identified board on or off.
func (d *Dongle) SetBiasTee(ctx context.Context, on bool) error {
	return d.SetGPIO(ctx, d.Identify().Model.BiasTeeLine, on)
}

// setGPIOOutput switches the pin direction to output and enables its driver.
func (d *Dongle) setGPIOOutput(ctx context.Context, line GpioLine) error {
	r, err := readReg(ctx, d.h, BlockSys, RegGPD, 1)
	if err != nil {
		return err
	}
	if err := writeReg(ctx, d.h, BlockSys, RegGPD, r&^line.mask(), 1); err != nil {
		return err
	}
	r, err = readReg(ctx, d.h, BlockSys, RegGPOE, 1)
	if err != nil {
		return err
	}
	return writeReg(ctx, d.h, BlockSys, RegGPOE, r|line.mask(), 1)
}

func (d *Dongle) setGPIOBit(ctx context.Context, line GpioLine, on bool) error {
	r, err := readReg(ctx, d.h, BlockSys, RegGPO, 1)
	if err != nil {
		return err
	}
	if on {
		r |= line.mask()
	} else {
		r &^= line.mask()
	}
	return writeReg(ctx, d.h, BlockSys, RegGPO, r, 1)
}

func (d *Dongle) gpioFailed(line GpioLine, err error) error {
	d.log.Debug("gpio update failed",
		logging.Field{Key: "line", Value: int(line)},
		logging.Field{Key: "error", Value: err},
	)
	return fmt.Errorf("set gpio %d: %w", line, err)
}
