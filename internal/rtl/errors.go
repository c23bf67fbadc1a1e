package rtl

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a caller bug: bad length, bad address or
	// out-of-range GPIO line. It is never worth retrying.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBus reports a failed bus transaction (NAK, stall, timeout,
	// disconnect, short transfer). Callers may retry under their own policy.
	ErrBus = errors.New("bus error")

	// ErrUnsupported reports a capability that this build or handle lacks.
	ErrUnsupported = errors.New("unsupported")
)

// BusError describes a failed transaction on the dongle's register or I2C bus.
type BusError struct {
	Op   string // "i2c write", "reg read", ...
	Addr uint16 // I2C address or register address
	N    int    // bytes moved before the failure
	Err  error  // transport cause, may be nil for short transfers
}

func (e *BusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s 0x%02x: short transfer (%d bytes)", e.Op, e.Addr, e.N)
	}
	return fmt.Sprintf("%s 0x%02x: %v", e.Op, e.Addr, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrBus) match every BusError.
func (e *BusError) Is(target error) bool { return target == ErrBus }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}
