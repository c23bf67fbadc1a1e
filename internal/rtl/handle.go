package rtl

import (
	"context"

	"github.com/ardnew/softusb/host/hal"
)

// Handle is an already-open dongle owned by the caller. *host.Device from
// github.com/ardnew/softusb/host satisfies it. The core only borrows a
// Handle and never closes it.
type Handle interface {
	Manufacturer() string
	Product() string
	ControlTransfer(ctx context.Context, setup *hal.SetupPacket, data []byte) (int, error)
}

// BiasTeeSetter is implemented by handles that switch bias-tee power
// without register access, such as network handles. SetGPIO routes through
// it when present.
type BiasTeeSetter interface {
	SetBiasTee(ctx context.Context, line GpioLine, on bool) error
}

// TunerReporter is implemented by handles that already know the tuner type,
// such as an rtl_tcp connection. It is consulted only when the descriptor
// strings match nothing.
type TunerReporter interface {
	TunerType() Tuner
}
