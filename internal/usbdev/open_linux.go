//go:build linux

package usbdev

import (
	"context"
	"fmt"

	"github.com/ardnew/softusb/host"
	"github.com/ardnew/softusb/host/hal"
	"github.com/ardnew/softusb/host/hal/linux"

	"github.com/rjboer/GoRTL/internal/logging"
	"github.com/rjboer/GoRTL/internal/rtl"
)

var _ rtl.Handle = (*host.Device)(nil)

// Session owns a running softusb host and the dongle picked from it. The
// dongle's *host.Device is the rtl.Handle handed to the core.
type Session struct {
	host   *host.Host
	dev    *host.Device
	known  KnownDevice
	logger logging.Logger
}

// Open starts a host on the Linux usbfs HAL and returns the index-th known
// RTL2832U that enumerates before ctx expires.
func Open(ctx context.Context, index int, logger logging.Logger) (*Session, error) {
	return open(ctx, linux.NewHostHAL(), index, logger)
}

func open(ctx context.Context, hh hal.HostHAL, index int, logger logging.Logger) (*Session, error) {
	if index < 0 {
		return nil, fmt.Errorf("device index %d must not be negative", index)
	}
	if logger == nil {
		logger = logging.Default()
	}

	h := host.New(hh)
	if err := h.Start(ctx); err != nil {
		return nil, fmt.Errorf("start usb host: %w", err)
	}

	dev, k, err := choose(ctx, index, h.Devices(), h.WaitDevice)
	if err != nil {
		_ = h.Stop()
		return nil, err
	}
	return newSession(h, dev, k, logger), nil
}

func newSession(h *host.Host, dev *host.Device, k KnownDevice, logger logging.Logger) *Session {
	logger.Info("usb dongle opened",
		logging.Field{Key: "device", Value: k.String()},
		logging.Field{Key: "address", Value: dev.Address()},
		logging.Field{Key: "manufacturer", Value: dev.Manufacturer()},
		logging.Field{Key: "product", Value: dev.Product()},
	)
	return &Session{host: h, dev: dev, known: k, logger: logger}
}

// Device returns the opened dongle.
func (s *Session) Device() *host.Device { return s.dev }

// Known returns the table entry that matched the dongle's VID/PID.
func (s *Session) Known() KnownDevice { return s.known }

// Close stops the host. The device is unusable afterwards.
func (s *Session) Close() error {
	s.logger.Info("usb dongle closed", logging.Field{Key: "device", Value: s.known.String()})
	return s.host.Stop()
}
