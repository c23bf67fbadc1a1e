//go:build !linux

package usbdev

import (
	"context"
	"errors"

	"github.com/ardnew/softusb/host"

	"github.com/rjboer/GoRTL/internal/logging"
	"github.com/rjboer/GoRTL/internal/rtl"
)

// Session is only available on Linux, where softusb has a usbfs HAL.
type Session struct{}

// Open reports rtl.ErrUnsupported on hosts without a softusb HAL.
func Open(context.Context, int, logging.Logger) (*Session, error) {
	return nil, errors.Join(ErrNotFound, rtl.ErrUnsupported)
}

func (s *Session) Device() *host.Device { return nil }

func (s *Session) Known() KnownDevice { return KnownDevice{} }

func (s *Session) Close() error { return nil }
