package usbdev

import (
	"context"
	"fmt"
)

// candidate is the part of *host.Device the selector looks at.
type candidate interface {
	VendorID() uint16
	ProductID() uint16
	Address() uint8
}

// selector counts known dongles once each by bus address until it reaches
// the requested index. A softusb host lists an enumerated device and also
// announces it on its connect channel, so the same dongle can arrive twice.
type selector struct {
	index int
	seen  map[uint8]bool
}

func newSelector(index int) *selector {
	return &selector{index: index, seen: make(map[uint8]bool)}
}

func (s *selector) pick(dev candidate) (KnownDevice, bool) {
	k, ok := Lookup(dev.VendorID(), dev.ProductID())
	if !ok || s.seen[dev.Address()] {
		return KnownDevice{}, false
	}
	if len(s.seen) == s.index {
		return k, true
	}
	s.seen[dev.Address()] = true
	return KnownDevice{}, false
}

// choose scans the devices already enumerated and then waits for new ones
// until the index-th known dongle shows up.
func choose[D candidate](ctx context.Context, index int, listed []D, wait func(context.Context) (D, error)) (D, KnownDevice, error) {
	s := newSelector(index)
	for _, dev := range listed {
		if k, ok := s.pick(dev); ok {
			return dev, k, nil
		}
	}
	for {
		dev, err := wait(ctx)
		if err != nil {
			var zero D
			return zero, KnownDevice{}, fmt.Errorf("wait for dongle %d: %w: %v", index, ErrNotFound, err)
		}
		if k, ok := s.pick(dev); ok {
			return dev, k, nil
		}
	}
}
