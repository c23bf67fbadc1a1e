package rtl

import (
	"slices"

	"github.com/rjboer/GoRTL/internal/logging"
)

// DefaultMaxTransfer caps a single I2C transaction.
const DefaultMaxTransfer = 64

// Dongle wraps a borrowed Handle and caches its Identity. A Dongle performs
// no locking: callers must serialize operations on the same handle, because
// a register write followed by a read must not interleave with another
// transaction.
type Dongle struct {
	h           Handle
	table       *Table
	log         logging.Logger
	maxTransfer int
	tunerXtal   uint32

	ident *Identity
	clock Clock
}

// Option configures a Dongle.
type Option func(*Dongle) error

// WithTable replaces the built-in identification table.
func WithTable(t *Table) Option {
	return func(d *Dongle) error {
		if t == nil {
			return invalidf("nil identification table")
		}
		d.table = t
		return nil
	}
}

// WithLogger sets the logger used for identification and bus diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(d *Dongle) error {
		if l != nil {
			d.log = l
		}
		return nil
	}
}

// WithMaxTransfer sets the largest I2C payload accepted in one transaction.
func WithMaxTransfer(n int) Option {
	return func(d *Dongle) error {
		if n < 1 || n > 0xffff {
			return invalidf("max transfer %d out of range 1..65535", n)
		}
		d.maxTransfer = n
		return nil
	}
}

// WithTunerXtal overrides the tuner reference clock the host was
// configured with, the way rtlsdr_set_xtal_freq does.
func WithTunerXtal(hz uint32) Option {
	return func(d *Dongle) error {
		if hz == 0 {
			return invalidf("tuner crystal frequency must be non-zero")
		}
		d.tunerXtal = hz
		return nil
	}
}

// New wraps h. Identification is deferred until first use.
func New(h Handle, opts ...Option) (*Dongle, error) {
	if h == nil {
		return nil, invalidf("nil device handle")
	}
	d := &Dongle{
		h:           h,
		table:       defaultTable,
		log:         logging.Default(),
		maxTransfer: DefaultMaxTransfer,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

var defaultTable = DefaultTable()

// Handle returns the borrowed handle.
func (d *Dongle) Handle() Handle { return d.h }

// MaxTransfer returns the I2C payload limit in bytes.
func (d *Dongle) MaxTransfer() int { return d.maxTransfer }

// Identify returns a copy of the cached identity, resolving it on first call.
func (d *Dongle) Identify() Identity {
	if d.ident == nil {
		d.resolve()
	}
	id := *d.ident
	id.Candidates = slices.Clone(id.Candidates)
	return id
}

// Redetect drops the cached identity and resolves it again from the
// handle's current descriptor strings.
func (d *Dongle) Redetect() Identity {
	d.ident = nil
	return d.Identify()
}

func (d *Dongle) resolve() {
	manufacturer, product := d.h.Manufacturer(), d.h.Product()
	id := d.table.Identify(manufacturer, product)

	if id.Ambiguous {
		names := make([]string, 0, len(id.Candidates))
		for _, c := range id.Candidates {
			names = append(names, c.Name)
		}
		d.log.Warn("ambiguous dongle descriptors",
			logging.Field{Key: "manufacturer", Value: manufacturer},
			logging.Field{Key: "product", Value: product},
			logging.Field{Key: "candidates", Value: names},
		)
	} else if !id.Known {
		if tr, ok := d.h.(TunerReporter); ok {
			if m, ok := GenericModel(tr.TunerType()); ok {
				id = Identity{Model: m, Known: true, Source: SourceTuner}
			}
		}
	}

	d.ident = &id
	d.clock = d.resolveClock(id)

	d.log.Info("dongle identified",
		logging.Field{Key: "model", Value: id.Model.Name},
		logging.Field{Key: "tuner", Value: id.Model.Tuner.String()},
		logging.Field{Key: "source", Value: id.Source.String()},
		logging.Field{Key: "xtal_hz", Value: d.clock.Hz},
	)
}
