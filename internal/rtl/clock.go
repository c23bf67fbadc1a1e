package rtl

// Clock is the tuner reference clock resolved for an Identity.
type Clock struct {
	Hz uint32
	// Fallback is set when the identity was unknown and Hz is DefaultXtalHz.
	// It tells a default-valued chip apart from a failed match.
	Fallback bool
	// Override is set when the host configured the crystal explicitly.
	Override bool
}

// ResolveClock looks up the fixed reference clock of the identified
// chipset. It performs no I/O.
func ResolveClock(id Identity) Clock {
	if !id.Known || id.Model.XtalHz == 0 {
		return Clock{Hz: DefaultXtalHz, Fallback: true}
	}
	return Clock{Hz: id.Model.XtalHz}
}

func (d *Dongle) resolveClock(id Identity) Clock {
	if d.tunerXtal != 0 {
		return Clock{Hz: d.tunerXtal, Override: true}
	}
	return ResolveClock(id)
}

// Clock returns the tuner clock for the cached identity. It is recomputed
// only when the identity is resolved again.
func (d *Dongle) Clock() Clock {
	d.Identify()
	return d.clock
}

// TunerClock returns the tuner reference clock in Hz.
func (d *Dongle) TunerClock() uint32 {
	return d.Clock().Hz
}
