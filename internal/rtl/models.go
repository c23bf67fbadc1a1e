package rtl

// Tuner identifies the tuner IC behind the RTL2832U demodulator. The values
// match the numbering used by librtlsdr and the rtl_tcp dongle info header.
type Tuner uint32

const (
	TunerUnknown Tuner = iota
	TunerE4000
	TunerFC0012
	TunerFC0013
	TunerFC2580
	TunerR820T
	TunerR828D
)

func (t Tuner) String() string {
	switch t {
	case TunerE4000:
		return "E4000"
	case TunerFC0012:
		return "FC0012"
	case TunerFC0013:
		return "FC0013"
	case TunerFC2580:
		return "FC2580"
	case TunerR820T:
		return "R820T"
	case TunerR828D:
		return "R828D"
	default:
		return "unknown"
	}
}

// Crystal frequencies in Hz.
const (
	DefaultXtalHz uint32 = 28_800_000
	R828DXtalHz   uint32 = 16_000_000
	FC2580XtalHz  uint32 = 16_384_000
)

// Tuner I2C addresses in 8-bit wire form.
const (
	AddrE4000  BusAddress = 0xc8
	AddrFC001x BusAddress = 0xc6
	AddrFC2580 BusAddress = 0xac
	AddrR820T  BusAddress = 0x34
	AddrR828D  BusAddress = 0x74
)

// Model is a resolved dongle/tuner combination and the hardware constants
// that go with it.
type Model struct {
	Name        string
	Tuner       Tuner
	TunerAddr   BusAddress
	XtalHz      uint32
	BiasTeeLine GpioLine
}

// UnknownModel is reported when nothing in the table matched.
var UnknownModel = Model{Name: "unknown", Tuner: TunerUnknown, XtalHz: DefaultXtalHz}

var genericModels = map[Tuner]Model{
	TunerE4000:  {Name: "E4000", Tuner: TunerE4000, TunerAddr: AddrE4000, XtalHz: DefaultXtalHz},
	TunerFC0012: {Name: "FC0012", Tuner: TunerFC0012, TunerAddr: AddrFC001x, XtalHz: DefaultXtalHz},
	TunerFC0013: {Name: "FC0013", Tuner: TunerFC0013, TunerAddr: AddrFC001x, XtalHz: DefaultXtalHz},
	TunerFC2580: {Name: "FC2580", Tuner: TunerFC2580, TunerAddr: AddrFC2580, XtalHz: FC2580XtalHz},
	TunerR820T:  {Name: "R820T", Tuner: TunerR820T, TunerAddr: AddrR820T, XtalHz: DefaultXtalHz},
	TunerR828D:  {Name: "R828D", Tuner: TunerR828D, TunerAddr: AddrR828D, XtalHz: R828DXtalHz},
}

// GenericModel returns the plain model for a tuner with no vendor board
// around it. ok is false for TunerUnknown and out-of-range values.
func GenericModel(t Tuner) (Model, bool) {
	m, ok := genericModels[t]
	return m, ok
}

var (
	blogV4  = Model{Name: "RTL-SDR Blog V4", Tuner: TunerR828D, TunerAddr: AddrR828D, XtalHz: DefaultXtalHz}
	blogV3  = Model{Name: "RTL-SDR Blog V3", Tuner: TunerR820T, TunerAddr: AddrR820T, XtalHz: DefaultXtalHz}
	smartee = Model{Name: "NooElec NESDR SMArTee", Tuner: TunerR820T, TunerAddr: AddrR820T, XtalHz: DefaultXtalHz}
)

// Ranks used by the built-in table. Board-specific strings beat vendor
// strings, which beat bare tuner names.
const (
	RankBoard   = 30
	RankVendor  = 20
	RankGeneric = 10
)

func defaultEntries() []Entry {
	entries := []Entry{
		// The V4 carries an R828D but runs it from the 28.8 MHz crystal.
		{Manufacturer: "RTLSDRBlog", Product: "Blog V4", Rank: RankBoard, Model: blogV4},
		{Manufacturer: "RTLSDRBlog", Product: "Blog V3", Rank: RankBoard, Model: blogV3},
		{Manufacturer: "NooElec", Product: "SMArTee", Rank: RankVendor, Model: smartee},
	}
	for _, t := range []Tuner{TunerR828D, TunerR820T, TunerE4000, TunerFC0012, TunerFC0013, TunerFC2580} {
		m := genericModels[t]
		entries = append(entries, Entry{Manufacturer: "Realtek", Product: m.Name, Rank: RankGeneric, Model: m})
	}
	return entries
}
