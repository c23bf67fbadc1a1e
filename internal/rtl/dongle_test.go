package rtl

import (
	"bytes"
	"testing"

	"github.com/rjboer/GoRTL/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tunerXTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable([]Entry{{Manufacturer: "Realtek", Product: "TunerX", Rank: RankGeneric, Model: tunerX}})
	require.NoError(t, err)
	return table
}

func TestScenarioTunerXUsesChipsetClock(t *testing.T) {
	d := newTestDongle(t, NewMock("Realtek", "RTL2832U-TunerX"), WithTable(tunerXTable(t)))

	id := d.Identify()
	require.True(t, id.Known)
	assert.Equal(t, "TunerX", id.Model.Name)

	clk := d.Clock()
	assert.Equal(t, uint32(28_800_000), clk.Hz)
	assert.False(t, clk.Fallback)
	assert.Equal(t, uint32(28_800_000), d.TunerClock())
}

func TestScenarioEmptyDescriptorsFallBack(t *testing.T) {
	d := newTestDongle(t, NewMock("", ""), WithTable(tunerXTable(t)))

	assert.True(t, d.Identify().Unknown())
	clk := d.Clock()
	assert.Equal(t, DefaultXtalHz, clk.Hz)
	assert.True(t, clk.Fallback)
}

func TestClockPerChipset(t *testing.T) {
	cases := []struct {
		manufacturer, product string
		hz                    uint32
	}{
		{"RTLSDRBlog", "Blog V4", DefaultXtalHz},
		{"Realtek", "RTL2832U R828D", R828DXtalHz},
		{"Realtek", "RTL2832U FC2580", FC2580XtalHz},
		{"Realtek", "RTL2832U E4000", DefaultXtalHz},
	}
	for _, c := range cases {
		d := newTestDongle(t, NewMock(c.manufacturer, c.product))
		clk := d.Clock()
		assert.Equal(t, c.hz, clk.Hz, c.product)
		assert.False(t, clk.Fallback, c.product)
	}
}

func TestResolveClockIsPure(t *testing.T) {
	assert.Equal(t, Clock{Hz: DefaultXtalHz, Fallback: true}, ResolveClock(Identity{}))
	assert.Equal(t, Clock{Hz: 16_000_000}, ResolveClock(Identity{Known: true, Model: Model{XtalHz: 16_000_000}}))
}

func TestTunerXtalOverride(t *testing.T) {
	d := newTestDongle(t, NewMock("", ""), WithTunerXtal(28_801_000))
	clk := d.Clock()
	assert.Equal(t, uint32(28_801_000), clk.Hz)
	assert.True(t, clk.Override)
	assert.False(t, clk.Fallback)

	_, err := New(NewMock("", ""), WithTunerXtal(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIdentityCachedUntilRedetect(t *testing.T) {
	mock := NewMock("Realtek", "RTL2832U R820T")
	d := newTestDongle(t, mock)

	first := d.Identify()
	require.Equal(t, "R820T", first.Model.Name)

	mock.SetDescriptors("Realtek", "RTL2832U R828D")
	assert.Equal(t, first, d.Identify())
	assert.Equal(t, DefaultXtalHz, d.TunerClock())

	again := d.Redetect()
	assert.Equal(t, "R828D", again.Model.Name)
	assert.Equal(t, R828DXtalHz, d.TunerClock())
}

func TestTunerReporterFallback(t *testing.T) {
	mock := NewMock("", "")
	mock.SetTuner(TunerFC0013)
	d := newTestDongle(t, mock)

	id := d.Identify()
	require.True(t, id.Known)
	assert.Equal(t, SourceTuner, id.Source)
	assert.Equal(t, TunerFC0013, id.Model.Tuner)
}

func TestAmbiguityIsLoggedAndNotOverridden(t *testing.T) {
	var buf bytes.Buffer
	mock := NewMock("Realtek", "R820T/E4000 combo")
	mock.SetTuner(TunerR820T)
	d := newTestDongle(t, mock, WithLogger(logging.New(logging.Debug, logging.Text, &buf)))

	id := d.Identify()
	assert.True(t, id.Ambiguous)
	assert.False(t, id.Known)
	assert.True(t, d.Clock().Fallback)
	assert.Contains(t, buf.String(), "ambiguous dongle descriptors")
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(NewMock("", ""), WithMaxTransfer(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(NewMock("", ""), WithTable(nil))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	d := newTestDongle(t, NewMock("", ""), WithMaxTransfer(254))
	assert.Equal(t, 254, d.MaxTransfer())
}

func TestIdentityCopiesDoNotAliasCache(t *testing.T) {
	d := newTestDongle(t, NewMock("Realtek", "RTL2832U R820T FC0012"))

	id := d.Identify()
	require.True(t, id.Ambiguous)
	require.NotEmpty(t, id.Candidates)
	name := id.Candidates[0].Name

	id.Candidates[0] = Model{Name: "changed"}
	assert.Equal(t, name, d.Identify().Candidates[0].Name)
}
