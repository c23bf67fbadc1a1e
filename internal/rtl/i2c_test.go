package rtl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ardnew/softusb/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDongle(t *testing.T, h Handle, opts ...Option) *Dongle {
	t.Helper()
	d, err := New(h, opts...)
	require.NoError(t, err)
	return d
}

func TestI2CRoundTripOnEchoMock(t *testing.T) {
	mock := NewMock("Realtek", "RTL2832U R820T")
	d := newTestDongle(t, mock)
	ctx := context.Background()

	for _, addr := range []BusAddress{0x00, AddrR820T, AddrE4000, 0xfe} {
		for _, n := range []int{1, 2, 7, d.MaxTransfer()} {
			payload := bytes.Repeat([]byte{byte(addr) ^ byte(n)}, n)
			payload[0] = byte(n)

			written, err := d.WriteI2C(ctx, addr, payload)
			require.NoError(t, err)
			require.Equal(t, n, written)

			got, err := d.ReadI2C(ctx, addr, n)
			require.NoError(t, err)
			assert.Equal(t, payload, got, "addr %s len %d", addr, n)
		}
	}
}

func TestI2CWireFormat(t *testing.T) {
	mock := NewMock("", "")
	d := newTestDongle(t, mock)
	ctx := context.Background()

	_, err := d.WriteI2C(ctx, AddrR820T, []byte{0x05, 0x80})
	require.NoError(t, err)
	_, err = d.ReadI2C(ctx, AddrR820T, 2)
	require.NoError(t, err)

	setups := mock.Setups()
	require.Len(t, setups, 2)
	assert.Equal(t, uint8(0x40), setups[0].RequestType)
	assert.Equal(t, uint16(0x34), setups[0].Value)
	assert.Equal(t, uint16(0x0610), setups[0].Index)
	assert.Equal(t, uint16(2), setups[0].Length)
	assert.Equal(t, uint8(0xc0), setups[1].RequestType)
	assert.Equal(t, uint16(0x0600), setups[1].Index)
}

func TestI2CWriteRejectsBadLengthWithoutTransfer(t *testing.T) {
	mock := NewMock("", "")
	d := newTestDongle(t, mock, WithMaxTransfer(8))
	ctx := context.Background()

	for _, buf := range [][]byte{nil, {}, make([]byte, 9), make([]byte, 1024)} {
		n, err := d.WriteI2C(ctx, AddrR820T, buf)
		assert.ErrorIs(t, err, ErrInvalidArgument, "len %d", len(buf))
		assert.Zero(t, n)
	}
	_, err := d.ReadI2C(ctx, AddrR820T, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = d.ReadI2C(ctx, AddrR820T, 9)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = d.ReadI2C(ctx, AddrR820T, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Zero(t, mock.Transfers())
}

func TestI2CRejectsReadBitAddress(t *testing.T) {
	mock := NewMock("", "")
	d := newTestDongle(t, mock)

	_, err := d.WriteI2C(context.Background(), 0x35, []byte{1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, mock.Transfers())
	assert.Equal(t, BusAddress(0x34), Addr7(0x1a))
}

func TestI2CTransportFailuresAreBusErrors(t *testing.T) {
	ctx := context.Background()
	for _, cause := range []error{pkg.ErrNAK, pkg.ErrStall, pkg.ErrTimeout, pkg.ErrNoDevice, context.DeadlineExceeded} {
		mock := NewMock("", "")
		d := newTestDongle(t, mock)

		mock.FailNext(cause)
		_, err := d.WriteI2C(ctx, AddrR820T, []byte{1, 2})
		assert.ErrorIs(t, err, ErrBus)
		assert.ErrorIs(t, err, cause)

		mock.FailNext(cause)
		data, err := d.ReadI2C(ctx, AddrR820T, 2)
		assert.ErrorIs(t, err, ErrBus)
		assert.ErrorIs(t, err, cause)
		assert.Nil(t, data)

		var be *BusError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, "i2c read", be.Op)
		assert.Equal(t, uint16(AddrR820T), be.Addr)

		// single attempt, no retry
		assert.Equal(t, 2, mock.Transfers())
	}
}

func TestI2CShortTransfersFail(t *testing.T) {
	ctx := context.Background()
	mock := NewMock("", "")
	d := newTestDongle(t, mock)

	mock.LimitTransfers(1)
	n, err := d.WriteI2C(ctx, AddrR820T, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrBus)
	assert.Equal(t, 1, n)

	mock.LimitTransfers(-1)
	_, err = d.WriteI2C(ctx, AddrE4000, []byte{9})
	require.NoError(t, err)

	// only one byte stored, a two byte read is short
	data, err := d.ReadI2C(ctx, AddrE4000, 2)
	assert.ErrorIs(t, err, ErrBus)
	assert.Nil(t, data)
}

func TestI2CCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := newTestDongle(t, NewMock("", ""))

	_, err := d.WriteI2C(ctx, AddrR820T, []byte{1})
	assert.ErrorIs(t, err, ErrBus)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTunerRegisterHelpers(t *testing.T) {
	ctx := context.Background()
	mock := NewMock("RTLSDRBlog", "Blog V4")
	d := newTestDongle(t, mock)

	require.NoError(t, d.WriteTunerReg(ctx, 0x05, 0xaa))
	setups := mock.Setups()
	require.Len(t, setups, 1)
	assert.Equal(t, uint16(AddrR828D), setups[0].Value)

	// the echo mock hands back the pointer byte written just before
	got, err := d.ReadTunerReg(ctx, 0x07, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x07}, got)

	unknown := newTestDongle(t, NewMock("", ""))
	assert.ErrorIs(t, unknown.WriteTunerReg(ctx, 0, 0), ErrUnsupported)
	_, err = unknown.ReadTunerReg(ctx, 0, 1)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestI2CUnsupportedHandleIsNotABusError(t *testing.T) {
	mock := NewMock("", "")
	d := newTestDongle(t, mock)

	mock.FailNext(fmt.Errorf("rtl_tcp: control transfer: %w", ErrUnsupported))
	_, err := d.WriteI2C(context.Background(), AddrR820T, []byte{1})
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.NotErrorIs(t, err, ErrBus)
}

func TestZeroValueMock(t *testing.T) {
	mock := &MockHandle{}
	d := newTestDongle(t, mock)
	ctx := context.Background()

	_, err := d.WriteI2C(ctx, AddrR820T, []byte{0x12, 0x34})
	require.NoError(t, err)
	got, err := d.ReadI2C(ctx, AddrR820T, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x34}, got)

	mock.SetReg(BlockSys, RegGPO, 0x80)
	assert.Equal(t, byte(0x80), mock.Reg(BlockSys, RegGPO))
	assert.True(t, d.Identify().Unknown())
}
