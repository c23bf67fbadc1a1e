// Package rtltcp talks to an rtl_tcp server. A Conn exposes the server's
// dongle as an rtl.Handle: it reports the tuner from the dongle info header
// and switches the bias-tee with the server's bias-tee command. Register
// access is not part of the rtl_tcp protocol.
package rtltcp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ardnew/softusb/host/hal"

	"github.com/rjboer/GoRTL/internal/logging"
	"github.com/rjboer/GoRTL/internal/rtl"
)

// Magic opens every dongle info header.
var Magic = [4]byte{'R', 'T', 'L', '0'}

// InfoSize is the length of the dongle info header on the wire.
const InfoSize = 12

// DongleInfo is the header an rtl_tcp server sends on connect.
type DongleInfo struct {
	Magic     [4]byte
	Tuner     rtl.Tuner
	GainCount uint32
}

// Valid reports whether the header carries the rtl_tcp magic.
func (d DongleInfo) Valid() bool { return d.Magic == Magic }

func (d DongleInfo) String() string {
	return fmt.Sprintf("{Magic:%q Tuner:%s GainCount:%d}", d.Magic[:], d.Tuner, d.GainCount)
}

// Command is an rtl_tcp command byte.
type Command uint8

const (
	CmdCenterFreq Command = iota + 1
	CmdSampleRate
	CmdTunerGainMode
	CmdTunerGain
	CmdFreqCorrection
	CmdTunerIFGain
	CmdTestMode
	CmdAGCMode
	CmdDirectSampling
	CmdOffsetTuning
	CmdRTLXtal
	CmdTunerXtal
	CmdGainByIndex
	CmdBiasTee
)

// BiasTeeLine is the only GPIO rtl_tcp can drive.
const BiasTeeLine rtl.GpioLine = 0

// Conn is a connection to one rtl_tcp server. It is safe for concurrent use.
type Conn struct {
	mu       sync.Mutex
	addr     string
	conn     net.Conn
	info     DongleInfo
	fallback rtl.BiasTeeSetter
	logger   logging.Logger
	done     chan struct{}
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the connection logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBiasTeeFallback routes bias-tee requests the server cannot serve,
// such as lines other than 0, to another setter (see internal/remote).
func WithBiasTeeFallback(s rtl.BiasTeeSetter) Option {
	return func(c *Conn) { c.fallback = s }
}

var dialer = net.Dialer{Timeout: 3 * time.Second}

// Dial connects to addr and reads the dongle info header. Sample data the
// server streams afterwards is drained and discarded.
func Dial(ctx context.Context, addr string, opts ...Option) (*Conn, error) {
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to rtl_tcp at %s: %w", addr, err)
	}

	c := &Conn{addr: addr, conn: conn, logger: logging.Default(), done: make(chan struct{})}
	for _, opt := range opts {
		opt(c)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	info, err := readInfo(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rtl_tcp %s: %w", addr, err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	c.info = info

	go c.drain()

	c.logger.Info("rtl_tcp connected",
		logging.Field{Key: "addr", Value: addr},
		logging.Field{Key: "tuner", Value: info.Tuner.String()},
		logging.Field{Key: "gains", Value: info.GainCount},
	)
	return c, nil
}

func readInfo(r io.Reader) (DongleInfo, error) {
	var raw [InfoSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return DongleInfo{}, fmt.Errorf("read dongle info: %w", err)
	}
	var info DongleInfo
	copy(info.Magic[:], raw[:4])
	info.Tuner = rtl.Tuner(binary.BigEndian.Uint32(raw[4:8]))
	info.GainCount = binary.BigEndian.Uint32(raw[8:12])
	if !info.Valid() {
		return DongleInfo{}, fmt.Errorf("invalid magic %q, expected %q", info.Magic[:], Magic[:])
	}
	return info, nil
}

func (c *Conn) drain() {
	defer close(c.done)
	_, _ = io.Copy(io.Discard, c.conn)
}

// Info returns the dongle info header.
func (c *Conn) Info() DongleInfo { return c.info }

// Addr returns the server address.
func (c *Conn) Addr() string { return c.addr }

// Manufacturer is empty: rtl_tcp does not forward USB descriptors.
func (c *Conn) Manufacturer() string { return "" }

// Product is empty: rtl_tcp does not forward USB descriptors.
func (c *Conn) Product() string { return "" }

// TunerType reports the tuner from the dongle info header.
func (c *Conn) TunerType() rtl.Tuner { return c.info.Tuner }

// ControlTransfer is not available over rtl_tcp.
func (c *Conn) ControlTransfer(context.Context, *hal.SetupPacket, []byte) (int, error) {
	return 0, fmt.Errorf("rtl_tcp %s: control transfer: %w", c.addr, rtl.ErrUnsupported)
}

// Execute sends one command. The write honours the deadline of ctx.
func (c *Conn) Execute(ctx context.Context, cmd Command, param uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var frame [5]byte
	frame[0] = byte(cmd)
	binary.BigEndian.PutUint32(frame[1:], param)

	c.mu.Lock()
	defer c.mu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if _, err := c.conn.Write(frame[:]); err != nil {
		return fmt.Errorf("rtl_tcp %s: command 0x%02x: %w", c.addr, uint8(cmd), err)
	}
	return nil
}

// SetBiasTee switches the bias-tee. The server only drives line 0; other
// lines go to the fallback setter when one is configured.
func (c *Conn) SetBiasTee(ctx context.Context, line rtl.GpioLine, on bool) error {
	if line != BiasTeeLine {
		if c.fallback != nil {
			return c.fallback.SetBiasTee(ctx, line, on)
		}
		return fmt.Errorf("rtl_tcp %s: gpio %d: %w", c.addr, line, rtl.ErrUnsupported)
	}
	var param uint32
	if on {
		param = 1
	}
	if err := c.Execute(ctx, CmdBiasTee, param); err != nil {
		return &rtl.BusError{Op: "rtl_tcp bias-tee", Addr: uint16(CmdBiasTee), Err: err}
	}
	return nil
}

// SetTunerXtal tells the server which tuner crystal frequency to assume.
func (c *Conn) SetTunerXtal(ctx context.Context, hz uint32) error {
	return c.Execute(ctx, CmdTunerXtal, hz)
}

// SetCenterFreq tunes the dongle.
func (c *Conn) SetCenterFreq(ctx context.Context, hz uint32) error {
	return c.Execute(ctx, CmdCenterFreq, hz)
}

// SetSampleRate sets the sample rate in samples per second.
func (c *Conn) SetSampleRate(ctx context.Context, rate uint32) error {
	return c.Execute(ctx, CmdSampleRate, rate)
}

// Close closes the connection and waits for the drain loop to stop.
func (c *Conn) Close() error {
	err := c.conn.Close()
	<-c.done
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	c.logger.Info("rtl_tcp disconnected", logging.Field{Key: "addr", Value: c.addr})
	return err
}
