// Command rtlctl inspects and controls RTL2832U dongles: it identifies the
// board, reports the tuner clock, reads and writes the I2C bus and drives
// GPIO lines over USB, rtl_tcp or a built-in mock.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/rjboer/GoRTL/internal/logging"
	"github.com/rjboer/GoRTL/internal/remote"
	"github.com/rjboer/GoRTL/internal/rtl"
	"github.com/rjboer/GoRTL/internal/rtltcp"
	"github.com/rjboer/GoRTL/internal/usbdev"
)

const usage = `usage: rtlctl [flags] <command> [args]

commands:
  identify                 show the detected board and tuner
  clock                    show the tuner reference clock
  i2c-read <addr> <n>      read n bytes from an 8-bit bus address
  i2c-write <addr> <b>...  write bytes to an 8-bit bus address
  tuner-read <reg> <n>     read n tuner registers starting at reg
  tuner-write <reg> <b>... write tuner registers starting at reg
  gpio <line> on|off       drive a GPIO output
  biastee on|off           switch the board's bias-tee
  discover                 browse the network for rtl_tcp servers
  shell                    interactive console
`

func main() {
	lookup := os.LookupEnv
	defaults, err := loadConfig(configPath(os.Args[1:], lookup))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg, args, err := parseConfig(os.Args[1:], lookup, defaults)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(0)
		}
		log.Fatalf("parse config: %v", err)
	}

	logger, err := logging.Setup(cfg.logLevel, cfg.logFormat, os.Stderr)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	logging.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg, args, os.Stdout, logger); err != nil {
		logger.Error("rtlctl failed", logging.Field{Key: "error", Value: err})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliConfig, args []string, out io.Writer, logger logging.Logger) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return fmt.Errorf("no command given")
	}
	cmd, rest := args[0], args[1:]

	if cmd == "discover" {
		return cmdDiscover(ctx, out, cfg.timeout)
	}

	b, err := selectBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("select backend: %w", err)
	}
	defer b.Close()

	if cmd == "shell" {
		return runShell(ctx, b, cfg, logger)
	}
	return execute(ctx, b.dongle, out, cfg.timeout, cmd, rest)
}

// backend owns a Dongle and whatever transport sits underneath it.
type backend struct {
	name    string
	dongle  *rtl.Dongle
	closers []io.Closer
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i].Close())
	}
	return errors.Join(errs...)
}

func dongleOptions(cfg cliConfig, logger logging.Logger) []rtl.Option {
	opts := []rtl.Option{rtl.WithLogger(logger), rtl.WithMaxTransfer(cfg.maxTransfer)}
	if cfg.tunerXtal != 0 {
		opts = append(opts, rtl.WithTunerXtal(uint32(cfg.tunerXtal)))
	}
	return opts
}

func selectBackend(ctx context.Context, cfg cliConfig, logger logging.Logger) (*backend, error) {
	if logger == nil {
		logger = logging.Default()
	}
	b := &backend{name: cfg.backend}

	var h rtl.Handle
	switch cfg.backend {
	case "mock":
		h = rtl.NewMock(cfg.mockManufacturer, cfg.mockProduct)
	case "usb":
		s, err := usbdev.Open(ctx, cfg.deviceIndex, logger)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, s)
		h = s.Device()
	case "tcp":
		var opts []rtltcp.Option
		opts = append(opts, rtltcp.WithLogger(logger))
		if cfg.sshHost != "" {
			bt, err := remote.NewBiasTee(remote.SSHConfig{
				Host:        cfg.sshHost,
				User:        cfg.sshUser,
				Password:    cfg.sshPassword,
				KeyPath:     cfg.sshKeyPath,
				Port:        cfg.sshPort,
				DeviceIndex: cfg.sshDeviceIndex,
			}, logger)
			if err != nil {
				return nil, err
			}
			b.closers = append(b.closers, bt)
			opts = append(opts, rtltcp.WithBiasTeeFallback(bt))
		}
		dialCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
		c, err := rtltcp.Dial(dialCtx, cfg.tcpAddr, opts...)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, c)
		h = c
	default:
		return nil, fmt.Errorf("unknown backend %q (mock|usb|tcp)", cfg.backend)
	}

	d, err := rtl.New(h, dongleOptions(cfg, logger)...)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.dongle = d
	return b, nil
}
