package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rjboer/GoRTL/internal/discovery"
	"github.com/rjboer/GoRTL/internal/rtl"
)

// execute runs one dongle command. It is shared by one-shot invocations and
// the interactive shell.
func execute(ctx context.Context, d *rtl.Dongle, out io.Writer, timeout time.Duration, cmd string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch cmd {
	case "identify", "id":
		printIdentity(out, d.Identify())
		return nil
	case "redetect":
		printIdentity(out, d.Redetect())
		return nil
	case "clock":
		printClock(out, d.Clock())
		return nil
	case "i2c-read":
		return cmdI2CRead(ctx, d, out, args)
	case "i2c-write":
		return cmdI2CWrite(ctx, d, out, args)
	case "tuner-read":
		return cmdTunerRead(ctx, d, out, args)
	case "tuner-write":
		return cmdTunerWrite(ctx, d, out, args)
	case "gpio":
		return cmdGPIO(ctx, d, out, args)
	case "biastee":
		return cmdBiasTee(ctx, d, out, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printIdentity(out io.Writer, id rtl.Identity) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "model:\t%s\n", id.Model.Name)
	fmt.Fprintf(tw, "tuner:\t%s\n", id.Model.Tuner)
	fmt.Fprintf(tw, "known:\t%t\n", id.Known)
	fmt.Fprintf(tw, "source:\t%s\n", id.Source)
	if id.Model.TunerAddr != 0 {
		fmt.Fprintf(tw, "tuner addr:\t%s\n", id.Model.TunerAddr)
	}
	if id.Ambiguous {
		names := make([]string, 0, len(id.Candidates))
		for _, m := range id.Candidates {
			names = append(names, m.Name)
		}
		fmt.Fprintf(tw, "ambiguous:\t%s\n", strings.Join(names, ", "))
	}
	tw.Flush()
}

func printClock(out io.Writer, clk rtl.Clock) {
	note := ""
	switch {
	case clk.Override:
		note = " (override)"
	case clk.Fallback:
		note = " (default, dongle not identified)"
	}
	fmt.Fprintf(out, "%d Hz%s\n", clk.Hz, note)
}

func cmdI2CRead(ctx context.Context, d *rtl.Dongle, out io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: i2c-read <addr> <n>")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("length %q: %w", args[1], err)
	}
	data, err := d.ReadI2C(ctx, addr, n)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hexBytes(data))
	return nil
}

func cmdI2CWrite(ctx context.Context, d *rtl.Dongle, out io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: i2c-write <addr> <byte>...")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	buf, err := parseBytes(args[1:])
	if err != nil {
		return err
	}
	n, err := d.WriteI2C(ctx, addr, buf)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d bytes to %s\n", n, addr)
	return nil
}

func cmdTunerRead(ctx context.Context, d *rtl.Dongle, out io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tuner-read <reg> <n>")
	}
	reg, err := parseByte(args[0])
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("length %q: %w", args[1], err)
	}
	data, err := d.ReadTunerReg(ctx, reg, n)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hexBytes(data))
	return nil
}

func cmdTunerWrite(ctx context.Context, d *rtl.Dongle, out io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: tuner-write <reg> <byte>...")
	}
	reg, err := parseByte(args[0])
	if err != nil {
		return err
	}
	vals, err := parseBytes(args[1:])
	if err != nil {
		return err
	}
	if err := d.WriteTunerReg(ctx, reg, vals...); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func cmdGPIO(ctx context.Context, d *rtl.Dongle, out io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: gpio <line> on|off")
	}
	line, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return fmt.Errorf("gpio line %q: %w", args[0], err)
	}
	on, err := parseSwitch(args[1])
	if err != nil {
		return err
	}
	if err := d.SetGPIO(ctx, rtl.GpioLine(line), on); err != nil {
		return err
	}
	fmt.Fprintf(out, "gpio %d %s\n", line, args[1])
	return nil
}

func cmdBiasTee(ctx context.Context, d *rtl.Dongle, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: biastee on|off")
	}
	on, err := parseSwitch(args[0])
	if err != nil {
		return err
	}
	if err := d.SetBiasTee(ctx, on); err != nil {
		return err
	}
	fmt.Fprintf(out, "bias-tee %s (gpio %d)\n", args[0], d.Identify().Model.BiasTeeLine)
	return nil
}

func cmdDiscover(ctx context.Context, out io.Writer, timeout time.Duration) error {
	hosts, err := discovery.Browse(ctx, timeout)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		fmt.Fprintln(out, "no rtl_tcp servers found")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tADDRESS\tTXT")
	for _, h := range hosts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Instance, h.Addr(), strings.Join(h.TXT, " "))
	}
	return tw.Flush()
}

func parseAddress(s string) (rtl.BusAddress, error) {
	v, err := parseByte(s)
	if err != nil {
		return 0, fmt.Errorf("bus address: %w", err)
	}
	return rtl.BusAddress(v), nil
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("byte %q: %w", s, err)
	}
	return uint8(v), nil
}

func parseBytes(args []string) ([]byte, error) {
	buf := make([]byte, 0, len(args))
	for _, a := range args {
		b, err := parseByte(a)
		if err != nil {
			return nil, err
		}
		buf = append(buf, b)
	}
	return buf, nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, " ")
}
