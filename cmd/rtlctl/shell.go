package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/rjboer/GoRTL/internal/logging"
)

const shellHelp = `commands:
  identify | id            show the detected board
  redetect                 re-read descriptors and identify again
  clock                    show the tuner reference clock
  i2c-read <addr> <n>      read from an 8-bit bus address
  i2c-write <addr> <b>...  write to an 8-bit bus address
  tuner-read <reg> <n>     read tuner registers
  tuner-write <reg> <b>... write tuner registers
  gpio <line> on|off       drive a GPIO output
  biastee on|off           switch the bias-tee
  help | ?                 this text
  quit | exit | q          leave the shell
`

func runShell(ctx context.Context, b *backend, cfg cliConfig, logger logging.Logger) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("rtl(%s)> ", b.name),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	logger.Debug("shell started", logging.Field{Key: "backend", Value: b.name})
	fmt.Fprint(rl.Stdout(), shellHelp)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			// EOF
			return nil
		}
		if !shellLine(ctx, b, cfg, rl.Stdout(), line) {
			return nil
		}
	}
}

// shellLine handles one line of input and reports whether the shell should
// keep running.
func shellLine(ctx context.Context, b *backend, cfg cliConfig, out io.Writer, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	switch cmd {
	case "help", "?":
		fmt.Fprint(out, shellHelp)
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Exiting...")
		return false
	default:
		if err := execute(ctx, b.dongle, out, cfg.timeout, cmd, parts[1:]); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
	return true
}
