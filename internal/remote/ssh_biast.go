// Package remote switches bias-tee lines on a dongle attached to another
// host by running rtl_biast over SSH. It complements rtl_tcp, which can only
// drive GPIO 0.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/rjboer/GoRTL/internal/logging"
	"github.com/rjboer/GoRTL/internal/rtl"
)

// SSHConfig describes how to reach the host the dongle is plugged into.
type SSHConfig struct {
	Host     string
	User     string
	Password string
	KeyPath  string
	Port     int
	// Tool is the rtl_biast binary on the remote host.
	Tool string
	// DeviceIndex selects the dongle on the remote host (rtl_biast -d).
	DeviceIndex int
}

// Runner executes a shell command on the remote host.
type Runner interface {
	Run(ctx context.Context, cmd string) error
}

// BiasTee drives rtl_biast over SSH. It implements rtl.BiasTeeSetter.
type BiasTee struct {
	mu     sync.Mutex
	cfg    SSHConfig
	client *ssh.Client
	runner Runner
	logger logging.Logger
}

var _ rtl.BiasTeeSetter = (*BiasTee)(nil)

// NewBiasTee validates configuration and prepares an instance. The SSH
// connection is opened on first use.
func NewBiasTee(cfg SSHConfig, logger logging.Logger) (*BiasTee, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ssh host is required for remote bias-tee: %w", rtl.ErrInvalidArgument)
	}
	if cfg.DeviceIndex < 0 {
		return nil, fmt.Errorf("device index %d: %w", cfg.DeviceIndex, rtl.ErrInvalidArgument)
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Tool == "" {
		cfg.Tool = "rtl_biast"
	}
	if logger == nil {
		logger = logging.Default()
	}
	b := &BiasTee{cfg: cfg, logger: logger}
	b.runner = sshRunner{b}
	return b, nil
}

// WithRunner replaces the SSH transport, mainly for tests.
func (b *BiasTee) WithRunner(r Runner) *BiasTee {
	b.runner = r
	return b
}

// Config returns the effective configuration.
func (b *BiasTee) Config() SSHConfig { return b.cfg }

// SetBiasTee runs rtl_biast for line on the remote host.
func (b *BiasTee) SetBiasTee(ctx context.Context, line rtl.GpioLine, on bool) error {
	if !line.Valid() {
		return fmt.Errorf("gpio %d out of range 0..%d: %w", line, rtl.MaxGpioLine, rtl.ErrInvalidArgument)
	}
	cmd := b.command(line, on)
	b.logger.Debug("remote bias-tee",
		logging.Field{Key: "host", Value: b.cfg.Host},
		logging.Field{Key: "cmd", Value: cmd},
	)
	if err := b.runner.Run(ctx, cmd); err != nil {
		return &rtl.BusError{Op: "ssh bias-tee", Addr: uint16(line), Err: err}
	}
	return nil
}

func (b *BiasTee) command(line rtl.GpioLine, on bool) string {
	state := 0
	if on {
		state = 1
	}
	return fmt.Sprintf("%s -d %d -b %d -g %d", shellQuote(b.cfg.Tool), b.cfg.DeviceIndex, state, line)
}

// Close drops the cached SSH connection.
func (b *BiasTee) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

type sshRunner struct{ b *BiasTee }

func (r sshRunner) Run(ctx context.Context, cmd string) error {
	client, err := r.b.dial(ctx)
	if err != nil {
		return err
	}
	session, err := client.NewSession()
	if err != nil {
		r.b.dropClient(client)
		return fmt.Errorf("create ssh session: %w", err)
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(cmd)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		session.Close()
		return fmt.Errorf("run %q: %w", cmd, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("run %q: %w: %s", cmd, res.err, strings.TrimSpace(string(res.out)))
		}
		return nil
	}
}

// dropClient forgets a broken connection so the next command redials.
func (b *BiasTee) dropClient(client *ssh.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == client {
		b.client.Close()
		b.client = nil
		b.logger.Warn("ssh connection dropped", logging.Field{Key: "host", Value: b.cfg.Host})
	}
}

func (b *BiasTee) dial(ctx context.Context) (*ssh.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return b.client, nil
	}

	auth, err := authMethods(b.cfg)
	if err != nil {
		return nil, err
	}
	config := &ssh.ClientConfig{
		User:            b.cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}

	addr := net.JoinHostPort(b.cfg.Host, fmt.Sprint(b.cfg.Port))
	dialer := net.Dialer{Timeout: config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial ssh: %w", err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create ssh client: %w", err)
	}

	b.client = ssh.NewClient(clientConn, chans, reqs)
	b.logger.Info("ssh connected", logging.Field{Key: "addr", Value: addr})
	return b.client, nil
}

func authMethods(cfg SSHConfig) ([]ssh.AuthMethod, error) {
	auth := []ssh.AuthMethod{}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if cfg.KeyPath != "" {
		key, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("no ssh password or key configured")
	}
	return auth, nil
}

// shellQuote wraps value in single quotes with embedded quotes escaped.
func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
