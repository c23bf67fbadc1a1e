package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/rjboer/GoRTL/internal/rtl"
)

// testSSHServer runs exec requests on 127.0.0.1. Commands for device 9 hang
// until the client closes the channel; everything else exits 0.
type testSSHServer struct {
	ln   net.Listener
	cmds chan string

	mu    sync.Mutex
	conns []net.Conn
}

func startSSHServer(t *testing.T) *testSSHServer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(ssh.ConnMetadata, []byte) (*ssh.Permissions, error) { return nil, nil },
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &testSSHServer{ln: ln, cmds: make(chan string, 16)}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, c)
			s.mu.Unlock()
			go s.serve(c, cfg)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		s.dropAll()
	})
	return s
}

func (s *testSSHServer) serve(c net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(c, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)
	for nc := range chans {
		if nc.ChannelType() != "session" {
			nc.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, creqs, err := nc.Accept()
		if err != nil {
			continue
		}
		go s.session(ch, creqs)
	}
}

func (s *testSSHServer) session(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()
	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				req.Reply(false, nil)
			}
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			req.Reply(false, nil)
			return
		}
		req.Reply(true, nil)
		s.cmds <- payload.Command
		if strings.Contains(payload.Command, "-d 9") {
			_, _ = io.Copy(io.Discard, ch)
			return
		}
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
		return
	}
}

func (s *testSSHServer) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
}

func (s *testSSHServer) config(index int) SSHConfig {
	addr := s.ln.Addr().(*net.TCPAddr)
	return SSHConfig{Host: "127.0.0.1", Port: addr.Port, Password: "x", DeviceIndex: index}
}

func TestSSHBiasTeeRunsOverSSH(t *testing.T) {
	srv := startSSHServer(t)
	b, err := NewBiasTee(srv.config(0), nil)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.SetBiasTee(context.Background(), 0, true))
	assert.Equal(t, "'rtl_biast' -d 0 -b 1 -g 0", <-srv.cmds)
}

func TestSSHBiasTeeRedialsAfterBrokenConnection(t *testing.T) {
	srv := startSSHServer(t)
	b, err := NewBiasTee(srv.config(0), nil)
	require.NoError(t, err)
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.SetBiasTee(ctx, 0, true))
	<-srv.cmds

	srv.dropAll()
	err = b.SetBiasTee(ctx, 0, false)
	assert.ErrorIs(t, err, rtl.ErrBus)

	require.NoError(t, b.SetBiasTee(ctx, 0, false))
	assert.Equal(t, "'rtl_biast' -d 0 -b 0 -g 0", <-srv.cmds)
}

func TestSSHBiasTeeHonoursContext(t *testing.T) {
	srv := startSSHServer(t)
	b, err := NewBiasTee(srv.config(9), nil)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = b.SetBiasTee(ctx, 0, true)
	assert.ErrorIs(t, err, rtl.ErrBus)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}
