package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
)

func TestHostFromEntry(t *testing.T) {
	e := zeroconf.NewServiceEntry(`rtl_tcp\ on\ shack-pi`, Service, "local.")
	e.HostName = "shack-pi.local."
	e.Port = 1234
	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	e.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	e.Text = []string{"tuner=R828D", "serial=00000001"}

	h := hostFromEntry(e)
	assert.Equal(t, "rtl_tcp on shack-pi", h.Instance)
	assert.Equal(t, "192.168.1.20:1234", h.Addr())
	assert.Len(t, h.Addresses, 2)

	v, ok := h.TXTValue("Tuner")
	assert.True(t, ok)
	assert.Equal(t, "R828D", v)
	_, ok = h.TXTValue("gain")
	assert.False(t, ok)
}

func TestHostAddrFallbacks(t *testing.T) {
	v6 := Host{Addresses: []net.IP{net.ParseIP("fe80::1")}, Port: 1234}
	assert.Equal(t, "[fe80::1]:1234", v6.Addr())

	bare := Host{Hostname: "radio.local.", Port: 1234}
	assert.Equal(t, "radio.local:1234", bare.Addr())
}

func TestSortedHostsDeduplicates(t *testing.T) {
	found := map[string]Host{}
	for _, h := range []Host{
		{Hostname: "b.local.", Port: 1234},
		{Hostname: "a.local.", Port: 1234},
		{Hostname: "b.local.", Port: 1234, TXT: []string{"x=1"}},
	} {
		found[hostKey(h)] = h
	}
	out := sortedHosts(found)
	assert.Len(t, out, 2)
	assert.Equal(t, "a.local.", out[0].Hostname)
	assert.Equal(t, []string{"x=1"}, out[1].TXT)
}
