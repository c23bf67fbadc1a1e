// Package discovery finds rtl_tcp servers advertised over mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// Service is the DNS-SD service type rtl_tcp servers advertise.
const Service = "_rtl_tcp._tcp"

// Host is one discovered rtl_tcp server.
type Host struct {
	Instance  string // advertised name: "rtl_tcp on shack-pi"
	Hostname  string // "shack-pi.local."
	Addresses []net.IP
	Port      int
	TXT       []string
}

// Addr returns a dialable host:port, preferring IPv4 and falling back to
// the hostname when no address was resolved.
func (h Host) Addr() string {
	port := strconv.Itoa(h.Port)
	for _, ip := range h.Addresses {
		if ip.To4() != nil {
			return net.JoinHostPort(ip.String(), port)
		}
	}
	if len(h.Addresses) > 0 {
		return net.JoinHostPort(h.Addresses[0].String(), port)
	}
	return net.JoinHostPort(strings.TrimSuffix(h.Hostname, "."), port)
}

// TXTValue returns the value of key=value in the TXT records.
func (h Host) TXTValue(key string) (string, bool) {
	for _, kv := range h.TXT {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Browse performs a blocking mDNS browse for rtl_tcp services until timeout
// elapses or ctx is done. Entries are deduplicated by hostname and port.
func Browse(ctx context.Context, timeout time.Duration) ([]Host, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("resolver error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(map[string]Host)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				if e == nil {
					continue
				}
				h := hostFromEntry(e)
				found[hostKey(h)] = h
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, Service, "local.", entries); err != nil {
		return nil, fmt.Errorf("browse error: %w", err)
	}

	<-done
	return sortedHosts(found), nil
}

func hostFromEntry(e *zeroconf.ServiceEntry) Host {
	addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
	addrs = append(addrs, e.AddrIPv4...)
	addrs = append(addrs, e.AddrIPv6...)
	return Host{
		Instance:  cleanInstance(e.Instance),
		Hostname:  e.HostName,
		Addresses: addrs,
		Port:      e.Port,
		TXT:       append([]string{}, e.Text...),
	}
}

func hostKey(h Host) string {
	return fmt.Sprintf("%s|%d", h.Hostname, h.Port)
}

func sortedHosts(m map[string]Host) []Host {
	out := make([]Host, 0, len(m))
	for _, h := range m {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return hostKey(out[i]) < hostKey(out[j]) })
	return out
}

// cleanInstance removes zeroconf escape sequences: "\ " => " "
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}
