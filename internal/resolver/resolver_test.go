package resolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"github.com/typosniper/typo-sniper/internal/xerrors"
)

// startMockDNSServer is grounded on the teacher's scanner_test.go mock
// DNS server, generalized to answer A and NS in addition to MX, and to
// return NXDOMAIN for anything it doesn't recognize.
func startMockDNSServer(t *testing.T) (string, func()) {
	t.Helper()

	server := &dns.Server{Addr: "127.0.0.1:0", Net: "udp"}
	server.Handler = dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		msg := dns.Msg{}
		msg.SetReply(r)
		msg.Authoritative = true

		q := r.Question[0]
		switch {
		case q.Name == "registered.example." && q.Qtype == dns.TypeA:
			msg.Answer = append(msg.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 300},
				A:   net.ParseIP("203.0.113.10"),
			})
		case q.Name == "registered.example." && q.Qtype == dns.TypeMX:
			msg.Answer = append(msg.Answer, &dns.MX{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 300},
				Mx:  "mail.registered.example.",
			})
		case q.Name == "unregistered.example.":
			msg.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(&msg)
	})

	ready := make(chan struct{})
	server.NotifyStartedFunc = func() { close(ready) }
	go func() { _ = server.ListenAndServe() }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("mock DNS server did not start")
	}

	addr := server.PacketConn.LocalAddr().String()
	return addr, func() { _ = server.Shutdown() }
}

func TestResolver_RegisteredDomainHasRecords(t *testing.T) {
	addr, cleanup := startMockDNSServer(t)
	defer cleanup()

	r := New(addr, 1)
	result, err := r.Resolve(context.Background(), "registered.example")

	require.NoError(t, err)
	require.True(t, result.Registered())
	require.NotEmpty(t, result.A)
	require.NotEmpty(t, result.MX)
	require.Empty(t, result.NS)
}

func TestResolver_UnregisteredDomainHasNoRecords(t *testing.T) {
	addr, cleanup := startMockDNSServer(t)
	defer cleanup()

	r := New(addr, 1)
	result, err := r.Resolve(context.Background(), "unregistered.example")

	require.NoError(t, err)
	require.False(t, result.Registered())
	require.Empty(t, result.A)
	require.Empty(t, result.AAAA)
	require.Empty(t, result.MX)
	require.Empty(t, result.NS)
}

func TestResolver_UnreachableNameserverDemotesToUnregistered(t *testing.T) {
	// Nothing listens on 127.0.0.1 port 1, so it never answers; Resolve must never
	// panic or abort, only demote to "no records" and report the
	// transient cause via its error return (§4.2, §7).
	r := New("127.0.0.1:1", 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := r.Resolve(ctx, "anything.example")
	require.False(t, result.Registered())
	require.True(t, xerrors.Is(err, xerrors.KindTransientNet))
}
