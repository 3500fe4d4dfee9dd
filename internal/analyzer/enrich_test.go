package analyzer

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nozo-moto/connwatch/pkg/types"
)

// startPTRServer answers PTR queries from names and returns its address.
func startPTRServer(t *testing.T, names map[string]string) (string, *atomic.Int32) {
	t.Helper()

	queries := new(atomic.Int32)
	mux := dns.NewServeMux()
	mux.HandleFunc("in-addr.arpa.", func(w dns.ResponseWriter, r *dns.Msg) {
		queries.Add(1)
		m := new(dns.Msg)
		m.SetReply(r)
		if target, ok := names[r.Question[0].Name]; ok {
			m.Answer = append(m.Answer, &dns.PTR{
				Hdr: dns.RR_Header{Name: r.Question[0].Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 60},
				Ptr: target,
			})
		} else {
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: mux, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String(), queries
}

func TestDNSEnricher(t *testing.T) {
	addr, queries := startPTRServer(t, map[string]string{
		"8.8.8.8.in-addr.arpa.": "dns.google.",
	})
	enr, err := NewDNSEnricher(addr, time.Second)
	require.NoError(t, err)

	rec := types.ConnectionRecord{RemoteAddress: "8.8.8.8", RemotePort: 53}
	var e types.Enrichment
	require.NoError(t, enr.Enrich(context.Background(), rec, &e))
	assert.Equal(t, "dns.google", e.ReverseDNS)

	var again types.Enrichment
	require.NoError(t, enr.Enrich(context.Background(), rec, &again))
	assert.Equal(t, "dns.google", again.ReverseDNS)
	assert.Equal(t, int32(1), queries.Load())

	var miss types.Enrichment
	require.NoError(t, enr.Enrich(context.Background(), types.ConnectionRecord{RemoteAddress: "192.0.2.1"}, &miss))
	assert.Empty(t, miss.ReverseDNS)
}

func TestDNSEnricherSkipsLocal(t *testing.T) {
	enr, err := NewDNSEnricher("127.0.0.1:1", 10*time.Millisecond)
	require.NoError(t, err)

	for _, addr := range []string{"", "127.0.0.1", "0.0.0.0", "not-an-ip"} {
		var e types.Enrichment
		assert.NoError(t, enr.Enrich(context.Background(), types.ConnectionRecord{RemoteAddress: addr}, &e))
		assert.Empty(t, e.ReverseDNS)
	}
}

func TestGeoIPEnricherMissingDatabase(t *testing.T) {
	_, err := NewGeoIPEnricher(t.TempDir() + "/GeoLite2-Country.mmdb")
	assert.Error(t, err)
}
