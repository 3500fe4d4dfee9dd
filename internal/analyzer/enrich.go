package analyzer

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/nozo-moto/connwatch/pkg/types"
	"github.com/oschwald/geoip2-golang"
)

const resolvConf = "/etc/resolv.conf"

// lookupable reports whether addr is worth asking about: a parseable,
// non-loopback, specified address.
func lookupable(addr string) (netip.Addr, bool) {
	ip, err := netip.ParseAddr(addr)
	if err != nil || ip.IsLoopback() || ip.IsUnspecified() {
		return netip.Addr{}, false
	}
	return ip, true
}

// DNSEnricher resolves PTR records for remote peers.
type DNSEnricher struct {
	client *dns.Client
	server string
	seen   map[string]string
}

// NewDNSEnricher queries server ("host:port"), or the first nameserver in
// /etc/resolv.conf when server is empty.
func NewDNSEnricher(server string, timeout time.Duration) (*DNSEnricher, error) {
	if server == "" {
		conf, err := dns.ClientConfigFromFile(resolvConf)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolvConf, err)
		}
		if len(conf.Servers) == 0 {
			return nil, fmt.Errorf("no nameservers in %s", resolvConf)
		}
		server = net.JoinHostPort(conf.Servers[0], conf.Port)
	}
	return &DNSEnricher{
		client: &dns.Client{Net: "udp", Timeout: timeout},
		server: server,
		seen:   make(map[string]string),
	}, nil
}

func (d *DNSEnricher) Enrich(ctx context.Context, rec types.ConnectionRecord, e *types.Enrichment) error {
	if _, ok := lookupable(rec.RemoteAddress); !ok {
		return nil
	}
	if name, ok := d.seen[rec.RemoteAddress]; ok {
		e.ReverseDNS = name
		return nil
	}

	arpa, err := dns.ReverseAddr(rec.RemoteAddress)
	if err != nil {
		return err
	}
	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	in, _, err := d.client.ExchangeContext(ctx, msg, d.server)
	if err != nil {
		return fmt.Errorf("PTR lookup for %s: %w", rec.RemoteAddress, err)
	}

	name := ""
	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			name = strings.TrimSuffix(ptr.Ptr, ".")
			break
		}
	}
	d.seen[rec.RemoteAddress] = name
	e.ReverseDNS = name
	return nil
}

// GeoIPEnricher tags remote peers with their country ISO code from a
// MaxMind database.
type GeoIPEnricher struct {
	db *geoip2.Reader
}

func NewGeoIPEnricher(path string) (*GeoIPEnricher, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &GeoIPEnricher{db: db}, nil
}

func (g *GeoIPEnricher) Enrich(_ context.Context, rec types.ConnectionRecord, e *types.Enrichment) error {
	ip, ok := lookupable(rec.RemoteAddress)
	if !ok || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
		return nil
	}
	country, err := g.db.Country(net.IP(ip.AsSlice()))
	if err != nil {
		return err
	}
	e.Country = country.Country.IsoCode
	return nil
}

func (g *GeoIPEnricher) Close() error {
	return g.db.Close()
}
