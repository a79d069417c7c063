package bootstrap

import (
	"context"
	"fmt"
	"net"

	"chorddht/internal/ring"
)

// DNSBootstrap discovers peers through a single DNS name: either an SRV
// record set (one target per ring member) or a plain A/AAAA record
// paired with a fixed port, depending on configuration.
type DNSBootstrap struct {
	resolver *net.Resolver
	name     string
	srv      bool
	port     int
}

// NewDNSBootstrap builds a bootstrap source resolving name. When srv is
// true, name is looked up as an SRV record set; otherwise it is looked
// up as A/AAAA records and paired with port.
func NewDNSBootstrap(name string, srv bool, port int) *DNSBootstrap {
	return &DNSBootstrap{resolver: net.DefaultResolver, name: name, srv: srv, port: port}
}

// Discover resolves the configured DNS name into dialable addresses.
func (d *DNSBootstrap) Discover(ctx context.Context) ([]string, error) {
	if d.srv {
		return d.discoverSRV(ctx)
	}
	return d.discoverHost(ctx)
}

func (d *DNSBootstrap) discoverSRV(ctx context.Context) ([]string, error) {
	_, records, err := d.resolver.LookupSRV(ctx, "", "", d.name)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: srv lookup %s: %w", d.name, err)
	}
	var endpoints []string
	for _, rec := range records {
		target := rec.Target
		ips, err := d.resolver.LookupHost(ctx, target)
		if err != nil {
			continue
		}
		for _, ip := range ips {
			endpoints = append(endpoints, net.JoinHostPort(ip, fmt.Sprintf("%d", rec.Port)))
		}
	}
	return endpoints, nil
}

func (d *DNSBootstrap) discoverHost(ctx context.Context) ([]string, error) {
	ips, err := d.resolver.LookupHost(ctx, d.name)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: host lookup %s: %w", d.name, err)
	}
	endpoints := make([]string, 0, len(ips))
	for _, ip := range ips {
		endpoints = append(endpoints, net.JoinHostPort(ip, fmt.Sprintf("%d", d.port)))
	}
	return endpoints, nil
}

// Register does nothing: DNS discovery relies on records managed
// outside the node process (a headless service, a Route53 zone fed by
// Route53Bootstrap, etc).
func (d *DNSBootstrap) Register(ctx context.Context, self ring.NodeInfo) error {
	return nil
}

// Deregister does nothing, for the same reason as Register.
func (d *DNSBootstrap) Deregister(ctx context.Context, self ring.NodeInfo) error {
	return nil
}
