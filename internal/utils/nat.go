package utils

import (
	"context"
	"net"
	"sync"
	"time"

	natlib "github.com/libp2p/go-nat"
	"golang.org/x/sync/singleflight"
)

const (
	gatewayTimeout = 5 * time.Second
	externalIPTTL  = 10 * time.Minute
)

// ExternalIPResolver asks the LAN gateway (UPnP or NAT-PMP) for the public
// address. Gateway answers, including failures, are kept for ttl so page
// loads do not each trigger an SSDP search.
type ExternalIPResolver struct {
	ttl      time.Duration
	now      func() time.Time
	discover func(ctx context.Context) (net.IP, error)
	group    singleflight.Group

	mu        sync.Mutex
	ip        net.IP
	err       error
	checkedAt time.Time
}

func NewExternalIPResolver() *ExternalIPResolver {
	return &ExternalIPResolver{ttl: externalIPTTL, now: time.Now, discover: gatewayExternalIP}
}

// Lookup returns the cached answer, or waits for a discovery until ctx ends.
// Discovery runs on its own gateway timeout and is shared by concurrent
// callers; a caller giving up does not cancel it or poison the cache.
func (r *ExternalIPResolver) Lookup(ctx context.Context) (net.IP, error) {
	if ip, ok, err := r.cached(); ok {
		return ip, err
	}
	ch := r.group.DoChan("gateway", func() (interface{}, error) {
		ip, err := r.discover(context.Background())
		r.mu.Lock()
		r.ip, r.err, r.checkedAt = ip, err, r.now()
		r.mu.Unlock()
		return ip, err
	})
	select {
	case res := <-ch:
		ip, _ := res.Val.(net.IP)
		return ip, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *ExternalIPResolver) cached() (net.IP, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.checkedAt.IsZero() || r.now().Sub(r.checkedAt) >= r.ttl {
		return nil, false, nil
	}
	return r.ip, true, r.err
}

func gatewayExternalIP(ctx context.Context) (net.IP, error) {
	ctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	gw, err := natlib.DiscoverGateway(ctx)
	if err != nil {
		return nil, err
	}
	return gw.GetExternalAddress()
}
