package utils

import (
	"errors"
	"net"

	"github.com/libp2p/go-netroute"
)

// LoopbackAddress is served when no outbound route can be resolved.
const LoopbackAddress = "127.0.0.1"

// routeTarget is only used to select a route; nothing is sent to it.
var routeTarget = net.IPv4(8, 8, 8, 8)

// Route describes the path the kernel would use to reach a public host.
type Route struct {
	Interface string
	Gateway   net.IP
	Source    net.IP
}

// DefaultRoute asks the routing table which interface, gateway and source
// address would carry traffic to a public host.
func DefaultRoute() (Route, error) {
	router, err := netroute.New()
	if err != nil {
		return Route{}, err
	}
	iface, gateway, src, err := router.Route(routeTarget)
	if err != nil {
		return Route{}, err
	}
	if src == nil {
		return Route{}, errors.New("route has no preferred source address")
	}
	r := Route{Gateway: gateway, Source: src}
	if iface != nil {
		r.Interface = iface.Name
	}
	return r, nil
}

// LocalIP returns the address other hosts on the LAN can reach this machine
// on, or LoopbackAddress when detection fails.
func LocalIP() string {
	r, err := DefaultRoute()
	if err != nil || r.Source.IsUnspecified() {
		return LoopbackAddress
	}
	return r.Source.String()
}
