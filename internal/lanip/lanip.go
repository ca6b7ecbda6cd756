// Package lanip finds the LAN address a phone on the same network can use
// to reach this machine.
//
// The address is discovered by "connecting" a UDP socket toward a public
// address. No packet is sent: the kernel just picks the source interface
// from its routing table, and we read that back from the socket.
package lanip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
)

const (
	// Target is the routable address used to select the outbound interface.
	Target = "8.8.8.8:80"

	// Loopback is substituted when no LAN address can be determined.
	Loopback = "127.0.0.1"
)

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Result is the outcome of a lookup: either Addr or Err is set.
type Result struct {
	Addr string
	Err  error
}

// OK reports whether an address was found.
func (r Result) OK() bool {
	return r.Err == nil && r.Addr != ""
}

// Resolver discovers the preferred outbound IP.
type Resolver struct {
	// Dial defaults to a zero net.Dialer.
	Dial DialFunc
	// Target defaults to Target.
	Target string
}

// Resolve returns the local address the OS would use to reach Target.
func (r *Resolver) Resolve(ctx context.Context) Result {
	dial := r.Dial
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}
	target := r.Target
	if target == "" {
		target = Target
	}

	conn, err := dial(ctx, "udp", target)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to open udp socket toward %s: %w", target, err)}
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr == nil || addr.IP == nil {
		return Result{Err: errors.New("socket has no local udp address")}
	}
	if addr.IP.IsUnspecified() {
		return Result{Err: errors.New("kernel did not bind a source address")}
	}
	return Result{Addr: addr.IP.String()}
}

// ResolveOrLoopback returns the LAN address, or Loopback if it cannot be found.
// Use this when the address is only displayed (e.g., in a URL banner).
func (r *Resolver) ResolveOrLoopback(ctx context.Context) string {
	res := r.Resolve(ctx)
	if !res.OK() {
		return Loopback
	}
	return res.Addr
}

var defaultResolver = &Resolver{}

// Resolve uses the default resolver.
func Resolve(ctx context.Context) Result {
	return defaultResolver.Resolve(ctx)
}

// ResolveOrLoopback uses the default resolver.
func ResolveOrLoopback(ctx context.Context) string {
	return defaultResolver.ResolveOrLoopback(ctx)
}

// URL builds the http URL for addr and port.
func URL(addr string, port int) string {
	return "http://" + net.JoinHostPort(addr, strconv.Itoa(port))
}
