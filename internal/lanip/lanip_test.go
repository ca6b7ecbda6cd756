package lanip

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn only answers LocalAddr and Close.
type fakeConn struct {
	net.Conn
	local  net.Addr
	closed bool
}

func (c *fakeConn) LocalAddr() net.Addr { return c.local }
func (c *fakeConn) Close() error        { c.closed = true; return nil }

func TestResolveNoNetwork(t *testing.T) {
	r := &Resolver{Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		return nil, errors.New("network is unreachable")
	}}

	res := r.Resolve(context.Background())
	require.Error(t, res.Err)
	assert.False(t, res.OK())
	assert.Empty(t, res.Addr)
	assert.Contains(t, res.Err.Error(), "network is unreachable")

	assert.Equal(t, Loopback, r.ResolveOrLoopback(context.Background()))
}

func TestResolveUsesLocalAddr(t *testing.T) {
	conn := &fakeConn{local: &net.UDPAddr{IP: net.ParseIP("192.168.1.42"), Port: 51234}}
	var gotNetwork, gotAddress string
	r := &Resolver{Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		gotNetwork, gotAddress = network, address
		return conn, nil
	}}

	res := r.Resolve(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, "192.168.1.42", res.Addr)
	assert.Equal(t, "udp", gotNetwork)
	assert.Equal(t, Target, gotAddress)
	assert.True(t, conn.closed, "socket should be closed after lookup")
}

func TestResolveUnspecifiedAddr(t *testing.T) {
	conn := &fakeConn{local: &net.UDPAddr{IP: net.IPv4zero}}
	r := &Resolver{Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		return conn, nil
	}}

	assert.Equal(t, Loopback, r.ResolveOrLoopback(context.Background()))
}

func TestResolveNonUDPAddr(t *testing.T) {
	conn := &fakeConn{local: &net.TCPAddr{IP: net.ParseIP("10.0.0.2")}}
	r := &Resolver{Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		return conn, nil
	}}

	res := r.Resolve(context.Background())
	assert.Error(t, res.Err)
}

func TestResolveCustomTarget(t *testing.T) {
	var gotAddress string
	r := &Resolver{
		Target: "1.2.3.4:1",
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			gotAddress = address
			return nil, errors.New("no route")
		},
	}
	r.Resolve(context.Background())
	assert.Equal(t, "1.2.3.4:1", gotAddress)
}

func TestResolveReal(t *testing.T) {
	res := Resolve(context.Background())
	if !res.OK() {
		t.Skipf("no default route: %v", res.Err)
	}
	ip := net.ParseIP(res.Addr)
	require.NotNil(t, ip, "expected an IP, got %q", res.Addr)
	if ip.To4() != nil {
		assert.Equal(t, ip.To4().String(), res.Addr)
	}
}

func TestURL(t *testing.T) {
	assert.Equal(t, "http://192.168.1.42:8000", URL("192.168.1.42", 8000))
	assert.Equal(t, "http://127.0.0.1:8080", URL(Loopback, 8080))
	assert.Equal(t, "http://[fe80::1]:8000", URL("fe80::1", 8000))
}
