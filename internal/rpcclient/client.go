// Package rpcclient is the remote node proxy: dials a peer (directly or
// through a SOCKS5 proxy) and performs one request/response RPC
// exchange per call (spec §4.8).
package rpcclient

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"sniffdognode/internal/peerinfo"
	"sniffdognode/internal/wire"
)

// ConnectionError wraps any dial, write, or read failure against a
// remote peer (spec §7: connection-level errors carry a +1000 rank
// penalty in the sync worker).
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("rpcclient: %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// DialTimeout bounds how long Call waits to establish a connection.
const DialTimeout = 10 * time.Second

// Client performs RPC calls against one remote peer.
type Client struct {
	address   string
	dialer    proxy.Dialer
	lastSpeed float64 // MB/s measured by the most recent Call
}

// New builds a Client for peer, using peer.ProxyType/ProxyAddress to
// select a direct dialer or a proxy dialer. Both socks4 and socks5 peers
// are dialed with the SOCKS5 protocol; there is no SOCKS4 handshake. An
// http proxy type is passed to proxy.FromURL, which has no built-in
// "http" scheme, so New returns an error for such a peer.
func New(peer peerinfo.Info) (*Client, error) {
	dialer, err := dialerFor(peer)
	if err != nil {
		return nil, err
	}
	return &Client{address: peer.Address, dialer: dialer}, nil
}

func dialerFor(peer peerinfo.Info) (proxy.Dialer, error) {
	direct := &net.Dialer{Timeout: DialTimeout}
	if !peer.HasProxy() {
		return direct, nil
	}

	proxyAddr := stripScheme(peer.ProxyAddress)
	switch peer.ProxyType {
	case peerinfo.ProxySOCKS4, peerinfo.ProxySOCKS5:
		return proxy.SOCKS5("tcp", proxyAddr, nil, direct)
	case peerinfo.ProxyHTTP:
		return proxy.FromURL(&url.URL{Scheme: "http", Host: proxyAddr}, direct)
	default:
		return direct, nil
	}
}

// LastDownloadSpeedMBs returns the throughput measured by the most
// recent Call that read a complete response (whether or not it then
// decoded), in MiB per second: all response bytes divided by the time
// from writing the request to the end of the read. The first chunk is
// not excluded. Spec §4.7's rank formula subtracts this from a peer's
// rank on success.
func (c *Client) LastDownloadSpeedMBs() float64 {
	return c.lastSpeed
}

// Call performs one request/response exchange: dial, write the
// request, read the response, close. Dial, encode, write and read
// failures are wrapped in a *ConnectionError; a response that fails to
// decode is returned as the *wire.ProtocolError itself.
func (c *Client) Call(funCode wire.FunCode, args ...interface{}) (wire.Response, error) {
	target := stripScheme(c.address)

	conn, err := c.dialer.Dial("tcp", target)
	if err != nil {
		return wire.Response{}, &ConnectionError{Address: c.address, Err: err}
	}
	defer conn.Close()

	req := wire.Request{Op: wire.OpCall, FunCode: funCode, Args: args}
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return wire.Response{}, &ConnectionError{Address: c.address, Err: err}
	}

	start := time.Now()
	if _, err := conn.Write(data); err != nil {
		return wire.Response{}, &ConnectionError{Address: c.address, Err: err}
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.CloseWrite()
	}

	raw, err := wire.ReadMessage(conn)
	if err != nil {
		return wire.Response{}, &ConnectionError{Address: c.address, Err: err}
	}
	elapsed := time.Since(start).Seconds()
	c.lastSpeed = throughputMBs(len(raw), elapsed)

	resp, err := wire.DecodeResponse(raw)
	if err != nil {
		// Framing/decompression/tag failures are already a typed
		// *wire.ProtocolError (spec §7): a +100 rank penalty, not the
		// +1000 a connection failure earns.
		return wire.Response{}, err
	}
	return resp, nil
}

func throughputMBs(bytesRead int, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	megabytes := float64(bytesRead) / (1024 * 1024)
	return megabytes / elapsedSeconds
}

// stripScheme removes a "scheme://" prefix from address (e.g.
// "tcp://host:port") since the dialers, direct or proxy, expect a bare
// "host:port". It is applied to both the peer and the proxy address.
func stripScheme(address string) string {
	for i := 0; i+2 < len(address); i++ {
		if address[i] == ':' && address[i+1] == '/' && address[i+2] == '/' {
			return address[i+3:]
		}
	}
	return address
}
