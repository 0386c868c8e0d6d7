// Package peerinfo defines the peer directory's record type.
package peerinfo

import "github.com/vmihailenco/msgpack/v5"

// ProxyType identifies how the sync worker should reach a peer.
type ProxyType int

const (
	ProxyNone ProxyType = iota
	ProxySOCKS4
	ProxySOCKS5
	ProxyHTTP
)

func (p ProxyType) String() string {
	switch p {
	case ProxyNone:
		return "none"
	case ProxySOCKS4:
		return "socks4"
	case ProxySOCKS5:
		return "socks5"
	case ProxyHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// ParseProxyType maps a config/wire string to a ProxyType.
func ParseProxyType(s string) ProxyType {
	switch s {
	case "socks4":
		return ProxySOCKS4
	case "socks5":
		return ProxySOCKS5
	case "http":
		return ProxyHTTP
	default:
		return ProxyNone
	}
}

// Info is one entry in the peer directory. Address is the identity key
// ("scheme://host:port"); Rank is a signed running cost where lower is
// better.
type Info struct {
	Address      string
	Rank         int64
	ProxyType    ProxyType
	ProxyAddress string
}

// HasProxy reports whether outbound calls to this peer should be
// tunneled through a proxy.
func (p Info) HasProxy() bool {
	return p.ProxyType != ProxyNone
}

// EncodeMsgpack serializes the peer as the 4-tuple
// (address, rank, proxy_type, proxy_address), matching the wire
// format's tag-2 extension body.
func (p Info) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeMulti(p.Address, p.Rank, int(p.ProxyType), p.ProxyAddress)
}

// DecodeMsgpack reads the 4-tuple written by EncodeMsgpack.
func (p *Info) DecodeMsgpack(dec *msgpack.Decoder) error {
	var proxyType int
	if err := dec.DecodeMulti(&p.Address, &p.Rank, &proxyType, &p.ProxyAddress); err != nil {
		return err
	}
	p.ProxyType = ProxyType(proxyType)
	return nil
}
