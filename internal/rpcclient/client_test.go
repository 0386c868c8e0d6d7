package rpcclient

import (
	"testing"

	"sniffdognode/internal/peerinfo"
	"sniffdognode/internal/rpcserver"
	"sniffdognode/internal/searchresult"
	"sniffdognode/internal/wire"
)

type fakeNode struct {
	peers []peerinfo.Info
}

func (n *fakeNode) Handshake(peer peerinfo.Info) error { return nil }

func (n *fakeNode) ResultsNotIn(known []searchresult.Hash) ([]searchresult.Result, error) {
	return nil, nil
}

func (n *fakeNode) PeersForSync() ([]peerinfo.Info, error) {
	return n.peers, nil
}

func startServer(t *testing.T) *rpcserver.Server {
	t.Helper()
	srv, err := rpcserver.New("127.0.0.1:0", 2, &fakeNode{
		peers: []peerinfo.Info{{Address: "tcp://p:1", Rank: 3}},
	}, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	go srv.Run()
	t.Cleanup(srv.Stop)
	return srv
}

func TestClientCallDirect(t *testing.T) {
	srv := startServer(t)

	client, err := New(peerinfo.Info{Address: "tcp://" + srv.Addr().String()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Call(wire.FunGetPeersForSync)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.Op != wire.OpReturn {
		t.Fatalf("expected OpReturn, got %v", resp.Op)
	}
	peers, ok := resp.Payload.([]interface{})
	if !ok || len(peers) != 1 {
		t.Fatalf("expected 1 peer in payload, got %#v", resp.Payload)
	}
}

func TestClientCallUnreachablePeerIsConnectionError(t *testing.T) {
	client, err := New(peerinfo.Info{Address: "tcp://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Call(wire.FunGetPeersForSync)
	if err == nil {
		t.Fatalf("expected connection error dialing a closed port")
	}
	var connErr *ConnectionError
	if ce, ok := err.(*ConnectionError); ok {
		connErr = ce
	}
	if connErr == nil {
		t.Fatalf("expected *ConnectionError, got %T", err)
	}
}

func TestStripScheme(t *testing.T) {
	if got := stripScheme("tcp://host:1234"); got != "host:1234" {
		t.Fatalf("unexpected strip result: %q", got)
	}
	if got := stripScheme("host:1234"); got != "host:1234" {
		t.Fatalf("expected no-op for schemeless address, got %q", got)
	}
}
