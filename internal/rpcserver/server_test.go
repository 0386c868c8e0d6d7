package rpcserver

import (
	"net"
	"testing"
	"time"

	"sniffdognode/internal/peerinfo"
	"sniffdognode/internal/searchresult"
	"sniffdognode/internal/wire"
)

type fakeNode struct {
	handshakeCalls []peerinfo.Info
	results        []searchresult.Result
	peers          []peerinfo.Info
}

func (n *fakeNode) Handshake(peer peerinfo.Info) error {
	n.handshakeCalls = append(n.handshakeCalls, peer)
	return nil
}

func (n *fakeNode) ResultsNotIn(known []searchresult.Hash) ([]searchresult.Result, error) {
	knownSet := make(map[searchresult.Hash]struct{})
	for _, h := range known {
		knownSet[h] = struct{}{}
	}
	var out []searchresult.Result
	for _, r := range n.results {
		if _, ok := knownSet[r.Hash]; !ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (n *fakeNode) PeersForSync() ([]peerinfo.Info, error) {
	return n.peers, nil
}

func startTestServer(t *testing.T, node NodeHandlers) *Server {
	t.Helper()
	srv, err := New("127.0.0.1:0", 2, node, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	go srv.Run()
	t.Cleanup(srv.Stop)
	return srv
}

func call(t *testing.T, addr net.Addr, req wire.Request) wire.Response {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	data, err := wire.EncodeRequest(req)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("write request: %v", err)
	}
	conn.(*net.TCPConn).CloseWrite()

	raw, err := wire.ReadMessage(conn)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	resp, err := wire.DecodeResponse(raw)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestServerGetPeersForSync(t *testing.T) {
	node := &fakeNode{peers: []peerinfo.Info{{Address: "tcp://p:1", Rank: 5}}}
	srv := startTestServer(t, node)

	resp := call(t, srv.Addr(), wire.Request{Op: wire.OpCall, FunCode: wire.FunGetPeersForSync, Args: nil})
	if resp.Op != wire.OpReturn {
		t.Fatalf("expected OpReturn, got %v (payload %v)", resp.Op, resp.Payload)
	}
	peers, ok := resp.Payload.([]interface{})
	if !ok || len(peers) != 1 {
		t.Fatalf("expected 1 peer in payload, got %#v", resp.Payload)
	}
}

func TestServerGetResultsForSync(t *testing.T) {
	a := searchresult.New("A", "http://a/", "desc", "text/html")
	b := searchresult.New("B", "http://b/", "desc", "text/html")
	node := &fakeNode{results: []searchresult.Result{a, b}}
	srv := startTestServer(t, node)

	resp := call(t, srv.Addr(), wire.Request{
		Op:      wire.OpCall,
		FunCode: wire.FunGetResultsForSync,
		Args:    []interface{}{[]interface{}{a.Hash[:]}},
	})
	if resp.Op != wire.OpReturn {
		t.Fatalf("expected OpReturn, got %v (payload %v)", resp.Op, resp.Payload)
	}
	results, ok := resp.Payload.([]interface{})
	if !ok || len(results) != 1 {
		t.Fatalf("expected 1 result not known by caller, got %#v", resp.Payload)
	}
}

func TestServerUnknownOpcode(t *testing.T) {
	node := &fakeNode{}
	srv := startTestServer(t, node)

	resp := call(t, srv.Addr(), wire.Request{Op: wire.OpCall, FunCode: 999, Args: nil})
	if resp.Op != wire.OpError {
		t.Fatalf("expected OpError, got %v", resp.Op)
	}
	msg, ok := resp.Payload.(string)
	if !ok || msg != "Function 999 not exists" {
		t.Fatalf("unexpected error payload: %#v", resp.Payload)
	}
}

func TestServerHandshake(t *testing.T) {
	node := &fakeNode{}
	srv := startTestServer(t, node)

	peer := peerinfo.Info{Address: "tcp://caller:1"}
	resp := call(t, srv.Addr(), wire.Request{Op: wire.OpCall, FunCode: wire.FunHandshake, Args: []interface{}{&peer}})
	if resp.Op != wire.OpReturn {
		t.Fatalf("expected OpReturn, got %v (payload %v)", resp.Op, resp.Payload)
	}
	if len(node.handshakeCalls) != 1 || node.handshakeCalls[0].Address != "tcp://caller:1" {
		t.Fatalf("expected handshake recorded, got %+v", node.handshakeCalls)
	}
}
