package node

import (
	"context"
	"testing"

	"sniffdognode/internal/peerinfo"
	"sniffdognode/internal/searchresult"
)

type fakeStore struct {
	results []searchresult.Result
	synced  []searchresult.Result
	bumped  map[searchresult.Hash]int64
}

func (s *fakeStore) All() ([]searchresult.Result, error) { return s.results, nil }

func (s *fakeStore) Hashes() ([]searchresult.Hash, error) {
	var out []searchresult.Hash
	for _, r := range s.results {
		out = append(out, r.Hash)
	}
	return out, nil
}

func (s *fakeStore) ResultsNotIn(known []searchresult.Hash) ([]searchresult.Result, error) {
	knownSet := make(map[searchresult.Hash]struct{})
	for _, h := range known {
		knownSet[h] = struct{}{}
	}
	var out []searchresult.Result
	for _, r := range s.results {
		if _, ok := knownSet[r.Hash]; !ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) InsertNewResult(title, url, description, contentType string) (searchresult.Result, error) {
	r := searchresult.New(title, url, description, contentType)
	s.results = append(s.results, r)
	return r, nil
}

func (s *fakeStore) SyncFrom(candidates []searchresult.Result) error {
	s.synced = append(s.synced, candidates...)
	return nil
}

func (s *fakeStore) BumpScore(hash searchresult.Hash, delta int64) error {
	if s.bumped == nil {
		s.bumped = make(map[searchresult.Hash]int64)
	}
	s.bumped[hash] += delta
	return nil
}

type fakeDirectory struct {
	peers  []peerinfo.Info
	synced []peerinfo.Info
}

func (d *fakeDirectory) All() ([]peerinfo.Info, error) { return d.peers, nil }

func (d *fakeDirectory) Addresses() ([]string, error) {
	var out []string
	for _, p := range d.peers {
		out = append(out, p.Address)
	}
	return out, nil
}

func (d *fakeDirectory) SyncFrom(candidates []peerinfo.Info) error {
	d.synced = append(d.synced, candidates...)
	return nil
}

type fakeFederator struct {
	results []searchresult.Result
}

func (f *fakeFederator) Search(ctx context.Context, query string) ([]searchresult.Result, error) {
	return f.results, nil
}

func TestHandshakeMergesIntoDirectory(t *testing.T) {
	dir := &fakeDirectory{}
	n := New("node-1", true, &fakeStore{}, dir, &fakeFederator{})

	peer := peerinfo.Info{Address: "tcp://peer:1"}
	if err := n.Handshake(peer); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if len(dir.synced) != 1 || dir.synced[0].Address != "tcp://peer:1" {
		t.Fatalf("expected handshake to merge peer, got %+v", dir.synced)
	}
}

func TestResultsNotIn(t *testing.T) {
	a := searchresult.New("A", "http://a/", "desc", "text/html")
	b := searchresult.New("B", "http://b/", "desc", "text/html")
	store := &fakeStore{results: []searchresult.Result{a, b}}
	n := New("node-1", false, store, &fakeDirectory{}, &fakeFederator{})

	missing, err := n.ResultsNotIn([]searchresult.Hash{a.Hash})
	if err != nil {
		t.Fatalf("results not in: %v", err)
	}
	if len(missing) != 1 || !missing[0].Equal(b) {
		t.Fatalf("expected only b missing, got %+v", missing)
	}
}

func TestPeersForSync(t *testing.T) {
	dir := &fakeDirectory{peers: []peerinfo.Info{{Address: "tcp://p:1"}}}
	n := New("node-1", false, &fakeStore{}, dir, &fakeFederator{})

	peers, err := n.PeersForSync()
	if err != nil {
		t.Fatalf("peers for sync: %v", err)
	}
	if len(peers) != 1 {
		t.Fatalf("expected 1 peer, got %d", len(peers))
	}
}

func TestSearchDelegatesToFederator(t *testing.T) {
	want := searchresult.New("Found", "http://found/", "desc", "text/html")
	n := New("node-1", false, &fakeStore{}, &fakeDirectory{}, &fakeFederator{results: []searchresult.Result{want}})

	got, err := n.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || !got[0].Equal(want) {
		t.Fatalf("unexpected search results: %+v", got)
	}
}

func TestDiscoverable(t *testing.T) {
	n := New("node-1", true, &fakeStore{}, &fakeDirectory{}, &fakeFederator{})
	if !n.Discoverable() {
		t.Fatalf("expected discoverable true")
	}
}
