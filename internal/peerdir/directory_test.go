package peerdir

import (
	"path/filepath"
	"testing"

	"sniffdognode/internal/peerinfo"
)

func openTestDirectory(t *testing.T) *Directory {
	t.Helper()
	path := filepath.Join(t.TempDir(), "peers.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestSeedKnownPeersAndAllSortedByRank(t *testing.T) {
	d := openTestDirectory(t)
	known := []peerinfo.Info{
		{Address: "tcp://b:2", Rank: 5},
		{Address: "tcp://a:1", Rank: -3},
		{Address: "tcp://c:3", Rank: 0},
	}
	if err := d.SeedKnownPeers(known); err != nil {
		t.Fatalf("seed: %v", err)
	}

	all, err := d.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 peers, got %d", len(all))
	}
	if all[0].Address != "tcp://a:1" || all[1].Address != "tcp://c:3" || all[2].Address != "tcp://b:2" {
		t.Fatalf("expected rank-ascending order, got %+v", all)
	}
}

func TestSeedKnownPeersIdempotent(t *testing.T) {
	d := openTestDirectory(t)
	p := peerinfo.Info{Address: "tcp://x:1", Rank: 10}
	if err := d.SeedKnownPeers([]peerinfo.Info{p}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := d.SeedKnownPeers([]peerinfo.Info{p}); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	all, err := d.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected single entry after reseed, got %d", len(all))
	}
}

func TestSyncFromNeverOverwritesExistingRank(t *testing.T) {
	d := openTestDirectory(t)
	p := peerinfo.Info{Address: "tcp://known:1", Rank: -50}
	if err := d.SeedKnownPeers([]peerinfo.Info{p}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	remoteClaim := peerinfo.Info{Address: "tcp://known:1", Rank: 9999}
	if err := d.SyncFrom([]peerinfo.Info{remoteClaim}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	all, err := d.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 || all[0].Rank != -50 {
		t.Fatalf("expected locally measured rank preserved, got %+v", all)
	}
}

func TestSyncFromAddsUnknownPeers(t *testing.T) {
	d := openTestDirectory(t)
	newcomer := peerinfo.Info{Address: "tcp://new:1", Rank: 0, ProxyType: peerinfo.ProxySOCKS5, ProxyAddress: "tcp://proxy:9"}
	if err := d.SyncFrom([]peerinfo.Info{newcomer}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	addrs, err := d.Addresses()
	if err != nil {
		t.Fatalf("addresses: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != "tcp://new:1" {
		t.Fatalf("expected newcomer added, got %v", addrs)
	}
}

func TestUpdateRank(t *testing.T) {
	d := openTestDirectory(t)
	p := peerinfo.Info{Address: "tcp://measured:1", Rank: 0}
	if err := d.SeedKnownPeers([]peerinfo.Info{p}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := d.UpdateRank("tcp://measured:1", -12); err != nil {
		t.Fatalf("update rank: %v", err)
	}

	all, err := d.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 || all[0].Rank != -12 {
		t.Fatalf("expected updated rank -12, got %+v", all)
	}
}

func TestUpdateRankUnknownPeerNoOp(t *testing.T) {
	d := openTestDirectory(t)
	if err := d.UpdateRank("tcp://ghost:1", 5); err != nil {
		t.Fatalf("expected no error for unknown peer, got %v", err)
	}
}
