// Package node implements the local node: the single-mutex façade over
// the result store, peer directory, and federator that both the RPC
// server and any local UI call into (spec §4.5).
package node

import (
	"context"
	"sync"

	"sniffdognode/internal/peerinfo"
	"sniffdognode/internal/searchresult"
)

// Store is the subset of *searchstore.Store the node depends on.
type Store interface {
	All() ([]searchresult.Result, error)
	Hashes() ([]searchresult.Hash, error)
	ResultsNotIn(known []searchresult.Hash) ([]searchresult.Result, error)
	InsertNewResult(title, url, description, contentType string) (searchresult.Result, error)
	SyncFrom(candidates []searchresult.Result) error
	BumpScore(hash searchresult.Hash, delta int64) error
}

// Directory is the subset of *peerdir.Directory the node depends on.
type Directory interface {
	All() ([]peerinfo.Info, error)
	Addresses() ([]string, error)
	SyncFrom(candidates []peerinfo.Info) error
}

// Federator is the subset of *federator.Federator the node depends on.
type Federator interface {
	Search(ctx context.Context, query string) ([]searchresult.Result, error)
}

// Node is the per-process node state. Every method that calls the store
// or directory directly takes a single mutex. Search is the exception:
// it delegates to the federator, which reads and writes the store
// without taking this mutex, so federated searches are not serialized
// with the other operations.
type Node struct {
	mu sync.Mutex

	id           string
	discoverable bool

	store      Store
	directory  Directory
	federator  Federator
}

// New builds a Node with id as its self-reported identity (advertised
// during handshake) and discoverable controlling whether the sync
// worker should announce this node to peers it contacts.
func New(id string, discoverable bool, store Store, directory Directory, fed Federator) *Node {
	return &Node{id: id, discoverable: discoverable, store: store, directory: directory, federator: fed}
}

// ID returns this node's self-reported identity.
func (n *Node) ID() string {
	return n.id
}

// Discoverable reports whether this node announces itself to peers it
// syncs with (spec §4.7's conditional HANDSHAKE step).
func (n *Node) Discoverable() bool {
	return n.discoverable
}

// Handshake records a peer's self-announcement. Per spec §4.6 the
// handshake payload is the announcing peer's own PeerInfo; it is
// merged into the directory exactly like any other sync_from.
func (n *Node) Handshake(peer peerinfo.Info) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.directory.SyncFrom([]peerinfo.Info{peer})
}

// ResultsNotIn answers GET_RESULTS_FOR_SYNC: every stored result whose
// hash isn't in known.
func (n *Node) ResultsNotIn(known []searchresult.Hash) ([]searchresult.Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.store.ResultsNotIn(known)
}

// PeersForSync answers GET_PEERS_FOR_SYNC: the full peer directory.
func (n *Node) PeersForSync() ([]peerinfo.Info, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.directory.All()
}

// Search answers a local or remote search query via the federator. The
// federator may block on outbound engine HTTP scrapes (spec §4.4), so
// this does not take n.mu: no lock is held across a blocking network
// operation on the outbound path (spec §5), matching the original's
// NodeManager.search, which takes no lock at all.
func (n *Node) Search(ctx context.Context, query string) ([]searchresult.Result, error) {
	return n.federator.Search(ctx, query)
}

// InsertNewResult stores a freshly discovered result (e.g. submitted
// from a local UI, not from peer sync).
func (n *Node) InsertNewResult(title, url, description, contentType string) (searchresult.Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.store.InsertNewResult(title, url, description, contentType)
}

// BumpScore adjusts the stored score for hash, e.g. when a local UI
// records that a result was selected.
func (n *Node) BumpScore(hash searchresult.Hash, delta int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.store.BumpScore(hash, delta)
}

// SyncResultsFrom merges results fetched from a peer during a sync
// round (spec §4.7's GET_RESULTS_FOR_SYNC response handling).
func (n *Node) SyncResultsFrom(results []searchresult.Result) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.store.SyncFrom(results)
}

// SyncPeersFrom merges peers fetched from a peer during a sync round
// (spec §4.7's GET_PEERS_FOR_SYNC response handling).
func (n *Node) SyncPeersFrom(peers []peerinfo.Info) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.directory.SyncFrom(peers)
}

// KnownHashes returns every locally stored result's hash, used by the
// sync worker to ask a peer "what do you have that I don't".
func (n *Node) KnownHashes() ([]searchresult.Hash, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.store.Hashes()
}

// KnownPeerAddresses returns every known peer's address.
func (n *Node) KnownPeerAddresses() ([]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.directory.Addresses()
}
