// Package syncworker runs periodic gossip rounds against the
// best-ranked peers, updating each peer's rank from the outcome (spec
// §4.7).
package syncworker

import (
	"errors"
	"log"
	"math"
	"time"

	"sniffdognode/internal/peerinfo"
	"sniffdognode/internal/rpcclient"
	"sniffdognode/internal/searchresult"
	"sniffdognode/internal/wire"
)

// DefaultFanOut is the number of best-ranked peers contacted per round
// when the node's configuration doesn't override it (spec §9).
const DefaultFanOut = 7

// protocolErrorPenalty and connectionErrorPenalty are added to a
// peer's rank on the corresponding failure kind (spec §4.7/§7).
const (
	protocolErrorPenalty   = 100
	connectionErrorPenalty = 1000
)

// Node is the subset of *node.Node the worker needs.
type Node interface {
	ID() string
	Discoverable() bool
	KnownHashes() ([]searchresult.Hash, error)
	SyncResultsFrom(results []searchresult.Result) error
	SyncPeersFrom(peers []peerinfo.Info) error
}

// Directory is the subset of *peerdir.Directory the worker needs.
type Directory interface {
	All() ([]peerinfo.Info, error)
	UpdateRank(address string, rank int64) error
}

// dialer abstracts *rpcclient.Client construction so tests can stub
// out the network.
type dialer interface {
	Call(funCode wire.FunCode, args ...interface{}) (wire.Response, error)
	LastDownloadSpeedMBs() float64
}

// Worker runs sync rounds on a fixed interval until stopped.
type Worker struct {
	node      Node
	directory Directory
	logger    *log.Logger
	fanOut    int
	interval  time.Duration

	dial func(peerinfo.Info) (dialer, error)

	stop chan struct{}
}

// New builds a Worker. fanOut <= 0 falls back to DefaultFanOut. A nil
// logger defaults to log.Default().
func New(node Node, directory Directory, interval time.Duration, fanOut int, logger *log.Logger) *Worker {
	if fanOut <= 0 {
		fanOut = DefaultFanOut
	}
	if logger == nil {
		logger = log.Default()
	}
	w := &Worker{
		node:      node,
		directory: directory,
		logger:    logger,
		fanOut:    fanOut,
		interval:  interval,
		stop:      make(chan struct{}),
	}
	w.dial = func(peer peerinfo.Info) (dialer, error) {
		return rpcclient.New(peer)
	}
	return w
}

// Run blocks, executing one sync round every interval, until Stop is
// called.
func (w *Worker) Run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// Stop halts Run after its current tick, if any, completes.
func (w *Worker) Stop() {
	close(w.stop)
}

// RunOnce executes a single sync round against up to fanOut
// best-ranked peers.
func (w *Worker) RunOnce() {
	peers, err := w.directory.All()
	if err != nil {
		w.logger.Printf("syncworker: list peers: %v", err)
		return
	}
	if len(peers) > w.fanOut {
		peers = peers[:w.fanOut]
	}

	for _, peer := range peers {
		delta := w.syncWithPeer(peer)
		rank := saturatingAdd(peer.Rank, delta)
		if err := w.directory.UpdateRank(peer.Address, rank); err != nil {
			w.logger.Printf("syncworker: update rank for %s: %v", peer.Address, err)
		}
	}
}

// syncWithPeer performs one peer's HANDSHAKE (if this node is
// discoverable), GET_RESULTS_FOR_SYNC, and GET_PEERS_FOR_SYNC sequence,
// returning the rank delta earned by the round (spec §4.7).
func (w *Worker) syncWithPeer(peer peerinfo.Info) int64 {
	client, err := w.dial(peer)
	if err != nil {
		w.logger.Printf("syncworker: dial %s: %v", peer.Address, err)
		return connectionErrorPenalty
	}

	if w.node.Discoverable() {
		handshakeResp, err := client.Call(wire.FunHandshake, &peerinfo.Info{Address: w.node.ID()})
		if err != nil {
			return penaltyFor(err)
		}
		if handshakeResp.Op == wire.OpError {
			return protocolErrorPenalty
		}
	}

	known, err := w.node.KnownHashes()
	if err != nil {
		w.logger.Printf("syncworker: known hashes: %v", err)
		return 0
	}
	hashArgs := make([]interface{}, len(known))
	for i, h := range known {
		hashArgs[i] = h[:]
	}

	resultsResp, err := client.Call(wire.FunGetResultsForSync, hashArgs)
	if err != nil {
		return penaltyFor(err)
	}
	if resultsResp.Op == wire.OpError {
		return protocolErrorPenalty
	}
	if err := w.node.SyncResultsFrom(decodeResults(resultsResp.Payload)); err != nil {
		w.logger.Printf("syncworker: sync results from %s: %v", peer.Address, err)
	}

	peersResp, err := client.Call(wire.FunGetPeersForSync)
	if err != nil {
		return penaltyFor(err)
	}
	if peersResp.Op == wire.OpError {
		return protocolErrorPenalty
	}
	if err := w.node.SyncPeersFrom(decodePeers(peersResp.Payload)); err != nil {
		w.logger.Printf("syncworker: sync peers from %s: %v", peer.Address, err)
	}

	speed := client.LastDownloadSpeedMBs()
	return -int64(speed)
}

func penaltyFor(err error) int64 {
	var connErr *rpcclient.ConnectionError
	if errors.As(err, &connErr) {
		return connectionErrorPenalty
	}
	var protoErr *wire.ProtocolError
	if errors.As(err, &protoErr) {
		return protocolErrorPenalty
	}
	return 0
}

func decodeResults(payload interface{}) []searchresult.Result {
	items, ok := payload.([]interface{})
	if !ok {
		return nil
	}
	out := make([]searchresult.Result, 0, len(items))
	for _, item := range items {
		if r, ok := item.(*searchresult.Result); ok {
			out = append(out, *r)
		}
	}
	return out
}

func decodePeers(payload interface{}) []peerinfo.Info {
	items, ok := payload.([]interface{})
	if !ok {
		return nil
	}
	out := make([]peerinfo.Info, 0, len(items))
	for _, item := range items {
		if p, ok := item.(*peerinfo.Info); ok {
			out = append(out, *p)
		}
	}
	return out
}

// saturatingAdd computes a+b, clamping to the int64 range instead of
// wrapping on overflow (spec §9: the original had no such saturation).
func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if b > 0 && sum < a {
		return math.MaxInt64
	}
	if b < 0 && sum > a {
		return math.MinInt64
	}
	return sum
}
