// Package rpcserver is the TCP sync server: an accept loop feeding a
// worker pool that serves one request/response exchange per
// connection (spec §4.6).
package rpcserver

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"sniffdognode/internal/peerinfo"
	"sniffdognode/internal/searchresult"
	"sniffdognode/internal/wire"
)

// acceptPollInterval bounds how long Accept blocks before the accept
// loop rechecks its stop flag, so shutdown doesn't wait on a pending
// connection that never arrives.
const acceptPollInterval = time.Second

// NodeHandlers is the subset of *node.Node the server dispatches
// opcodes to.
type NodeHandlers interface {
	Handshake(peer peerinfo.Info) error
	ResultsNotIn(known []searchresult.Hash) ([]searchresult.Result, error)
	PeersForSync() ([]peerinfo.Info, error)
}

// Server accepts connections on a listener and serves each with a
// bounded worker pool.
type Server struct {
	listener *net.TCPListener
	node     NodeHandlers
	logger   *log.Logger
	workers  int

	mu      sync.Mutex
	queue   []net.Conn
	cond    *sync.Cond
	stopped bool

	wg sync.WaitGroup
}

// New binds a TCP listener on addr and builds a Server with the given
// worker pool size over node.
func New(addr string, workers int, node NodeHandlers, logger *log.Logger) (*Server, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{listener: listener, node: node, logger: logger, workers: workers}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Addr returns the bound listener address, useful when addr passed to
// New used an ephemeral port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run starts the accept loop and worker pool; it blocks until Stop is
// called from another goroutine.
func (s *Server) Run() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	s.acceptLoop()
	s.wg.Wait()
}

// Stop halts the accept loop and wakes every idle worker so they can
// observe the stopped flag and exit.
func (s *Server) Stop() {
	s.listener.Close()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *Server) acceptLoop() {
	for {
		s.listener.SetDeadline(time.Now().Add(acceptPollInterval))
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isStopped() {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Printf("rpcserver: accept: %v", err)
			continue
		}
		s.enqueue(conn)
	}
}

func (s *Server) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Server) enqueue(conn net.Conn) {
	s.mu.Lock()
	s.queue = append(s.queue, conn)
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *Server) dequeue() (net.Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.stopped {
		s.cond.Wait()
	}
	if len(s.queue) == 0 {
		return nil, false
	}
	conn := s.queue[0]
	s.queue = s.queue[1:]
	return conn, true
}

func (s *Server) worker() {
	defer s.wg.Done()
	for {
		conn, ok := s.dequeue()
		if !ok {
			return
		}
		s.serveOne(conn)
	}
}

func (s *Server) serveOne(conn net.Conn) {
	defer conn.Close()

	raw, err := wire.ReadMessage(conn)
	if err != nil {
		s.logger.Printf("rpcserver: read: %v", err)
		return
	}

	req, err := wire.DecodeRequest(raw)
	if err != nil {
		s.writeError(conn, 0, err.Error())
		return
	}

	resp := s.dispatch(req)
	data, err := wire.EncodeResponse(resp)
	if err != nil {
		s.logger.Printf("rpcserver: encode response: %v", err)
		return
	}
	if _, err := conn.Write(data); err != nil {
		s.logger.Printf("rpcserver: write: %v", err)
	}
}

func (s *Server) writeError(conn net.Conn, funCode wire.FunCode, message string) {
	data, err := wire.EncodeResponse(wire.Response{Op: wire.OpError, FunCode: funCode, Payload: message})
	if err != nil {
		s.logger.Printf("rpcserver: encode error response: %v", err)
		return
	}
	conn.Write(data)
}

func (s *Server) dispatch(req wire.Request) wire.Response {
	switch req.FunCode {
	case wire.FunHandshake:
		return s.handleHandshake(req)
	case wire.FunGetResultsForSync:
		return s.handleGetResultsForSync(req)
	case wire.FunGetPeersForSync:
		return s.handleGetPeersForSync(req)
	default:
		err := wire.UnknownOpcodeError(req.FunCode)
		return wire.Response{Op: wire.OpError, FunCode: req.FunCode, Payload: err.Message}
	}
}

func (s *Server) handleHandshake(req wire.Request) wire.Response {
	if len(req.Args) != 1 {
		return handlerError(req.FunCode, "handshake requires exactly one argument")
	}
	peer, ok := req.Args[0].(*peerinfo.Info)
	if !ok {
		return handlerError(req.FunCode, "handshake argument must be a PeerInfo")
	}
	if err := s.node.Handshake(*peer); err != nil {
		return handlerError(req.FunCode, err.Error())
	}
	return wire.Response{Op: wire.OpReturn, FunCode: req.FunCode, Payload: nil}
}

func (s *Server) handleGetResultsForSync(req wire.Request) wire.Response {
	known, err := decodeHashArg(req.Args)
	if err != nil {
		return handlerError(req.FunCode, err.Error())
	}
	results, err := s.node.ResultsNotIn(known)
	if err != nil {
		return handlerError(req.FunCode, err.Error())
	}
	return wire.Response{Op: wire.OpReturn, FunCode: req.FunCode, Payload: toResultPointers(results)}
}

func (s *Server) handleGetPeersForSync(req wire.Request) wire.Response {
	peers, err := s.node.PeersForSync()
	if err != nil {
		return handlerError(req.FunCode, err.Error())
	}
	return wire.Response{Op: wire.OpReturn, FunCode: req.FunCode, Payload: toPeerPointers(peers)}
}

func handlerError(funCode wire.FunCode, message string) wire.Response {
	return wire.Response{Op: wire.OpError, FunCode: funCode, Payload: fmt.Sprintf("Function %d: %s", funCode, message)}
}

func decodeHashArg(args []interface{}) ([]searchresult.Hash, error) {
	if len(args) == 0 {
		return nil, nil
	}
	raw, ok := args[0].([]interface{})
	if !ok {
		return nil, errors.New("argument must be a list of hashes")
	}
	out := make([]searchresult.Hash, 0, len(raw))
	for _, v := range raw {
		b, ok := v.([]byte)
		if !ok || len(b) != searchresult.HashSize {
			return nil, errors.New("each hash must be a 32-byte value")
		}
		var h searchresult.Hash
		copy(h[:], b)
		out = append(out, h)
	}
	return out, nil
}

func toResultPointers(results []searchresult.Result) []interface{} {
	out := make([]interface{}, 0, len(results))
	for i := range results {
		out = append(out, &results[i])
	}
	return out
}

func toPeerPointers(peers []peerinfo.Info) []interface{} {
	out := make([]interface{}, 0, len(peers))
	for i := range peers {
		out = append(out, &peers[i])
	}
	return out
}
