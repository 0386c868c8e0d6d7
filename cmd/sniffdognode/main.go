// cmd/sniffdognode is the node runner: it reads a configuration file,
// wires up the result store, peer directory, federator, local node,
// sync server, and sync worker, and runs until interrupted (spec §6,
// §10).
//
// Example:
//
//	./sniffdognode -c /etc/sniffdognode/config.ini
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"sniffdognode/internal/config"
	"sniffdognode/internal/engine"
	"sniffdognode/internal/federator"
	"sniffdognode/internal/node"
	"sniffdognode/internal/peerdir"
	"sniffdognode/internal/rpcserver"
	"sniffdognode/internal/searchstore"
	"sniffdognode/internal/statusapi"
	"sniffdognode/internal/syncworker"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "c", "./config.ini", "path to the node's configuration file")
	flag.StringVar(&configFile, "configfile", "./config.ini", "path to the node's configuration file")
	flag.Parse()

	if err := run(configFile); err != nil {
		log.Fatalf("sniffdognode: %v", err)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	store, err := searchstore.Open(cfg.SearchesDatabasePath)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer store.Close()

	directory, err := peerdir.Open(cfg.PeerDatabasePath)
	if err != nil {
		return fmt.Errorf("open peer directory: %w", err)
	}
	defer directory.Close()

	if err := directory.SeedKnownPeers(cfg.KnownPeers); err != nil {
		return fmt.Errorf("seed known peers: %w", err)
	}

	engines := make([]engine.Engine, 0, len(cfg.Engines))
	for _, descriptor := range cfg.Engines {
		engines = append(engines, engine.NewCSSEngine(descriptor, nil))
	}
	fed := federator.New(store, engines, cfg.MinimumSearchResultsThreshold,
		log.New(os.Stderr, "[federator] ", log.LstdFlags))

	n := node.New(cfg.SelfPeer.Address, cfg.NodeDiscoverable, store, directory, fed)

	rpcAddr := fmt.Sprintf("0.0.0.0:%d", cfg.PeerToPeerPort)
	syncSrv, err := rpcserver.New(rpcAddr, cfg.SyncWorkers, n,
		log.New(os.Stderr, "[sync-server] ", log.LstdFlags))
	if err != nil {
		return fmt.Errorf("start sync server: %w", err)
	}
	go syncSrv.Run()
	defer syncSrv.Stop()

	worker := syncworker.New(n, directory, cfg.PeerSyncFrequency, cfg.FanOut,
		log.New(os.Stderr, "[sync-worker] ", log.LstdFlags))
	go worker.Run()
	defer worker.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	diagLogger := log.New(os.Stderr, "[diagnostics-api] ", log.LstdFlags)
	router.Use(statusapi.Logger(diagLogger), statusapi.Recovery(diagLogger))
	statusapi.NewHandler(n, directory, store).Register(router)

	httpAddr := fmt.Sprintf("%s:%d", cfg.WebServiceHTTPHost, cfg.WebServiceHTTPPort)
	httpSrv := &http.Server{Addr: httpAddr, Handler: router}
	go func() {
		logger.Printf("diagnostics endpoint listening on %s", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("diagnostics server error: %v", err)
		}
	}()
	defer httpSrv.Close()

	logger.Printf("node %q listening for peer sync on %s", n.ID(), rpcAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Println("shutting down")
	return nil
}
