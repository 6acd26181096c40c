package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/swapmarket/swapd/config"
	"github.com/swapmarket/swapd/internal/core/application"
	"github.com/swapmarket/swapd/internal/core/ports"
	sysclock "github.com/swapmarket/swapd/internal/infrastructure/clock"
	ledgerinmemory "github.com/swapmarket/swapd/internal/infrastructure/ledger/inmemory"
	rpcledger "github.com/swapmarket/swapd/internal/infrastructure/ledger/rpc"
	dbbadger "github.com/swapmarket/swapd/internal/infrastructure/storage/db/badger"
	"github.com/swapmarket/swapd/internal/infrastructure/storage/db/inmemory"
	httpinterface "github.com/swapmarket/swapd/internal/interfaces/http"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	repoManager, err := openRepoManager()
	if err != nil {
		log.WithError(err).Panic("error while opening offer store")
	}
	defer repoManager.Close()

	ledger, err := openLedger()
	if err != nil {
		log.WithError(err).Panic("error while connecting to the ledger")
	}

	settlementSvc, err := application.NewSettlementService(
		repoManager, ledger, sysclock.SystemClock{},
		config.GetSettlementAddress(), config.GetFeeSinkAddress(),
	)
	if err != nil {
		log.WithError(err).Panic("error while starting settlement service")
	}

	httpSvc, err := httpinterface.NewService(settlementSvc)
	if err != nil {
		log.WithError(err).Panic("error while starting http interface")
	}

	addr := fmt.Sprintf(":%d", config.GetInt(config.HTTPListeningPortKey))
	server := &http.Server{Addr: addr, Handler: httpSvc.Router()}

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("http interface is listening on %s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Debug("shutting down")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 10*time.Second,
		)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Panic("error while serving http interface")
	}
	log.Debug("exiting")
}

func openRepoManager() (ports.RepoManager, error) {
	if config.GetBool(config.NoPersistenceKey) {
		log.Warn("persistence is disabled, offers are kept in memory only")
		return inmemory.NewRepoManager(), nil
	}
	dbDir := config.GetDatadir() + "/" + config.DbLocation
	return dbbadger.NewRepoManager(dbDir, nil)
}

func openLedger() (ports.Ledger, error) {
	if endpoint := config.GetString(config.LedgerEndpointKey); endpoint != "" {
		return rpcledger.NewLedgerService(
			endpoint,
			config.GetDuration(config.LedgerRequestTimeoutKey),
			config.GetInt(config.LedgerRequestLimitKey),
		)
	}
	log.Warn("no ledger endpoint configured, using embedded in-memory ledger")
	return ledgerinmemory.NewLedger(), nil
}
