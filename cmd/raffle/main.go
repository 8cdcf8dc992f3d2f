package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/eigerco/raffle/internal/config"
	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/keeper"
	"github.com/eigerco/raffle/internal/oracle"
	"github.com/eigerco/raffle/internal/raffle"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/internal/store"
	"github.com/eigerco/raffle/internal/wallet"
	"github.com/eigerco/raffle/pkg/db"
	"github.com/eigerco/raffle/pkg/db/bolt"
	"github.com/eigerco/raffle/pkg/db/pebble"
	"github.com/eigerco/raffle/pkg/log"
	"github.com/eigerco/raffle/pkg/network/node"
)

// main runs a raffle node.
// go run ./cmd/raffle -config raffle.toml
// go run ./cmd/raffle -config raffle.toml -status
func main() {
	configPath := flag.String("config", "", "TOML config file, defaults are used when empty")
	logLevel := flag.String("log-level", "", "override log.level from the config")
	genKey := flag.String("genkey", "", "write a new node key to this file and exit")
	status := flag.Bool("status", false, "print the stored round as JSON and exit")
	flag.Parse()

	if *genKey != "" {
		pub, err := writeNewKey(*genKey)
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate key:", err)
			os.Exit(1)
		}
		fmt.Printf("public key: %s\naddress: %s\n", hex.EncodeToString(pub), crypto.AddressFromPublicKey(pub))
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := initLog(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *status {
		if err := printStatus(cfg.Store); err != nil {
			fmt.Fprintln(os.Stderr, "status:", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Root.Fatal().Err(err).Msg("raffle node failed")
	}
	log.Root.Info().Msg("raffle node stopped")
}

func initLog(cfg config.Log) error {
	level, err := log.ParseLogLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	typ, err := log.ParseLoggerType(cfg.Format)
	if err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	log.Init(log.Options{LogLevel: level, Type: typ})
	return nil
}

func openStore(cfg config.Store) (db.KVStore, error) {
	switch cfg.Engine {
	case config.EnginePebble:
		return pebble.Open(cfg.Path)
	case config.EngineBolt:
		return bolt.Open(cfg.Path)
	default:
		return pebble.NewKVStore()
	}
}

func run(ctx context.Context, cfg config.Config) error {
	kv, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	rounds := store.NewRounds(kv)
	defer rounds.Close() //nolint:errcheck

	coordinator := oracle.NewCoordinator(oracle.Config{
		AutoFulfill:  cfg.Oracle.AutoFulfill,
		FulfillDelay: cfg.Oracle.FulfillDelay.Duration,
	})
	defer coordinator.Close()

	accounts := wallet.NewAccounts()
	raffleCfg := raffle.Config{
		EntranceFee: cfg.Raffle.EntranceFee,
		Interval:    cfg.Raffle.Interval.Duration,
		MinBalance:  cfg.Raffle.MinBalance,
		Request:     cfg.Oracle.RequestConfig(),
	}
	machine, err := raffle.Open(raffleCfg, rounds, coordinator, accounts)
	if err != nil {
		return err
	}
	coordinator.AddConsumer(raffleCfg.Request.SubscriptionID, machine)

	// The coordinator keeps requests in memory only. A round restored while
	// CALCULATING waits for a remote oracle to deliver its words.
	if snapshot := machine.Snapshot(); snapshot.Status == state.StatusCalculating {
		id, _ := snapshot.PendingID()
		log.Raffle.Warn().Stringer("request_id", id).Msg("round restored while calculating, waiting for fulfilment")
	}

	var n *node.Node
	if cfg.Network.ListenAddr != "" {
		if n, err = newNode(cfg.Network, machine); err != nil {
			return err
		}
		if err := n.Start(); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	events, cancelEvents := machine.Subscribe(64)
	defer cancelEvents()
	g.Go(func() error {
		logEvents(ctx, events)
		return nil
	})

	if cfg.Keeper.Enabled {
		k := keeper.New(machine, cfg.Keeper.PollInterval.Duration)
		g.Go(func() error {
			return k.Run(ctx)
		})
	}

	if n != nil {
		g.Go(func() error {
			<-ctx.Done()
			return n.Stop()
		})
	}

	if cfg.Metrics.ListenAddr != "" {
		serveMetrics(ctx, g, cfg.Metrics.ListenAddr)
	}

	log.Root.Info().
		Stringer("entrance_fee", raffleCfg.EntranceFee).
		Dur("interval", raffleCfg.Interval).
		Str("store", cfg.Store.Engine).
		Msg("raffle node started")
	return g.Wait()
}

func newNode(cfg config.Network, r *raffle.Machine) (*node.Node, error) {
	priv, err := loadPrivateKey(cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	oracleKey, err := parsePublicKey(cfg.OracleKey)
	if err != nil {
		return nil, err
	}
	return node.New(node.Config{
		ListenAddr:   cfg.ListenAddr,
		PrivateKey:   priv,
		CertValidity: cfg.CertValidity.Duration,
		OracleKey:    oracleKey,
	}, r)
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		log.Root.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func logEvents(ctx context.Context, events <-chan raffle.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			entry := log.Raffle.Info().Str("event_id", ev.ID.String()).Str("kind", string(ev.Kind))
			switch p := ev.Payload.(type) {
			case raffle.EntryAcceptedPayload:
				entry = entry.Stringer("participant", p.Participant).Stringer("fee", p.Fee)
			case raffle.RoundClosedPayload:
				entry = entry.Stringer("request_id", p.RequestID)
			case raffle.WinnerPickedPayload:
				entry = entry.Stringer("winner", p.Winner).Stringer("amount", p.Amount)
			}
			entry.Msg("round event")
		}
	}
}
