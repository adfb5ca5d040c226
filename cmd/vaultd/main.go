package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/lifehaverdev/credit-vault-sub001/asset"
	"github.com/lifehaverdev/credit-vault-sub001/hub"
	"github.com/lifehaverdev/credit-vault-sub001/internal/logging"
	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/journal/storeregistry"
	"github.com/lifehaverdev/credit-vault-sub001/registry"
	"github.com/lifehaverdev/credit-vault-sub001/vaultrpc"

	_ "github.com/lifehaverdev/credit-vault-sub001/journal/localfs"
	_ "github.com/lifehaverdev/credit-vault-sub001/journal/sqlitestore"
)

func main() {
	fs := flag.NewFlagSet("vaultd", flag.ExitOnError)
	configPath := fs.String("config", "vaultd.toml", "TOML config file")
	listen := fs.String("listen", "", "listen address (overrides config)")
	listBackends := fs.Bool("list-backends", false, "List supported journal backends and exit")
	_ = fs.Parse(os.Args[1:])

	if *listBackends {
		for _, b := range storeregistry.List() {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	logger := logging.New("vaultd", logging.ProfileRuntime)

	cfg, err := loadServiceConfig(*configPath)
	if err != nil {
		logger.Error().Err(err).Str("config", *configPath).Msg("invalid config")
		os.Exit(2)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if cfg.LogLevelSet && os.Getenv(logging.EnvLogLevel) == "" {
		logger = logger.Level(cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("vaultd stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg serviceConfig, logger zerolog.Logger) error {
	store, closeStore, err := cfg.Journal.Open()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn().Err(err).Msg("close journal store")
		}
	}()
	j, chain, err := openBootJournal(store, cfg.Chain, time.Now())
	if err != nil {
		return err
	}
	logger.Info().Str("chain", chain).Msg("journal opened")

	h, _, err := assemble(cfg, j)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	defer lis.Close()

	s := grpc.NewServer()
	vaultrpc.RegisterVaultServer(s, vaultrpc.NewServer(h, logger))

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	logger.Info().
		Str("listen", lis.Addr().String()).
		Str("hub", h.Address().Hex()).
		Str("beacon", h.Beacon().Address().Hex()).
		Str("governance", h.Governance().Hex()).
		Msg("vaultd listening")
	if err := s.Serve(lis); err != nil {
		return err
	}
	if err := j.Err(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	logger.Info().Uint64("events", j.Len()).Str("head", j.Head().String()).Msg("vaultd stopped")
	return nil
}

const bootLayout = "20060102T150405.000000000Z"

// openBootJournal starts the chain for one daemon run, named
// <chain>.<boot time>. Vault state is rebuilt from genesis on every start, so
// a boot never appends to an earlier run's chain.
func openBootJournal(store journal.Store, chain string, boot time.Time) (*journal.Journal, string, error) {
	name := chain + "." + boot.UTC().Format(bootLayout)
	j, err := journal.Open(store, name)
	if err != nil {
		return nil, "", err
	}
	if n := j.Len(); n != 0 {
		return nil, "", fmt.Errorf("journal: chain %q already holds %d events", name, n)
	}
	return j, name, nil
}

// assemble builds the in-process vault: a bank seeded with the genesis
// balances, and a hub with the configured marshals and freeze flag applied by
// the governance identity.
func assemble(cfg serviceConfig, events journal.Emitter) (*hub.Hub, *asset.Bank, error) {
	bank := asset.NewBank()
	for _, g := range cfg.Genesis {
		if err := bank.Mint(g.Asset, g.Holder, g.Amount); err != nil {
			return nil, nil, fmt.Errorf("genesis %s/%s: %w", g.Asset.Hex(), g.Holder.Hex(), err)
		}
	}

	h, err := hub.New(hub.Config{
		Self:          cfg.Hub,
		Governance:    registry.StaticGovernor(cfg.Governance),
		Beacon:        hub.NewBeacon(cfg.Beacon, cfg.Implementation),
		ProxyTemplate: cfg.ProxyTemplate,
		Transferer:    bank,
		Events:        events,
	})
	if err != nil {
		return nil, nil, err
	}
	for _, m := range cfg.Marshals {
		if err := h.SetMarshal(cfg.Governance, m, true); err != nil {
			return nil, nil, err
		}
	}
	if cfg.Frozen {
		if err := h.SetFreeze(cfg.Governance, true); err != nil {
			return nil, nil, err
		}
	}
	return h, bank, nil
}
