package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zrcswap/zrcswap/params"
	"github.com/zrcswap/zrcswap/pkg/api"
	"github.com/zrcswap/zrcswap/pkg/engine"
	"github.com/zrcswap/zrcswap/pkg/storage"
	"github.com/zrcswap/zrcswap/pkg/token"
	"github.com/zrcswap/zrcswap/pkg/types"
	"github.com/zrcswap/zrcswap/pkg/util"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "run the settlement engine and API server",
	Run: func(cmd *cobra.Command, args []string) {
		wg := &sync.WaitGroup{}
		wg.Add(1)

		ctx, cancel := context.WithCancel(context.Background())
		onExit := make(chan error, 1)

		go func() {
			defer wg.Done()
			if err := runDaemon(ctx); err != nil {
				onExit <- err
			}
		}()

		onSignal := make(chan os.Signal, 1)
		signal.Notify(onSignal, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-onSignal:
			cancel()
			fmt.Fprintf(os.Stderr, "exit by signal %s\n", sig)
		case err := <-onExit:
			cancel()
			if err != nil {
				fmt.Fprintf(os.Stderr, "exit by error: %v\n", err)
			}
		}

		wg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(ctx context.Context) error {
	cfg, err := params.Load(configPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Node.LogFile != "" {
		logger, err = util.NewLoggerWithFile(cfg.Node.LogLevel, cfg.Node.LogFile)
	} else {
		logger, err = util.NewLogger(cfg.Node.LogLevel)
	}
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()
	log.Infow("marketd starting", "data_dir", cfg.Node.DataDir, "listen", cfg.Node.ListenAddr)

	if err := os.MkdirAll(cfg.Node.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	store, err := storage.Open(filepath.Join(cfg.Node.DataDir, "market"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	eventLog, err := storage.NewFileEventLog(filepath.Join(cfg.Node.DataDir, "events.log"))
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer eventLog.Close()

	// In-process token backends. A chain-connected deployment would plug
	// RPC-backed implementations into the same registry.
	registry := token.NewRegistry(token.NewNative())
	for _, s := range cfg.Market.PaymentTokens {
		if !common.IsHexAddress(s) {
			return fmt.Errorf("invalid payment token address %q", s)
		}
		registry.RegisterPayment(common.HexToAddress(s), token.NewLedger())
	}
	for _, s := range cfg.Market.AssetContracts {
		if !common.IsHexAddress(s) {
			return fmt.Errorf("invalid asset contract address %q", s)
		}
		registry.RegisterAsset(common.HexToAddress(s), token.NewNFT())
	}

	blocks := util.NewTickingBlocks(0, cfg.Node.BlockInterval)
	go blocks.Run(ctx)

	eng, err := buildEngine(cfg, registry, blocks, store, log)
	if err != nil {
		return err
	}
	proxy := engine.NewProxy(eng)

	go func() {
		for ev := range eng.Subscribe() {
			if err := eventLog.Append(ev); err != nil {
				log.Errorw("event log append", "err", err)
			}
		}
	}()

	server := api.NewServer(api.Config{
		Addr:           cfg.Node.ListenAddr,
		AllowedOrigins: cfg.Node.AllowedOrigins,
		AmountDecimals: cfg.Market.AmountDecimals,
	}, eng, proxy, blocks, log)

	return server.Run(ctx)
}

// buildEngine restores state from the store when the market has run before,
// otherwise seeds a fresh one from config.
func buildEngine(cfg params.Config, registry *token.Registry, blocks engine.BlockSource,
	store *storage.Store, log *zap.SugaredLogger) (*engine.Engine, error) {

	if !common.IsHexAddress(cfg.Market.EngineAddress) {
		return nil, fmt.Errorf("invalid engine address %q", cfg.Market.EngineAddress)
	}
	if !common.IsHexAddress(cfg.Market.Owner) {
		return nil, fmt.Errorf("invalid owner address %q", cfg.Market.Owner)
	}
	engineAddr := common.HexToAddress(cfg.Market.EngineAddress)
	owner := common.HexToAddress(cfg.Market.Owner)

	st, ok, err := store.LoadState()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if ok {
		log.Infow("state restored",
			"orders", len(st.FixedOrders), "listings", len(st.Listings),
			"escrow_entries", len(st.Escrow), "claims", len(st.Claims))
		return engine.NewWithState(st, engineAddr, registry, blocks, store, log), nil
	}

	if !common.IsHexAddress(cfg.Market.ServiceFeeRecipient) {
		return nil, fmt.Errorf("invalid service fee recipient %q", cfg.Market.ServiceFeeRecipient)
	}
	eng := engine.New(engine.Params{
		Address:             engineAddr,
		Owner:               owner,
		ServiceFeeRecipient: common.HexToAddress(cfg.Market.ServiceFeeRecipient),
		ServiceFeeBps:       cfg.Market.ServiceFeeBps,
	}, registry, blocks, store, log)

	// Seed the allow-lists through the owner operations so the records land
	// in the store like any other transition.
	ownerCall := types.Call{Sender: owner}
	for _, s := range cfg.Market.Allowlist {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid allowlist address %q", s)
		}
		if err := eng.SetAllowlist(ownerCall, common.HexToAddress(s)); err != nil {
			return nil, fmt.Errorf("seed allowlist: %w", err)
		}
	}
	for _, s := range cfg.Market.PaymentTokens {
		if err := eng.AllowPaymentTokenAddress(ownerCall, common.HexToAddress(s)); err != nil {
			return nil, fmt.Errorf("seed payment tokens: %w", err)
		}
	}
	log.Infow("fresh market initialized", "owner", owner.Hex())
	return eng, nil
}
