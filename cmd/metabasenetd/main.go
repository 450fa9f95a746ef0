package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/metabasenet/node/internal/config"
	"github.com/metabasenet/node/internal/container"
	"github.com/metabasenet/node/internal/errs"
	"github.com/metabasenet/node/internal/eventbus"
	"github.com/metabasenet/node/internal/logging"
	"github.com/metabasenet/node/internal/moderegistry"
	"github.com/metabasenet/node/internal/modules"
	"github.com/metabasenet/node/internal/registry"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// run is the entry sequencer: it resolves the node's configuration
// and run mode, constructs every module the mode requires, and drives
// them through the container's lifecycle until a shutdown signal
// arrives. Its numbered steps mirror the exit codes in
// mapExitCode: a failure at any step maps to the Kind that step
// would otherwise have raised.
func run() int {
	configPath := flag.String("config", "", "Path to configuration file")
	dataDir := flag.String("datadir", "", "Override node.data_path from configuration")
	mode := flag.String("mode", "", "Override node.mode from configuration")
	purge := flag.Bool("purge", false, "Run in PURGE mode regardless of configuration")
	testnet := flag.Bool("testnet", false, "Use the testnet peer directory prefix")
	debug := flag.Bool("debug", false, "Force debug-level logging regardless of configuration")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("metabasenetd %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		return 0
	}

	// 1. Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "metabasenetd: failed to load config: %v\n", err)
		return mapExitCode(errs.ConfigInvalid)
	}
	if *dataDir != "" {
		cfg.Node.DataPath = *dataDir
	}
	if *mode != "" {
		cfg.Node.Mode = *mode
	}
	if *purge {
		cfg.Node.Mode = string(moderegistry.Purge)
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "metabasenetd: invalid config: %v\n", err)
		return mapExitCode(errs.ConfigInvalid)
	}

	// 2. Initialize the logger.
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "metabasenetd: failed to initialize logger: %v\n", err)
		return mapExitCode(errs.ConfigInvalid)
	}
	logging.SetGlobal(logger)
	logger.Info("metabasenetd starting", "version", Version, "commit", GitCommit, "build_time", BuildTime, "mode", cfg.Node.Mode)

	// 3. Require a configured minimum of free space before any module
	// touches the data directory.
	if err := checkDiskCapacity(cfg, logger); err != nil {
		logger.Error("disk capacity check failed", "error", err)
		return mapExitCode(errs.DirUnavailable)
	}

	// 4. Resolve the run mode and its ordered module kinds.
	runMode, err := moderegistry.ParseMode(cfg.Node.Mode)
	if err != nil {
		logger.Error("unrecognized mode", "error", err)
		return mapExitCode(errs.ConfigInvalid)
	}
	kinds, err := moderegistry.ModulesFor(runMode)
	if err != nil {
		logger.Error("failed to resolve modules for mode", "error", err)
		return mapExitCode(errs.ConfigInvalid)
	}

	// 5. Open the event bus every topic-relay module shares.
	bus, err := eventbus.Open(eventbus.Config{
		Backend:      eventbus.Backend(cfg.Bus.Type),
		URL:          cfg.Bus.URL,
		Password:     cfg.Bus.Password,
		RedisDB:      cfg.Bus.RedisDB,
		RedisStream:  cfg.Bus.RedisStream,
		RedisGroup:   cfg.Bus.RedisGroup,
		KafkaBrokers: cfg.Bus.KafkaBrokers,
		KafkaGroupID: cfg.Bus.KafkaGroupID,
		ConsumerName: cfg.Bus.ConsumerName,
	})
	if err != nil {
		logger.Error("failed to open event bus", "error", err)
		return mapExitCode(errs.ConfigInvalid)
	}
	defer bus.Close()

	// 6. Optionally connect to etcd for the peer directory.
	var peerDir *registry.PeerDirectory
	if len(cfg.Peer.EtcdEndpoints) > 0 {
		etcdClient, err := clientv3.New(clientv3.Config{
			Endpoints:   cfg.Peer.EtcdEndpoints,
			DialTimeout: cfg.Peer.DialTimeout,
		})
		if err != nil {
			logger.Error("failed to connect to etcd", "error", err)
			return mapExitCode(errs.DirUnavailable)
		}
		defer etcdClient.Close()

		prefix := "mainnet"
		if *testnet {
			prefix = "testnet"
		}
		peerDir = registry.NewPeerDirectory(etcdClient, registry.PeerInfo{
			NodeID:  cfg.Peer.NodeID,
			Address: cfg.Peer.AdvertiseAddr,
			Mode:    prefix + "/" + string(runMode),
		}, cfg.Peer.LeaseTTLSeconds, logger)
	}

	// 7. Construct and attach every module the mode requires, in
	// order. LOCK is always first, guaranteed by the mode registry.
	root := container.New(logger.Zerolog(), bus)
	httpAddr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	for _, kind := range kinds {
		m := buildModule(kind, cfg, root, bus, peerDir, logger, httpAddr)
		if m == nil {
			logger.Error("no constructor for module kind", "kind", string(kind))
			return mapExitCode(errs.ConfigInvalid)
		}
		if !root.Attach(m) {
			logger.Error("duplicate module name on attach", "kind", string(kind))
			return mapExitCode(errs.ConfigInvalid)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 8. PURGE mode never serves: it acquires the lock, opens every
	// attached database, removes its contents, and exits.
	if runMode == moderegistry.Purge {
		return runPurge(ctx, root, kinds, logger)
	}

	// 9. Run every attached module; a failure here unwinds everything
	// already initialized and the process exits without serving.
	if err := root.Run(ctx); err != nil {
		logger.Error("module run failed", "error", err)
		return mapExitCode(errs.ModuleInitFailed)
	}
	logger.Info("metabasenetd running", "modules", len(kinds))

	// 10. Wait for a shutdown signal, then halt and deinitialize every
	// module in reverse attach order.
	waitForShutdown(logger)
	root.Exit(ctx)
	logger.Info("metabasenetd stopped")
	return 0
}

// runPurge implements scenario S6: with the lock held and every
// attached database opened via Initialize, it removes each database's
// contents, tears the container back down, and exits 0. Modules that
// do not hold a database (LOCK itself) are skipped.
func runPurge(ctx context.Context, root *container.Container, kinds []moderegistry.ModuleKind, logger *logging.Logger) int {
	if err := root.Initialize(ctx); err != nil {
		logger.Error("purge: module initialization failed", "error", err)
		return mapExitCode(errs.ModuleInitFailed)
	}

	for _, kind := range kinds {
		name := strings.ToLower(string(kind))
		m, ok := root.GetObject(name)
		if !ok {
			continue
		}
		purgeable, ok := m.(modules.Purgeable)
		if !ok {
			continue
		}
		if err := purgeable.Purge(); err != nil {
			logger.Error("purge: failed to remove database", "module", name, "error", err)
			root.Exit(ctx)
			return mapExitCode(errs.ModuleInitFailed)
		}
		logger.Info("purge: database removed", "module", name)
	}

	root.Exit(ctx)
	logger.Info("purge: complete")
	return 0
}

// buildModule constructs the module instance for kind, or nil if kind
// is unrecognized.
func buildModule(
	kind moderegistry.ModuleKind,
	cfg *config.Config,
	root *container.Container,
	bus eventbus.Bus,
	peerDir *registry.PeerDirectory,
	logger *logging.Logger,
	httpAddr string,
) container.Module {
	zl := logger.Zerolog()
	dataPath := cfg.Node.DataPath
	bucketWidth := cfg.Node.BucketWidthSeconds
	compress := cfg.Node.CompressChunks

	switch kind {
	case moderegistry.Lock:
		return modules.NewLockModule(dataPath, zl)
	case moderegistry.Dispatcher:
		return modules.NewDispatcher(bus, zl)
	case moderegistry.Service:
		return modules.NewService(bus, zl)
	case moderegistry.NetChannel:
		return modules.NewNetChannel(bus, zl)
	case moderegistry.BlockChannel:
		return modules.NewBlockChannel(bus, zl)
	case moderegistry.CertTxChannel:
		return modules.NewCertTxChannel(bus, zl)
	case moderegistry.UserTxChannel:
		return modules.NewUserTxChannel(bus, zl)
	case moderegistry.DelegatedChannel:
		return modules.NewDelegatedChannel(bus, zl)
	case moderegistry.Network:
		return modules.NewNetworkModule(peerDir, zl)
	case moderegistry.TxPool:
		return modules.NewTxPoolModule(dataPath, bucketWidth, compress, zl)
	case moderegistry.Blockchain:
		return modules.NewBlockchainModule(dataPath, bucketWidth, compress, zl)
	case moderegistry.DataStat:
		return modules.NewDataStatModule(dataPath, bucketWidth, compress, zl)
	case moderegistry.Recovery:
		return modules.NewRecoveryModule(dataPath, bucketWidth, compress, zl)
	case moderegistry.BlockMaker:
		return modules.NewBlockMaker(zl)
	case moderegistry.CoreProtocol:
		return modules.NewCoreProtocol(zl)
	case moderegistry.Consensus:
		return modules.NewConsensus(zl)
	case moderegistry.ForkManager:
		return modules.NewForkManager(zl)
	case moderegistry.Wallet:
		if cfg.Peer.NodeID == "" {
			return modules.NewDummyWallet(zl)
		}
		return modules.NewWallet(cfg.Peer.AdvertiseAddr, zl)
	case moderegistry.HTTPServer:
		return modules.NewHTTPServerModule(httpAddr, logger)
	case moderegistry.RPCMode:
		return modules.NewRPCModeModule(root, zl)
	case moderegistry.HTTPGet:
		return modules.NewHTTPGetModule(zl)
	case moderegistry.RPCClient:
		return modules.NewRPCClientModule(cfg.Peer.AdvertiseAddr, zl)
	default:
		return nil
	}
}

// checkDiskCapacity requires the data directory's filesystem to have
// at least cfg.Node.MinFreeDiskBytes available, creating the
// directory first if it does not yet exist.
func checkDiskCapacity(cfg *config.Config, logger *logging.Logger) error {
	if err := os.MkdirAll(cfg.Node.DataPath, 0o755); err != nil {
		return errs.Wrap(errs.DirUnavailable, "create data directory", err)
	}

	capacity, err := registry.GetDiskCapacity(cfg.Node.DataPath)
	if err != nil {
		return err
	}
	logger.Info("disk capacity", "available_bytes", capacity.Available, "total_bytes", capacity.Total)

	if capacity.Available < cfg.Node.MinFreeDiskBytes {
		return errs.New(errs.DirUnavailable, fmt.Sprintf(
			"only %d bytes free, need at least %d", capacity.Available, cfg.Node.MinFreeDiskBytes))
	}
	return nil
}

// waitForShutdown blocks until SIGINT or SIGTERM arrives.
func waitForShutdown(logger *logging.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received shutdown signal", "signal", sig.String())
}

// mapExitCode translates an errs.Kind into the process exit code
// operators and supervisors key off of: 1 for configuration problems,
// 2 for anything that kept the data directory from being opened, 3
// for a module that failed during Run.
func mapExitCode(kind errs.Kind) int {
	switch kind {
	case errs.ConfigInvalid:
		return 1
	case errs.DirUnavailable, errs.LockContended:
		return 2
	case errs.ModuleInitFailed:
		return 3
	default:
		return 1
	}
}
