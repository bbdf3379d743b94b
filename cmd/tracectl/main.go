// Command tracectl runs the traceability engine's HTTP server: every
// core engine wired against a Postgres backing store, the HTTP surface
// spec.md §6 names, and the background verification batch loop.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/defarm/tracectl/pkg/api"
	"github.com/defarm/tracectl/pkg/bridge"
	"github.com/defarm/tracectl/pkg/capability"
	"github.com/defarm/tracectl/pkg/circuits"
	"github.com/defarm/tracectl/pkg/config"
	"github.com/defarm/tracectl/pkg/events"
	"github.com/defarm/tracectl/pkg/graph"
	"github.com/defarm/tracectl/pkg/history"
	"github.com/defarm/tracectl/pkg/identifier"
	"github.com/defarm/tracectl/pkg/identity"
	"github.com/defarm/tracectl/pkg/ipfsclient"
	"github.com/defarm/tracectl/pkg/items"
	"github.com/defarm/tracectl/pkg/receipts"
	"github.com/defarm/tracectl/pkg/snapshot"
	"github.com/defarm/tracectl/pkg/store"
	"github.com/defarm/tracectl/pkg/storageadapter"
	"github.com/defarm/tracectl/pkg/verification"
)

const (
	defaultRPS   = 100
	defaultBurst = 20

	verifyBatchSize     = 25
	verifyBatchInterval = 5 * time.Second

	adapterProfileDir = "config/adapters"
)

// errNotConfigured marks an optional external collaborator (IPFS pin
// service, Stellar bridge, a storage adapter's required client) as
// absent from the environment rather than failing to construct.
var errNotConfigured = errors.New("not configured")

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres: failed to connect", "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("postgres: connected")

	g := graph.New()

	itemStore := store.NewPostgresItemStore(db)
	eventStore := store.NewPostgresEventStore(db)
	circuitStore := store.NewPostgresCircuitStore(db)
	circuitItemStore := store.NewPostgresCircuitItemStore(db)
	localIDStore := store.NewPostgresLocalIDStore(db)
	operationStore := store.NewPostgresOperationStore(db)
	activityStore := store.NewPostgresActivityStore(db)
	shareStore := store.NewPostgresShareStore(db)
	historyStore := store.NewPostgresHistoryStore(db)
	snapshotStore := store.NewPostgresSnapshotStore(db)
	entryStore := store.NewPostgresEntryStore(db)
	receiptStore := store.NewPostgresReceiptStore(db)
	keyStore := store.NewPostgresKeyStore(db)
	idempotencyStore := api.NewPostgresIdempotencyStore(db, 24*time.Hour)

	eventsEngine := events.New(eventStore, logger)
	itemsEngine := items.New(itemStore, g, eventsEngine, logger)
	historyEngine := history.New(historyStore)
	circuitsEngine := circuits.New(
		circuitStore,
		circuitItemStore,
		localIDStore,
		operationStore,
		activityStore,
		shareStore,
		itemsEngine,
		itemStore,
		g,
		eventsEngine,
		logger,
	)
	if predicates, err := identifier.NewPredicateEvaluator(); err != nil {
		logger.Warn("circuit predicates: not enabled", "error", err)
	} else {
		circuitsEngine = circuitsEngine.WithPredicateEvaluator(predicates)
	}
	receiptsEngine := receipts.New(receiptStore, entryStore, logger)
	if idSchema, err := receipts.NewIdentifierSchema(); err != nil {
		logger.Warn("receipt identifier schema: not enabled", "error", err)
	} else {
		receiptsEngine = receiptsEngine.WithIdentifierSchema(idSchema)
	}

	snapshotCfg := snapshot.Config{}
	if ipfsClient, err := newIPFSClient(cfg); err != nil {
		logger.Warn("ipfs: not configured", "error", err)
	} else {
		snapshotCfg.IPFSEnabled = true
		snapshotCfg.IPFS = newPinClient(context.Background(), cfg, ipfsClient, logger)
	}
	if stellarClient, err := newStellarClient(cfg); err != nil {
		logger.Warn("stellar bridge: not configured", "error", err)
	} else {
		snapshotCfg.BlockchainEnabled = true
		snapshotCfg.Stellar = stellarClient
	}
	if cfg.SnapshotArchiveBucket != "" {
		archive, err := storageadapter.NewS3Archive(context.Background(), storageadapter.S3ArchiveConfig{
			Bucket:   cfg.SnapshotArchiveBucket,
			Region:   cfg.SnapshotArchiveRegion,
			Endpoint: cfg.SnapshotArchiveEndpoint,
			Prefix:   cfg.SnapshotArchivePrefix,
		})
		if err != nil {
			logger.Warn("snapshot archive: not configured", "error", err)
		} else {
			snapshotCfg.ArchiveEnabled = true
			snapshotCfg.Archive = archive
		}
	}
	snapshotEngine := snapshot.New(snapshotStore, snapshotCfg, logger)

	verificationEngine := verification.New(entryStore, itemStore, itemsEngine, g, logger)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("redis: malformed REDIS_URL", "error", err)
			return 1
		}
		redisClient = redis.NewClient(opts)
		verificationEngine = verificationEngine.WithLeaser(verification.NewRedisEntryLeaser(redisClient))
		logger.Info("redis: distributed rate limiting and entry leasing enabled")
	}

	adapters := storageadapter.NewRegistry()
	if profiles, err := config.LoadAdapterProfiles(adapterProfileDir); err != nil {
		logger.Warn("adapter profiles: not loaded", "dir", adapterProfileDir, "error", err)
	} else {
		registerDefaultAdapters(adapters, profiles, snapshotCfg.IPFS, snapshotCfg.Stellar, logger)
	}

	keySet := identity.NewHMACKeySet([]byte(cfg.JWTSecret))
	tokens := identity.NewTokenManager(keySet)

	var gate *capability.Gate
	if redisClient != nil {
		gate = capability.NewWithLimiter(tokens, keyStore, capability.NewRedisRateLimiter(redisClient, defaultRPS, defaultBurst))
	} else {
		gate = capability.New(tokens, keyStore, defaultRPS, defaultBurst)
	}

	server := &api.Server{
		Gate:        gate,
		Items:       itemsEngine,
		ItemStore:   itemStore,
		Events:      eventsEngine,
		Circuits:    circuitsEngine,
		History:     historyEngine,
		Snapshots:   snapshotEngine,
		Receipts:    receiptsEngine,
		Adapters:    adapters,
		Idempotency: idempotencyStore,
		Log:         logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runVerificationLoop(ctx, verificationEngine, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router(),
	}

	go func() {
		logger.Info("tracectl: listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("tracectl: shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server: graceful shutdown failed", "error", err)
		return 1
	}
	return 0
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func newIPFSClient(cfg *config.Config) (*ipfsclient.Client, error) {
	if cfg.IPFSEndpoint == "" && !cfg.UsesPinata() {
		return nil, errNotConfigured
	}
	return ipfsclient.New(ipfsclient.Config{
		Endpoint:     cfg.IPFSEndpoint,
		PinataKey:    cfg.PinataAPIKey,
		PinataSecret: cfg.PinataSecretKey,
	})
}

// newPinClient wraps primary (a Pinata- or node-backed client) with a
// GCS-backed secondary pin target when GCS_PIN_BUCKET is set, so a primary
// pinning outage still serves reads/writes from the secondary.
func newPinClient(ctx context.Context, cfg *config.Config, primary *ipfsclient.Client, logger *slog.Logger) storageadapter.IPFSClient {
	if cfg.GCSPinBucket == "" {
		return primary
	}
	secondary, err := storageadapter.NewGCSPinClient(ctx, storageadapter.GCSPinConfig{
		Bucket: cfg.GCSPinBucket,
		Prefix: cfg.GCSPinPrefix,
	})
	if err != nil {
		logger.Warn("gcs pin fallback: not configured", "error", err)
		return primary
	}
	logger.Info("gcs pin fallback: enabled", "bucket", cfg.GCSPinBucket)
	return storageadapter.NewPinFallbackClient(primary, secondary, logger)
}

func newStellarClient(cfg *config.Config) (*bridge.Client, error) {
	if cfg.StellarTestnetSecret == "" {
		return nil, errNotConfigured
	}
	return bridge.New(bridge.Config{
		RPCEndpoint:  os.Getenv("STELLAR_TESTNET_RPC_ENDPOINT"),
		Secret:       cfg.StellarTestnetSecret,
		NFTContract:  cfg.StellarTestnetNFTContract,
		IPCMContract: cfg.StellarTestnetIPCMContract,
		OwnerWallet:  cfg.DefarmOwnerWallet,
	})
}

// registerDefaultAdapters registers one adapter instance per loaded
// profile under its own profile ID as a circuit ID placeholder; real
// deployments register adapters per circuit as circuits are created
// (pkg/circuits' AdapterConfigID resolution), this seeds the registry so
// a freshly booted instance has every configured variant reachable by
// profile ID until a circuit-specific registration supersedes it.
func registerDefaultAdapters(reg *storageadapter.Registry, profiles map[string]config.AdapterProfile, ipfs storageadapter.IPFSClient, stellar storageadapter.StellarClient, logger *slog.Logger) {
	for id, profile := range profiles {
		adapter, err := newAdapterForVariant(storageadapter.VariantName(profile.Variant), ipfs, stellar)
		if err != nil {
			logger.Warn("adapter profile: unsupported variant", "profile", id, "variant", profile.Variant, "error", err)
			continue
		}
		reg.RegisterWithProfile(id, profile, adapter)
		logger.Info("adapter profile: registered", "profile", id, "variant", profile.Variant)
	}
}

// newAdapterForVariant constructs the live Adapter for one of the six
// closed-set variant names, wiring in the shared IPFS/Stellar clients
// when that variant needs them.
func newAdapterForVariant(variant storageadapter.VariantName, ipfs storageadapter.IPFSClient, stellar storageadapter.StellarClient) (storageadapter.Adapter, error) {
	switch variant {
	case storageadapter.VariantLocalLocal:
		return storageadapter.NewLocalLocal(), nil
	case storageadapter.VariantIpfsIpfs:
		if ipfs == nil {
			return nil, errNotConfigured
		}
		return storageadapter.NewIpfsIpfs(ipfs), nil
	case storageadapter.VariantLocalIpfs:
		if ipfs == nil {
			return nil, errNotConfigured
		}
		return storageadapter.NewLocalIpfs(ipfs), nil
	case storageadapter.VariantStellarTestnetIpfs:
		if ipfs == nil || stellar == nil {
			return nil, errNotConfigured
		}
		return storageadapter.NewStellarTestnetIpfs(ipfs, stellar, storageadapter.AnchorFullStorage), nil
	case storageadapter.VariantStellarMainnetIpfs:
		if ipfs == nil || stellar == nil {
			return nil, errNotConfigured
		}
		return storageadapter.NewStellarMainnetIpfs(ipfs, stellar, storageadapter.AnchorFullStorage), nil
	case storageadapter.VariantStellarMainnetStellarMainnet:
		if stellar == nil {
			return nil, errNotConfigured
		}
		return storageadapter.NewStellarMainnetStellarMainnet(stellar), nil
	default:
		return nil, errNotConfigured
	}
}

func runVerificationLoop(ctx context.Context, engine *verification.Engine, logger *slog.Logger) {
	ticker := time.NewTicker(verifyBatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := engine.ProcessBatch(ctx, verifyBatchSize)
			if err != nil {
				logger.Error("verification: batch failed", "error", err)
				continue
			}
			if len(processed) > 0 {
				logger.Info("verification: batch processed", "count", len(processed))
			}
		}
	}
}
