package main

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/lexmesh-go/internal/cluster"
	"github.com/yndnr/lexmesh-go/internal/core/domain"
	"github.com/yndnr/lexmesh-go/internal/core/service"
	"github.com/yndnr/lexmesh-go/internal/index"
	"github.com/yndnr/lexmesh-go/internal/infra/confloader"
	"github.com/yndnr/lexmesh-go/internal/infra/shutdown"
	"github.com/yndnr/lexmesh-go/internal/infra/tlsroots"
	"github.com/yndnr/lexmesh-go/internal/keystore"
	"github.com/yndnr/lexmesh-go/internal/server/config"
	"github.com/yndnr/lexmesh-go/internal/server/httpserver"
	"github.com/yndnr/lexmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/lexmesh-go/internal/storage/tlog"
	"github.com/yndnr/lexmesh-go/internal/telemetry/logger"
	"github.com/yndnr/lexmesh-go/internal/telemetry/metric"
	"github.com/yndnr/lexmesh-go/pkg/crypto/seekable"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse command line flags
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("lexmesh-server %s (commit: %s, built: %s)\n", version, commit, buildTime)
		return nil
	}

	// Load configuration
	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize logger
	log, slogLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting lexmesh-server",
		"version", version,
		"commit", commit,
		"config", *configFile)

	nodeID, err := config.EnsureNodeID(cfg, slogLogger)
	if err != nil {
		return fmt.Errorf("node id: %w", err)
	}

	// Metrics registry
	metrics := metric.NewRegistry()

	// Keystore
	keys, err := keystore.New(keystore.Config{Dir: cfg.Storage.KeystoreDir}, slogLogger)
	if err != nil {
		return fmt.Errorf("open keystore: %w", err)
	}
	metrics.MustRegister(keys)

	ctx := context.Background()
	if err := bootstrapKey(ctx, cfg, keys, slogLogger); err != nil {
		keys.Close()
		return fmt.Errorf("bootstrap key: %w", err)
	}

	// Cipher factory
	factory, err := cipherFactory(cfg)
	if err != nil {
		keys.Close()
		return err
	}

	// Open per-core index directories
	cores := index.NewRegistry()
	encSvc := service.NewEncryptionService(cores, keys, slogLogger)
	if err := openCores(ctx, cfg, keys, factory, cores, encSvc, metrics, slogLogger); err != nil {
		keys.Close()
		return fmt.Errorf("open cores: %w", err)
	}

	// Cluster membership
	registry, discovery, err := initCluster(cfg, nodeID, metrics, slogLogger)
	if err != nil {
		keys.Close()
		return fmt.Errorf("init cluster: %w", err)
	}

	// TLS with certificate hot-reload. Resolved before the handler so
	// the replica fan-out client speaks the same scheme the admin API
	// is served on.
	var certWatcher *tlsroots.Watcher
	var tlsCfg *tls.Config
	var fanoutClient *http.Client
	remoteScheme := "http"
	if cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != "" {
		certWatcher, err = tlsroots.NewWatcher(
			cfg.Server.HTTP.TLSCertFile,
			cfg.Server.HTTP.TLSKeyFile,
			tlsroots.WithLogger(slogLogger),
		)
		if err != nil {
			keys.Close()
			return fmt.Errorf("tls watcher: %w", err)
		}
		certWatcher.StartAsync()
		tlsCfg = &tls.Config{
			GetCertificate: certWatcher.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}
		remoteScheme = "https"

		clientTLS := &tls.Config{MinVersion: tls.VersionTLS12}
		if caFile := cfg.Server.HTTP.ClientCAFile; caFile != "" {
			pool := tlsroots.NewEmptyPool()
			if err := pool.AddCertFile(caFile); err != nil {
				keys.Close()
				return fmt.Errorf("client CA: %w", err)
			}
			tlsCfg.ClientCAs = pool.Pool()
			tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert

			// Replicas demand client certs as well: present this
			// node's own certificate and trust the shared cluster CA
			// for theirs.
			clientTLS.RootCAs = pool.Pool()
			clientTLS.GetClientCertificate = certWatcher.GetClientCertificate
		}

		fanoutTimeout := cfg.Encryption.DistribTimeout
		if fanoutTimeout <= 0 {
			fanoutTimeout = handler.DefaultDistribTimeout
		}
		fanoutClient = &http.Client{
			Timeout:   fanoutTimeout,
			Transport: &http.Transport{TLSClientConfig: clientTLS},
		}
	}

	// HTTP handler and router
	apiHandler := handler.New(handler.Config{
		Status:         encSvc,
		Keys:           keys,
		Activator:      encSvc,
		Registry:       registry,
		Metrics:        metrics,
		Logger:         slogLogger,
		DistribTimeout: cfg.Encryption.DistribTimeout,
		RemoteScheme:   remoteScheme,
		Client:         fanoutClient,
	})

	routerCfg := httpserver.DefaultRouterConfig()
	routerCfg.Handler = apiHandler
	routerCfg.Metrics = metrics.Handler()
	routerCfg.Logger = slogLogger
	router := httpserver.NewRouter(routerCfg)

	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router)
	if tlsCfg != nil {
		httpServer.SetTLSConfig(tlsCfg)
	}

	// Setup graceful shutdown
	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	// Register shutdown hooks (reverse order of startup)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		if certWatcher != nil {
			certWatcher.Stop()
		}
		return httpServer.Shutdown(ctx)
	})

	if discovery != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("leaving cluster")
			if err := discovery.Leave(); err != nil {
				slogLogger.Warn("cluster leave failed", "error", err)
			}
			return discovery.Shutdown()
		})
	}

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing keystore")
		return keys.Close()
	})

	// Start HTTP server in goroutine
	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)

		var err error
		if certWatcher != nil {
			// Certificates come from the watcher's GetCertificate callback.
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	// Start with defaults
	cfg := config.Default()

	// Create loader with optional config file
	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)

	// Load and unmarshal
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger.
// Returns both the logger interface and slog.Logger for components that need it.
func initLogger(cfg *config.ServerConfig) (logger.Logger, *slog.Logger, error) {
	// Create logger with redaction
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}

	// Set as default logger
	logger.SetDefault(log)

	// Create a standard slog.Logger with the same redacting handler
	// for components that take slog directly.
	slogLogger := logger.NewSlog(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	slog.SetDefault(slogLogger)

	return log, slogLogger, nil
}

// bootstrapKey seeds the keystore with an initial key when one is
// configured and no key version exists yet under ref "1".
func bootstrapKey(ctx context.Context, cfg *config.ServerConfig, keys *keystore.Store, log *slog.Logger) error {
	if cfg.Encryption.BootstrapKeySecret == "" {
		return nil
	}

	if _, err := keys.Key(ctx, "1"); err == nil {
		// Keystore already seeded.
		return nil
	} else if !errors.Is(err, domain.ErrKeyNotFound) {
		return err
	}

	secret, err := hex.DecodeString(cfg.Encryption.BootstrapKeySecret)
	if err != nil {
		return fmt.Errorf("decode bootstrap secret: %w", err)
	}

	key, err := domain.NewEncryptionKey("1", secret)
	if err != nil {
		return err
	}
	if err := keys.StoreKey(ctx, key); err != nil {
		return err
	}

	log.Info("keystore seeded with bootstrap key", "key_ref", key.Ref)
	return nil
}

// cipherFactory selects the stream cipher per configuration; empty
// cipher_type picks by CPU capability.
func cipherFactory(cfg *config.ServerConfig) (seekable.Factory, error) {
	if cfg.Encryption.CipherType == "" {
		return seekable.NewFactory(), nil
	}
	factory, err := seekable.NewFactoryWithType(seekable.CipherType(cfg.Encryption.CipherType))
	if err != nil {
		return nil, fmt.Errorf("cipher factory: %w", err)
	}
	return factory, nil
}

// openCores scans the data directory and registers every core found.
// Each immediate subdirectory of data_dir is one core.
func openCores(ctx context.Context, cfg *config.ServerConfig, keys keystore.Supplier, factory seekable.Factory, cores *index.Registry, encSvc *service.EncryptionService, metrics *metric.Registry, log *slog.Logger) error {
	entries, err := os.ReadDir(cfg.Storage.DataDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		coreName := entry.Name()
		corePath := filepath.Join(cfg.Storage.DataDir, coreName)

		dir, err := index.NewDirectory(coreName, corePath, keys, factory)
		if err != nil {
			return fmt.Errorf("core %s: %w", coreName, err)
		}
		// A core marked for encryption may hold a mix of encrypted and
		// cleartext logs, so its readers must probe for headers.
		dir.SetCheckEncryptionOnRead(dir.ActiveKeyRef() != "")

		sup := index.NewSupplier(dir)
		cores.Add(coreName, sup)
		encSvc.RegisterCore(coreName, sup)

		scanCoreLogs(ctx, coreName, corePath, sup, encSvc, metrics, log)

		log.Info("core opened",
			"core", coreName,
			"active_key_ref", dir.ActiveKeyRef(),
		)
	}

	log.Info("cores registered", "count", len(cores.CoreNames()))
	return nil
}

// scanCoreLogs verifies the integrity of a core's transaction logs at
// startup. Corruption does not abort the server; the core is marked
// errored and left registered so operators can see it in status.
func scanCoreLogs(ctx context.Context, coreName, corePath string, sup *index.Supplier, encSvc *service.EncryptionService, metrics *metric.Registry, log *slog.Logger) {
	paths, err := filepath.Glob(filepath.Join(corePath, "*"+tlog.LogFileExt))
	if err != nil {
		log.Warn("log scan failed", "core", coreName, "error", err)
		return
	}
	metrics.TlogFiles.Add(float64(len(paths)))

	for _, path := range paths {
		_, in := tlog.NewEncryptionOpeners(sup)
		records, payloadBytes, err := tlog.Scan(ctx, path, in)
		if err != nil {
			log.Warn("transaction log corrupt", "core", coreName, "path", path, "error", err)
			encSvc.MarkError(coreName)
			continue
		}
		metrics.TlogScanRecords.Add(float64(records))
		metrics.TlogScanBytes.Add(float64(payloadBytes))
		log.Debug("transaction log verified", "core", coreName, "path", path, "records", records)
	}
}

// initCluster starts Gossip membership when enabled, otherwise returns
// a single-member static registry.
func initCluster(cfg *config.ServerConfig, nodeID string, metrics *metric.Registry, log *slog.Logger) (cluster.Registry, *cluster.Discovery, error) {
	local := cluster.Node{ID: nodeID, APIAddr: cfg.Server.HTTP.Addr}

	if !cfg.Cluster.Enabled {
		metrics.ClusterNodes.Set(1)
		return cluster.NewStaticRegistry(local, nil), nil, nil
	}

	discoveryCfg, err := config.ToDiscoveryConfig(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	discovery, err := cluster.NewDiscovery(discoveryCfg)
	if err != nil {
		return nil, nil, err
	}

	metrics.ClusterNodes.Set(float64(len(discovery.Members())))
	discovery.OnJoin(func(cluster.Node) {
		metrics.ClusterNodes.Set(float64(len(discovery.Members())))
	})
	discovery.OnLeave(func(string) {
		metrics.ClusterNodes.Set(float64(len(discovery.Members())))
	})

	return discovery, discovery, nil
}
