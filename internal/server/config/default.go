// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr = "127.0.0.1:5080"

	DefaultDataDir          = "/var/lib/lexmesh-server/data"
	DefaultKeystoreDir      = "/var/lib/lexmesh-server/keystore"
	DefaultTlogSyncInterval = 100 * time.Millisecond

	DefaultDistribTimeout = 10 * time.Second

	DefaultGossipPort = 5344

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
		},
		Storage: StorageSection{
			DataDir:          DefaultDataDir,
			KeystoreDir:      DefaultKeystoreDir,
			TlogSyncInterval: DefaultTlogSyncInterval,
		},
		Encryption: EncryptionSection{
			DistribTimeout: DefaultDistribTimeout,
		},
		Cluster: ClusterSection{
			GossipPort: DefaultGossipPort,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
