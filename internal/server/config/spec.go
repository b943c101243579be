// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for lexmesh-server.
type ServerConfig struct {
	Server     ServerSection     `koanf:"server"`
	Storage    StorageSection    `koanf:"storage"`
	Encryption EncryptionSection `koanf:"encryption"`
	Cluster    ClusterSection    `koanf:"cluster"`
	Log        LogSection        `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP admin server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// ClientCAFile, when set, requires admin clients to present a
	// certificate signed by one of these CAs. Needs TLS to be on.
	ClientCAFile string `koanf:"client_ca_file"`
}

// StorageSection configures storage behavior.
type StorageSection struct {
	// DataDir holds the per-core data directories.
	DataDir string `koanf:"data_dir"`

	// KeystoreDir is the Badger directory of the node keystore. Empty
	// selects an in-memory keystore (tests only).
	KeystoreDir string `koanf:"keystore_dir"`

	// TlogSyncInterval is how often open transaction logs are synced.
	TlogSyncInterval time.Duration `koanf:"tlog_sync_interval"`
}

// EncryptionSection configures the encryption layer.
type EncryptionSection struct {
	// CipherType selects the stream cipher: "aes-ctr", "chacha20", or
	// empty for automatic selection by architecture.
	CipherType string `koanf:"cipher_type"`

	// DistribTimeout bounds a distributed status fan-out.
	DistribTimeout time.Duration `koanf:"distrib_timeout"`

	// BootstrapKeySecret optionally seeds the keystore with an initial
	// key (hex, 16-32 bytes). Masked in logs.
	BootstrapKeySecret string `koanf:"bootstrap_key_secret"`
}

// ClusterSection configures cluster mode settings.
//
// @req RQ-0401 - Cluster configuration
type ClusterSection struct {
	// Enabled turns on Gossip membership. A disabled cluster runs the
	// node standalone with a single-member registry.
	Enabled bool `koanf:"enabled"`

	// NodeID is the unique identifier for this cluster node.
	// If empty, a random ID will be generated at startup.
	NodeID string `koanf:"node_id"`

	// GossipAddr is the Gossip TCP/UDP bind address (e.g., "192.168.1.10").
	GossipAddr string `koanf:"gossip_addr"`

	// GossipPort is the Gossip bind port (e.g., 5344).
	GossipPort int `koanf:"gossip_port"`

	// AdvertiseAPIAddr is the admin API address shared with other
	// members for status fan-out. Defaults to server.http.addr.
	AdvertiseAPIAddr string `koanf:"advertise_api_addr"`

	// Seeds is the list of seed node addresses to join an existing cluster.
	// Format: ["192.168.1.10:5344", "192.168.1.11:5344"]
	Seeds []string `koanf:"seeds"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
