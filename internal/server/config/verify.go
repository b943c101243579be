// Package config defines the server configuration structure.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/yndnr/lexmesh-go/internal/core/domain"
	"github.com/yndnr/lexmesh-go/pkg/crypto/seekable"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyEncryption(&cfg.Encryption); err != nil {
		return err
	}
	return verifyCluster(&cfg.Cluster)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http: tls_cert_file and tls_key_file must be set together")
	}
	if cfg.HTTP.ClientCAFile != "" && cfg.HTTP.TLSCertFile == "" {
		return errors.New("server.http: client_ca_file requires TLS to be configured")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	// Check if data directory exists or can be created
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}

	if cfg.TlogSyncInterval < 0 {
		return errors.New("storage.tlog_sync_interval must not be negative")
	}
	return nil
}

func verifyEncryption(cfg *EncryptionSection) error {
	switch cfg.CipherType {
	case "", string(seekable.CipherAESCTR), string(seekable.CipherChaCha20):
	default:
		return fmt.Errorf("encryption.cipher_type %q is not supported", cfg.CipherType)
	}

	if cfg.DistribTimeout <= 0 {
		return errors.New("encryption.distrib_timeout must be positive")
	}

	if cfg.BootstrapKeySecret != "" {
		secret, err := hex.DecodeString(cfg.BootstrapKeySecret)
		if err != nil {
			return errors.New("encryption.bootstrap_key_secret must be hex")
		}
		if len(secret) < domain.MinSecretLength || len(secret) > domain.MaxSecretLength {
			return fmt.Errorf("encryption.bootstrap_key_secret must be %d-%d bytes",
				domain.MinSecretLength, domain.MaxSecretLength)
		}
	}
	return nil
}

func verifyCluster(cfg *ClusterSection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.GossipAddr == "" {
		return errors.New("cluster.gossip_addr is required when cluster is enabled")
	}
	if cfg.GossipPort <= 0 || cfg.GossipPort > 65535 {
		return errors.New("cluster.gossip_port must be in (0, 65535]")
	}
	return nil
}
