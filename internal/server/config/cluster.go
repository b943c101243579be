// Package config defines the server configuration structure.
//
// @req RQ-0502
// @design DS-0502
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/yndnr/lexmesh-go/internal/cluster"
)

// ToDiscoveryConfig converts ServerConfig to cluster.DiscoveryConfig.
//
// This handles default value population, NodeID generation, and field
// mapping.
func ToDiscoveryConfig(cfg *ServerConfig, logger *slog.Logger) (cluster.DiscoveryConfig, error) {
	if cfg == nil {
		return cluster.DiscoveryConfig{}, fmt.Errorf("server config is nil")
	}

	nodeID, err := EnsureNodeID(cfg, logger)
	if err != nil {
		return cluster.DiscoveryConfig{}, err
	}

	apiAddr := cfg.Cluster.AdvertiseAPIAddr
	if apiAddr == "" {
		apiAddr = cfg.Server.HTTP.Addr
	}

	return cluster.DiscoveryConfig{
		NodeID:    nodeID,
		BindAddr:  cfg.Cluster.GossipAddr,
		BindPort:  cfg.Cluster.GossipPort,
		APIAddr:   apiAddr,
		SeedNodes: cfg.Cluster.Seeds,
		Logger:    logger,
	}, nil
}

// EnsureNodeID returns the configured node ID, generating and storing
// one when empty.
func EnsureNodeID(cfg *ServerConfig, logger *slog.Logger) (string, error) {
	if cfg.Cluster.NodeID != "" {
		return cfg.Cluster.NodeID, nil
	}

	generated, err := generateNodeID()
	if err != nil {
		return "", fmt.Errorf("generate node ID: %w", err)
	}
	cfg.Cluster.NodeID = generated
	logger.Info("generated cluster node ID", "node_id", generated)
	return generated, nil
}

// generateNodeID generates a unique node identifier.
//
// Format: lmnode-<16 hex chars> (e.g., "lmnode-a1b2c3d4e5f67890")
func generateNodeID() (string, error) {
	buf := make([]byte, 8) // 8 bytes = 16 hex chars
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return "lmnode-" + hex.EncodeToString(buf), nil
}
