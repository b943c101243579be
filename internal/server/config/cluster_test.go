// Package config defines the server configuration structure.
package config

import (
	"log/slog"
	"strings"
	"testing"
)

func TestToDiscoveryConfig_ValidConfig(t *testing.T) {
	logger := slog.Default()

	cfg := &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{Addr: "127.0.0.1:5080"},
		},
		Cluster: ClusterSection{
			Enabled:          true,
			NodeID:           "test-node-01",
			GossipAddr:       "127.0.0.1",
			GossipPort:       5344,
			AdvertiseAPIAddr: "192.168.1.10:5080",
			Seeds:            []string{"127.0.0.1:5344", "127.0.0.1:5345"},
		},
	}

	result, err := ToDiscoveryConfig(cfg, logger)
	if err != nil {
		t.Fatalf("ToDiscoveryConfig failed: %v", err)
	}

	// Verify all fields are correctly mapped
	if result.NodeID != "test-node-01" {
		t.Errorf("NodeID = %q, want %q", result.NodeID, "test-node-01")
	}
	if result.BindAddr != "127.0.0.1" {
		t.Errorf("BindAddr = %q, want %q", result.BindAddr, "127.0.0.1")
	}
	if result.BindPort != 5344 {
		t.Errorf("BindPort = %d, want %d", result.BindPort, 5344)
	}
	if result.APIAddr != "192.168.1.10:5080" {
		t.Errorf("APIAddr = %q, want %q", result.APIAddr, "192.168.1.10:5080")
	}
	if len(result.SeedNodes) != 2 {
		t.Errorf("SeedNodes length = %d, want 2", len(result.SeedNodes))
	}
	if result.Logger == nil {
		t.Error("Logger should not be nil")
	}
}

func TestToDiscoveryConfig_APIAddrDefaultsToHTTP(t *testing.T) {
	logger := slog.Default()

	cfg := &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{Addr: "127.0.0.1:5080"},
		},
		Cluster: ClusterSection{
			NodeID:     "test-node",
			GossipAddr: "127.0.0.1",
			GossipPort: 5344,
		},
	}

	result, err := ToDiscoveryConfig(cfg, logger)
	if err != nil {
		t.Fatalf("ToDiscoveryConfig failed: %v", err)
	}

	if result.APIAddr != "127.0.0.1:5080" {
		t.Errorf("APIAddr = %q, want the HTTP addr", result.APIAddr)
	}
}

func TestToDiscoveryConfig_AutoGenerateNodeID(t *testing.T) {
	logger := slog.Default()

	cfg := &ServerConfig{
		Cluster: ClusterSection{
			NodeID:     "", // Empty, should be auto-generated
			GossipAddr: "127.0.0.1",
			GossipPort: 5344,
		},
	}

	result, err := ToDiscoveryConfig(cfg, logger)
	if err != nil {
		t.Fatalf("ToDiscoveryConfig failed: %v", err)
	}

	// Verify NodeID was generated
	if result.NodeID == "" {
		t.Error("NodeID should be auto-generated when empty")
	}

	// Verify NodeID format: "lmnode-<16 hex chars>"
	if !strings.HasPrefix(result.NodeID, "lmnode-") {
		t.Errorf("NodeID %q should start with 'lmnode-'", result.NodeID)
	}

	// Expected length: "lmnode-" (7) + 16 hex chars = 23
	if len(result.NodeID) != 23 {
		t.Errorf("NodeID length = %d, want 23", len(result.NodeID))
	}

	// The generated ID must be written back so later reads agree.
	if cfg.Cluster.NodeID != result.NodeID {
		t.Errorf("cfg.Cluster.NodeID = %q, want %q", cfg.Cluster.NodeID, result.NodeID)
	}
}

func TestToDiscoveryConfig_PreserveExistingNodeID(t *testing.T) {
	logger := slog.Default()

	existingNodeID := "custom-node-identifier"
	cfg := &ServerConfig{
		Cluster: ClusterSection{
			NodeID:     existingNodeID,
			GossipAddr: "127.0.0.1",
			GossipPort: 5344,
		},
	}

	result, err := ToDiscoveryConfig(cfg, logger)
	if err != nil {
		t.Fatalf("ToDiscoveryConfig failed: %v", err)
	}

	// Verify NodeID was preserved
	if result.NodeID != existingNodeID {
		t.Errorf("NodeID = %q, want %q", result.NodeID, existingNodeID)
	}
}

func TestToDiscoveryConfig_NilConfig(t *testing.T) {
	logger := slog.Default()

	_, err := ToDiscoveryConfig(nil, logger)
	if err == nil {
		t.Error("Expected error for nil config")
	}

	expectedMsg := "server config is nil"
	if err.Error() != expectedMsg {
		t.Errorf("Error message = %q, want %q", err.Error(), expectedMsg)
	}
}

func TestGenerateNodeID_Format(t *testing.T) {
	nodeID, err := generateNodeID()
	if err != nil {
		t.Fatalf("generateNodeID failed: %v", err)
	}

	// Verify format: "lmnode-<16 hex chars>"
	if !strings.HasPrefix(nodeID, "lmnode-") {
		t.Errorf("NodeID %q should start with 'lmnode-'", nodeID)
	}

	// Expected length: "lmnode-" (7) + 16 hex chars = 23
	if len(nodeID) != 23 {
		t.Errorf("NodeID length = %d, want 23", len(nodeID))
	}

	// Verify hex characters
	hexPart := nodeID[7:]
	for i, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("Character at position %d is not hex: %c", i, c)
		}
	}
}

func TestGenerateNodeID_Uniqueness(t *testing.T) {
	// Generate multiple NodeIDs and verify they are unique
	generated := make(map[string]bool)
	iterations := 100

	for i := 0; i < iterations; i++ {
		nodeID, err := generateNodeID()
		if err != nil {
			t.Fatalf("generateNodeID failed on iteration %d: %v", i, err)
		}

		if generated[nodeID] {
			t.Errorf("Duplicate NodeID generated: %s", nodeID)
		}
		generated[nodeID] = true
	}

	if len(generated) != iterations {
		t.Errorf("Generated %d unique IDs, want %d", len(generated), iterations)
	}
}
