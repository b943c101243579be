// Package domain defines the core domain models for LexMesh.
package domain

// EncryptionState is the per-node encryption lifecycle state reported
// to clients. The member set is closed; new states require a protocol
// revision.
type EncryptionState string

const (
	// StateComplete means every file of the core, including its
	// transaction log, is encrypted with the active key.
	StateComplete EncryptionState = "complete"

	// StateBusy means a key rotation or initial encryption is still
	// rewriting files.
	StateBusy EncryptionState = "busy"

	// StateTimeout means the distributed status collection hit its
	// time budget before all replicas replied. It is a terminal
	// response value, not an error.
	StateTimeout EncryptionState = "timeout"

	// StateError means a replica failed to report its state.
	StateError EncryptionState = "error"
)

// Valid reports whether s is a member of the closed state set.
func (s EncryptionState) Valid() bool {
	switch s {
	case StateComplete, StateBusy, StateTimeout, StateError:
		return true
	}
	return false
}

// Status codes accompanying an EncryptionState in responses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusTimeout = "timeout"
)

// NodeStatus is one replica's answer to an encryption status request.
type NodeStatus struct {
	// NodeID identifies the reporting replica. Empty for local-only
	// (non-distributed) answers.
	NodeID string `json:"node_id,omitempty"`

	// Status is the request outcome: success, failure, or timeout.
	Status string `json:"status"`

	// State is the replica's encryption lifecycle state.
	State EncryptionState `json:"encryption_state"`
}

// DistributedStatus is the coordinator-side aggregation of NodeStatus
// across all replicas of a core.
type DistributedStatus struct {
	// Overall is the single resolved status for the whole core.
	Overall NodeStatus `json:"overall"`

	// Owner is the node owning the core under consistent-hash
	// placement. Every coordinator resolves the same owner for a core.
	Owner string `json:"owner,omitempty"`

	// Nodes holds the individual replica answers that were collected
	// before the deadline.
	Nodes []NodeStatus `json:"nodes"`
}
