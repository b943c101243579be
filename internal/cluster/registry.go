// Package cluster provides node membership for distributed status
// aggregation, backed by Gossip discovery.
//
// @design DS-0401
package cluster

import (
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"
)

// Node is one cluster member as seen by the aggregation layer.
type Node struct {
	// ID is the unique node identifier.
	ID string `json:"id"`

	// APIAddr is the node's admin API address (host:port).
	APIAddr string `json:"api_addr"`
}

// Registry lists the nodes participating in a distributed operation.
type Registry interface {
	// Members returns all live members, the local node included.
	Members() []Node

	// LocalNode returns this node.
	LocalNode() Node
}

// RouteCore picks the member owning coreName. Assignment is by
// consistent hash over the sorted member list so every node routes a
// core to the same owner.
func RouteCore(coreName string, members []Node) (Node, bool) {
	if len(members) == 0 {
		return Node{}, false
	}

	sorted := make([]Node, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	idx := murmur3.Sum32([]byte(coreName)) % uint32(len(sorted))
	return sorted[idx], true
}

// StaticRegistry is a fixed member list, used for single-node
// deployments and tests.
type StaticRegistry struct {
	mu      sync.RWMutex
	local   Node
	members []Node
}

// NewStaticRegistry creates a registry with a fixed member list. The
// local node is added when absent from members.
func NewStaticRegistry(local Node, members []Node) *StaticRegistry {
	found := false
	for _, m := range members {
		if m.ID == local.ID {
			found = true
			break
		}
	}
	if !found {
		members = append([]Node{local}, members...)
	}
	return &StaticRegistry{local: local, members: members}
}

// Members implements Registry.
func (r *StaticRegistry) Members() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Node, len(r.members))
	copy(out, r.members)
	return out
}

// LocalNode implements Registry.
func (r *StaticRegistry) LocalNode() Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.local
}

// SetMembers replaces the member list.
func (r *StaticRegistry) SetMembers(members []Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = members
}
