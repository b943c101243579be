// Package handler provides HTTP request handlers for LexMesh.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/yndnr/lexmesh-go/internal/cluster"
	"github.com/yndnr/lexmesh-go/internal/core/domain"
)

// StatusSource answers local encryption state queries for a core.
// *service.EncryptionService satisfies this.
type StatusSource interface {
	State(ctx context.Context, coreName string) (domain.EncryptionState, error)
}

// KeyActivator applies a key activation to a core.
// *service.EncryptionService satisfies this.
type KeyActivator interface {
	ActivateKey(ctx context.Context, coreName, keyRef string) error
}

// CookieMinter mints key cookies. keystore.Supplier satisfies this.
type CookieMinter interface {
	KeyCookie(ctx context.Context, keyID string, params map[string]string) (map[string]string, error)
}

// AggregatePolicy resolves a set of per-node answers into one overall
// encryption state. Implementations must tolerate an empty slice.
//
// @design DS-0303
type AggregatePolicy interface {
	Aggregate(nodes []domain.NodeStatus) domain.EncryptionState
}

// SeverityPolicy is the default aggregation: the most severe state
// among the answers wins, ordered error > timeout > busy > complete.
// An empty answer set resolves to timeout.
type SeverityPolicy struct{}

// Aggregate implements AggregatePolicy.
func (SeverityPolicy) Aggregate(nodes []domain.NodeStatus) domain.EncryptionState {
	if len(nodes) == 0 {
		return domain.StateTimeout
	}

	rank := func(s domain.EncryptionState) int {
		switch s {
		case domain.StateError:
			return 3
		case domain.StateTimeout:
			return 2
		case domain.StateBusy:
			return 1
		default:
			return 0
		}
	}

	worst := nodes[0].State
	for _, n := range nodes[1:] {
		if rank(n.State) > rank(worst) {
			worst = n.State
		}
	}
	return worst
}

// statusForState derives the response status code from a resolved state.
func statusForState(state domain.EncryptionState) string {
	switch state {
	case domain.StateError:
		return domain.StatusFailure
	case domain.StateTimeout:
		return domain.StatusTimeout
	default:
		return domain.StatusSuccess
	}
}

// handleEncryptionStatus handles GET /admin/v1/encryption/{core}/status.
//
// Without distrib=false the node acts as coordinator: it fans the query
// out to every cluster member and aggregates the answers. With
// distrib=false it answers for itself only, which is the form the
// coordinator's sub-requests take.
//
// @design DS-0302
func (h *Handler) handleEncryptionStatus(w http.ResponseWriter, r *http.Request) {
	coreName := r.PathValue("core")

	distrib := true
	if v := r.URL.Query().Get("distrib"); v == "false" {
		distrib = false
	}

	if !distrib || h.registry == nil {
		h.handleLocalStatus(w, r, coreName, distrib)
		return
	}

	start := h.now()
	result, err := h.collectStatus(r.Context(), coreName)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.StatusRequests.WithLabelValues("true", result.Overall.Status).Inc()
		h.metrics.StatusDuration.Observe(h.now().Sub(start).Seconds())
	}

	h.writeJSON(w, r, http.StatusOK, result)
}

// handleLocalStatus answers an encryption status query for this node only.
func (h *Handler) handleLocalStatus(w http.ResponseWriter, r *http.Request, coreName string, distrib bool) {
	state, err := h.status.State(r.Context(), coreName)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	ns := domain.NodeStatus{
		NodeID: h.localNodeID(),
		Status: statusForState(state),
		State:  state,
	}

	if h.metrics != nil {
		h.metrics.StatusRequests.WithLabelValues(fmt.Sprintf("%t", distrib), ns.Status).Inc()
	}

	h.writeJSON(w, r, http.StatusOK, ns)
}

// collectStatus fans a status query out to every cluster member and
// gathers the answers until all arrive or the time budget runs out.
// Members that did not answer in time are recorded with a timeout
// status; a timeout is a terminal response value, never an error.
//
// @design DS-0302
func (h *Handler) collectStatus(ctx context.Context, coreName string) (*domain.DistributedStatus, error) {
	deadline := h.now().Add(h.timeout)
	members := h.registry.Members()
	local := h.registry.LocalNode()

	subCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	results := make(chan domain.NodeStatus, len(members))
	for _, m := range members {
		go func(m cluster.Node) {
			results <- h.queryMember(subCtx, m, local, coreName)
		}(m)
	}

	collected := make(map[string]domain.NodeStatus, len(members))
	timedOut := false

	for i := 0; i < len(members); i++ {
		if h.isTimeout(deadline) {
			timedOut = true
			break
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			timedOut = true
			break
		}

		timer := time.NewTimer(wait)
		select {
		case ns := <-results:
			collected[ns.NodeID] = ns
		case <-timer.C:
			timedOut = true
		case <-ctx.Done():
			timedOut = true
		}
		timer.Stop()

		if timedOut {
			break
		}
	}

	nodes := make([]domain.NodeStatus, 0, len(members))
	for _, m := range members {
		if ns, ok := collected[m.ID]; ok {
			nodes = append(nodes, ns)
			continue
		}
		// Not heard from before the deadline.
		nodes = append(nodes, domain.NodeStatus{
			NodeID: m.ID,
			Status: domain.StatusTimeout,
			State:  domain.StateTimeout,
		})
	}

	overall := h.policy.Aggregate(nodes)
	if timedOut {
		overall = domain.StateTimeout
	}

	var owner string
	if o, ok := cluster.RouteCore(coreName, members); ok {
		owner = o.ID
	}

	return &domain.DistributedStatus{
		Overall: domain.NodeStatus{
			Status: statusForState(overall),
			State:  overall,
		},
		Owner: owner,
		Nodes: nodes,
	}, nil
}

// queryMember obtains one member's answer, in-process for the local
// node and over HTTP for remote ones. Failures surface as a failure
// answer rather than an error so the aggregation can proceed.
func (h *Handler) queryMember(ctx context.Context, m, local cluster.Node, coreName string) domain.NodeStatus {
	if m.ID == local.ID {
		state, err := h.status.State(ctx, coreName)
		if err != nil {
			return domain.NodeStatus{NodeID: m.ID, Status: domain.StatusFailure, State: domain.StateError}
		}
		return domain.NodeStatus{NodeID: m.ID, Status: statusForState(state), State: state}
	}

	ns, err := h.queryRemote(ctx, m, coreName)
	if err != nil {
		h.logger.Warn("replica status query failed",
			"node_id", m.ID,
			"core", coreName,
			"error", err,
		)
		return domain.NodeStatus{NodeID: m.ID, Status: domain.StatusFailure, State: domain.StateError}
	}
	ns.NodeID = m.ID
	return ns
}

// queryRemote issues the distrib=false sub-request to a remote member.
func (h *Handler) queryRemote(ctx context.Context, m cluster.Node, coreName string) (domain.NodeStatus, error) {
	u := fmt.Sprintf("%s://%s/admin/v1/encryption/%s/status?distrib=false",
		h.scheme, m.APIAddr, url.PathEscape(coreName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.NodeStatus{}, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return domain.NodeStatus{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NodeStatus{}, fmt.Errorf("replica returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Code string            `json:"code"`
		Data domain.NodeStatus `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.NodeStatus{}, fmt.Errorf("decode replica response: %w", err)
	}
	if !envelope.Data.State.Valid() {
		return domain.NodeStatus{}, fmt.Errorf("replica reported unknown state %q", envelope.Data.State)
	}
	return envelope.Data, nil
}

// handleActivateKey handles POST /admin/v1/encryption/{core}/keys/{key_ref}/activate.
//
// @design DS-0302
func (h *Handler) handleActivateKey(w http.ResponseWriter, r *http.Request) {
	coreName := r.PathValue("core")
	keyRef := r.PathValue("key_ref")

	if err := h.activator.ActivateKey(r.Context(), coreName, keyRef); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.KeyActivations.Inc()
	}

	h.logger.Info("encryption key activated",
		"core", coreName,
		"key_ref", keyRef,
	)

	h.writeJSON(w, r, http.StatusOK, ActivateKeyResponse{
		Core:   coreName,
		KeyRef: keyRef,
		State:  domain.StateBusy,
	})
}

// localNodeID returns this node's cluster ID, or empty when running
// single-node.
func (h *Handler) localNodeID() string {
	if h.registry == nil {
		return ""
	}
	return h.registry.LocalNode().ID
}
