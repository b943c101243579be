package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/lexmesh-go/internal/cluster"
	"github.com/yndnr/lexmesh-go/internal/core/domain"
)

// fakeStatus is a StatusSource backed by a map.
type fakeStatus struct {
	states map[string]domain.EncryptionState
}

func (f *fakeStatus) State(_ context.Context, coreName string) (domain.EncryptionState, error) {
	state, ok := f.states[coreName]
	if !ok {
		return "", domain.ErrCoreNotFound.WithDetails(coreName)
	}
	return state, nil
}

// fakeActivator records activations.
type fakeActivator struct {
	core   string
	keyRef string
	err    error
}

func (f *fakeActivator) ActivateKey(_ context.Context, coreName, keyRef string) error {
	if f.err != nil {
		return f.err
	}
	f.core = coreName
	f.keyRef = keyRef
	return nil
}

// fakeMinter returns a fixed cookie.
type fakeMinter struct{}

func (fakeMinter) KeyCookie(_ context.Context, keyID string, params map[string]string) (map[string]string, error) {
	if !strings.HasPrefix(keyID, "lmk_") {
		return nil, domain.ErrKeyValidation.WithDetails(keyID)
	}
	cookie := map[string]string{"key_id": keyID}
	for k, v := range params {
		cookie[k] = v
	}
	return cookie, nil
}

func newTestHandler(t *testing.T, cfg Config) *Handler {
	t.Helper()
	if cfg.Status == nil {
		cfg.Status = &fakeStatus{states: map[string]domain.EncryptionState{
			"products": domain.StateComplete,
		}}
	}
	if cfg.Keys == nil {
		cfg.Keys = fakeMinter{}
	}
	if cfg.Activator == nil {
		cfg.Activator = &fakeActivator{}
	}
	return New(cfg)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data any) *Response {
	t.Helper()
	var resp Response
	raw := rec.Body.Bytes()
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, raw)
	}
	if data != nil {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("decode data wrapper: %v", err)
		}
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return &resp
}

func TestHandler_LocalStatus(t *testing.T) {
	h := newTestHandler(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/encryption/products/status?distrib=false", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var ns domain.NodeStatus
	decodeResponse(t, rec, &ns)

	if ns.Status != domain.StatusSuccess {
		t.Errorf("expected status success, got %q", ns.Status)
	}
	if ns.State != domain.StateComplete {
		t.Errorf("expected state complete, got %q", ns.State)
	}
}

func TestHandler_LocalStatus_UnknownCore(t *testing.T) {
	h := newTestHandler(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/encryption/missing/status?distrib=false", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	resp := decodeResponse(t, rec, nil)
	if resp.Code != "LM-CORE-4040" {
		t.Errorf("expected code LM-CORE-4040, got %q", resp.Code)
	}
}

func TestHandler_StatusWithoutRegistryIsLocal(t *testing.T) {
	// No registry configured: distrib requests degrade to local answers.
	h := newTestHandler(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/encryption/products/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var ns domain.NodeStatus
	decodeResponse(t, rec, &ns)
	if ns.State != domain.StateComplete {
		t.Errorf("expected state complete, got %q", ns.State)
	}
}

// remoteMember runs a participant handler as an httptest server and
// returns its cluster node entry.
func remoteMember(t *testing.T, id string, state domain.EncryptionState) cluster.Node {
	t.Helper()
	h := newTestHandler(t, Config{
		Status: &fakeStatus{states: map[string]domain.EncryptionState{
			"products": state,
		}},
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	return cluster.Node{ID: id, APIAddr: u.Host}
}

func TestHandler_DistributedStatus_AllComplete(t *testing.T) {
	local := cluster.Node{ID: "lmnode-aaaa", APIAddr: "127.0.0.1:0"}
	remote := remoteMember(t, "lmnode-bbbb", domain.StateComplete)

	registry := cluster.NewStaticRegistry(local, []cluster.Node{remote})
	h := newTestHandler(t, Config{
		Registry:       registry,
		DistribTimeout: 5 * time.Second,
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/encryption/products/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var ds domain.DistributedStatus
	decodeResponse(t, rec, &ds)

	if ds.Overall.Status != domain.StatusSuccess {
		t.Errorf("expected overall success, got %q", ds.Overall.Status)
	}
	if ds.Overall.State != domain.StateComplete {
		t.Errorf("expected overall complete, got %q", ds.Overall.State)
	}
	if len(ds.Nodes) != 2 {
		t.Fatalf("expected 2 node answers, got %d", len(ds.Nodes))
	}
	for _, n := range ds.Nodes {
		if n.Status != domain.StatusSuccess {
			t.Errorf("node %s: expected success, got %q", n.NodeID, n.Status)
		}
	}
}

func TestHandler_DistributedStatus_ReportsOwner(t *testing.T) {
	local := cluster.Node{ID: "lmnode-aaaa", APIAddr: "127.0.0.1:0"}
	remote := remoteMember(t, "lmnode-bbbb", domain.StateComplete)

	registry := cluster.NewStaticRegistry(local, []cluster.Node{remote})
	h := newTestHandler(t, Config{
		Registry:       registry,
		DistribTimeout: 5 * time.Second,
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/encryption/products/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var ds domain.DistributedStatus
	decodeResponse(t, rec, &ds)

	// Placement is deterministic over the member list, so the reported
	// owner must match what any node would compute for this core.
	want, ok := cluster.RouteCore("products", registry.Members())
	if !ok {
		t.Fatal("RouteCore() found no owner for a non-empty member list")
	}
	if ds.Owner != want.ID {
		t.Errorf("owner = %q, want %q", ds.Owner, want.ID)
	}
}

func TestHandler_DistributedStatus_TLSReplica(t *testing.T) {
	remote := newTestHandler(t, Config{
		Status: &fakeStatus{states: map[string]domain.EncryptionState{
			"products": domain.StateBusy,
		}},
	})
	srv := httptest.NewTLSServer(remote)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	member := cluster.Node{ID: "lmnode-tls0", APIAddr: u.Host}
	local := cluster.Node{ID: "lmnode-aaaa", APIAddr: "127.0.0.1:0"}

	registry := cluster.NewStaticRegistry(local, []cluster.Node{member})
	h := newTestHandler(t, Config{
		Registry:       registry,
		DistribTimeout: 5 * time.Second,
		RemoteScheme:   "https",
		Client:         srv.Client(),
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/encryption/products/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var ds domain.DistributedStatus
	decodeResponse(t, rec, &ds)

	// The TLS replica must be reachable, not degraded to a failure entry.
	if ds.Overall.State != domain.StateBusy {
		t.Errorf("expected overall busy, got %q", ds.Overall.State)
	}
	for _, n := range ds.Nodes {
		if n.NodeID == "lmnode-tls0" && n.State != domain.StateBusy {
			t.Errorf("TLS replica answer = %+v, want busy", n)
		}
	}
}

func TestHandler_DistributedStatus_BusyWins(t *testing.T) {
	local := cluster.Node{ID: "lmnode-aaaa", APIAddr: "127.0.0.1:0"}
	remote := remoteMember(t, "lmnode-bbbb", domain.StateBusy)

	registry := cluster.NewStaticRegistry(local, []cluster.Node{remote})
	h := newTestHandler(t, Config{
		Registry:       registry,
		DistribTimeout: 5 * time.Second,
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/encryption/products/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var ds domain.DistributedStatus
	decodeResponse(t, rec, &ds)

	if ds.Overall.State != domain.StateBusy {
		t.Errorf("expected overall busy, got %q", ds.Overall.State)
	}
	if ds.Overall.Status != domain.StatusSuccess {
		t.Errorf("busy is still a success status, got %q", ds.Overall.Status)
	}
}

func TestHandler_DistributedStatus_UnreachableReplicaIsFailure(t *testing.T) {
	local := cluster.Node{ID: "lmnode-aaaa", APIAddr: "127.0.0.1:0"}
	// Nothing listens on this address.
	dead := cluster.Node{ID: "lmnode-dead", APIAddr: "127.0.0.1:1"}

	registry := cluster.NewStaticRegistry(local, []cluster.Node{dead})
	h := newTestHandler(t, Config{
		Registry:       registry,
		DistribTimeout: 2 * time.Second,
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/encryption/products/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var ds domain.DistributedStatus
	decodeResponse(t, rec, &ds)

	if ds.Overall.State != domain.StateError {
		t.Errorf("expected overall error, got %q", ds.Overall.State)
	}
	if ds.Overall.Status != domain.StatusFailure {
		t.Errorf("expected overall failure, got %q", ds.Overall.Status)
	}

	var deadAnswer *domain.NodeStatus
	for i := range ds.Nodes {
		if ds.Nodes[i].NodeID == "lmnode-dead" {
			deadAnswer = &ds.Nodes[i]
		}
	}
	if deadAnswer == nil {
		t.Fatal("expected an answer entry for the unreachable node")
	}
	if deadAnswer.Status != domain.StatusFailure || deadAnswer.State != domain.StateError {
		t.Errorf("unexpected dead node answer: %+v", *deadAnswer)
	}
}

func TestHandler_DistributedStatus_ForcedTimeout(t *testing.T) {
	local := cluster.Node{ID: "lmnode-aaaa", APIAddr: "127.0.0.1:0"}
	remote := remoteMember(t, "lmnode-bbbb", domain.StateComplete)

	registry := cluster.NewStaticRegistry(local, []cluster.Node{remote})
	h := newTestHandler(t, Config{
		Registry:       registry,
		DistribTimeout: 5 * time.Second,
		// Every deadline check reports expiry: no answer can be collected.
		IsTimeout: func(time.Time) bool { return true },
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/encryption/products/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("timeout must not be an HTTP error, got %d", rec.Code)
	}

	var ds domain.DistributedStatus
	decodeResponse(t, rec, &ds)

	if ds.Overall.Status != domain.StatusTimeout {
		t.Errorf("expected overall timeout, got %q", ds.Overall.Status)
	}
	if ds.Overall.State != domain.StateTimeout {
		t.Errorf("expected overall state timeout, got %q", ds.Overall.State)
	}
	if len(ds.Nodes) != 2 {
		t.Fatalf("expected 2 node entries, got %d", len(ds.Nodes))
	}
	for _, n := range ds.Nodes {
		if n.Status != domain.StatusTimeout || n.State != domain.StateTimeout {
			t.Errorf("node %s: expected timeout entry, got %+v", n.NodeID, n)
		}
	}
}

func TestSeverityPolicy_Ordering(t *testing.T) {
	tests := []struct {
		name   string
		states []domain.EncryptionState
		want   domain.EncryptionState
	}{
		{"empty", nil, domain.StateTimeout},
		{"all complete", []domain.EncryptionState{domain.StateComplete, domain.StateComplete}, domain.StateComplete},
		{"busy over complete", []domain.EncryptionState{domain.StateComplete, domain.StateBusy}, domain.StateBusy},
		{"timeout over busy", []domain.EncryptionState{domain.StateBusy, domain.StateTimeout}, domain.StateTimeout},
		{"error over timeout", []domain.EncryptionState{domain.StateTimeout, domain.StateError, domain.StateComplete}, domain.StateError},
	}

	var policy SeverityPolicy
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := make([]domain.NodeStatus, len(tt.states))
			for i, s := range tt.states {
				nodes[i] = domain.NodeStatus{State: s}
			}
			if got := policy.Aggregate(nodes); got != tt.want {
				t.Errorf("Aggregate(%v) = %q, want %q", tt.states, got, tt.want)
			}
		})
	}
}

func TestHandler_ActivateKey(t *testing.T) {
	activator := &fakeActivator{}
	h := newTestHandler(t, Config{Activator: activator})

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/encryption/products/keys/7/activate", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if activator.core != "products" || activator.keyRef != "7" {
		t.Errorf("activator called with (%q, %q)", activator.core, activator.keyRef)
	}

	var data ActivateKeyResponse
	decodeResponse(t, rec, &data)
	if data.State != domain.StateBusy {
		t.Errorf("expected state busy after activation, got %q", data.State)
	}
}

func TestHandler_ActivateKey_UnknownKey(t *testing.T) {
	h := newTestHandler(t, Config{
		Activator: &fakeActivator{err: domain.ErrKeyNotFound.WithDetails("99")},
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/encryption/products/keys/99/activate", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	resp := decodeResponse(t, rec, nil)
	if resp.Code != "LM-KEY-4040" {
		t.Errorf("expected code LM-KEY-4040, got %q", resp.Code)
	}
}

func TestHandler_KeyCookie(t *testing.T) {
	h := newTestHandler(t, Config{})

	body := strings.NewReader(`{"params":{"cipher":"aes-ctr"}}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/v1/keys/lmk_01jd8f/cookie", body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var data KeyCookieResponse
	decodeResponse(t, rec, &data)
	if data.KeyID != "lmk_01jd8f" {
		t.Errorf("unexpected key_id %q", data.KeyID)
	}
	if data.Cookie["cipher"] != "aes-ctr" {
		t.Errorf("caller params missing from cookie: %v", data.Cookie)
	}
}

func TestHandler_KeyCookie_EmptyBody(t *testing.T) {
	h := newTestHandler(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/keys/lmk_01jd8f/cookie", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("empty body should mint a bare cookie, got %d", rec.Code)
	}
}

func TestHandler_Health(t *testing.T) {
	h := newTestHandler(t, Config{})

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
