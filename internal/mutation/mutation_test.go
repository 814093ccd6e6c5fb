package mutation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestion-smac/smacctl/internal/api"
	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/entity"
	"github.com/gestion-smac/smacctl/internal/reconcile"
)

type staticToken string

func (t staticToken) Token() (string, error) { return string(t), nil }

func ptr(v int64) *int64 { return &v }

// newOps wires a store pre-filled with a small world and a client against
// the given server.
func newOps(t *testing.T, url string) *Ops {
	t.Helper()

	store := cache.New()
	cache.Put(store, cache.Lines, []entity.Line{
		{ID: 100, Number: "0611111111", Profile: "V", Status: entity.LineActive, DeviceID: ptr(20)},
	})
	cache.Put(store, cache.Devices, []entity.Device{
		{ID: 20, IMEI: "222222222222222", Status: entity.DeviceAssigned, ModelID: 1, AgentID: ptr(2)},
	})
	cache.Put(store, cache.Agents, []entity.Agent{
		{ID: 2, Email: "marie.curie@example.fr", FirstName: "Marie", LastName: "Curie", ServiceID: 1,
			Devices: []entity.DeviceRef{{ID: 20, IMEI: "222222222222222"}}},
	})

	return &Ops{
		Store:  store,
		Client: api.NewClient(url, http.DefaultClient, staticToken("tok"), slog.Default()),
		Logger: slog.Default(),
	}
}

func TestCreateLine_RollbackOnNetworkFailure(t *testing.T) {
	// Any mutation that optimistically updates a cache and then fails at
	// the network layer must leave the cache exactly as it was.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	before := cache.Collection[entity.Line](o.Store, cache.Lines)
	beforeDevices := cache.Collection[entity.Device](o.Store, cache.Devices)

	plan := reconcile.Plan{
		Line:     entity.Line{Number: "5551234567", Profile: "VD", Status: entity.LineActive, DeviceID: ptr(20)},
		SetOwner: &reconcile.OwnerWrite{DeviceID: 20, AgentID: nil},
	}

	_, err := o.CreateLine(context.Background(), plan)
	require.Error(t, err)

	assert.Equal(t, before, cache.Collection[entity.Line](o.Store, cache.Lines))
	assert.Equal(t, beforeDevices, cache.Collection[entity.Device](o.Store, cache.Devices))
}

func TestCreateLine_ReconcilesServerIDAndDetachesOtherLine(t *testing.T) {
	var patchedLine atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/lines":
			var in entity.Line
			_ = json.NewDecoder(r.Body).Decode(&in)
			in.ID = 42
			_ = json.NewEncoder(w).Encode(in)
		case r.Method == http.MethodPatch && r.URL.Path == "/api/lines/100":
			patchedLine.Store(100)
			_ = json.NewEncoder(w).Encode(entity.Line{ID: 100, Number: "0611111111"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	detach := int64(100)
	plan := reconcile.Plan{
		Line:       entity.Line{Number: "5551234567", Profile: "VD", Status: entity.LineActive, DeviceID: ptr(20), AgentID: ptr(2)},
		DetachLine: &detach,
	}

	created, err := o.CreateLine(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)

	lines := cache.Collection[entity.Line](o.Store, cache.Lines)
	require.Len(t, lines, 2)

	// The placeholder was replaced by the server record.
	assert.Equal(t, int64(42), lines[0].ID)

	// No other line retains the device.
	for _, l := range lines {
		if l.ID != 42 {
			assert.Nil(t, l.DeviceID)
		}
	}

	assert.Equal(t, int64(100), patchedLine.Load(), "accompanying detach PATCH was sent")
}

func TestCreateLine_OwnerWritePropagatesAcrossCaches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			var in entity.Line
			_ = json.NewDecoder(r.Body).Decode(&in)
			in.ID = 43
			_ = json.NewEncoder(w).Encode(in)
		default:
			_ = json.NewEncoder(w).Encode(entity.Device{ID: 20})
		}
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	// Strip device 20's owner while creating an ownerless line.
	plan := reconcile.Plan{
		Line:     entity.Line{Number: "5551234567", Profile: "V", Status: entity.LineActive, DeviceID: ptr(20)},
		SetOwner: &reconcile.OwnerWrite{DeviceID: 20, AgentID: nil},
	}

	_, err := o.CreateLine(context.Background(), plan)
	require.NoError(t, err)

	devices := cache.Collection[entity.Device](o.Store, cache.Devices)
	require.Len(t, devices, 1)
	assert.Nil(t, devices[0].AgentID)

	agents := cache.Collection[entity.Agent](o.Store, cache.Agents)
	require.Len(t, agents, 1)
	assert.Empty(t, agents[0].Devices, "device reference removed from previous owner")
}

func TestCreateLine_RollbackWhenAccompanyingWriteFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var in entity.Line
			_ = json.NewDecoder(r.Body).Decode(&in)
			in.ID = 44
			_ = json.NewEncoder(w).Encode(in)

			return
		}

		// The detach PATCH fails.
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	before := o.Store.Snapshot(cache.Lines, cache.Devices, cache.Agents)

	detach := int64(100)
	plan := reconcile.Plan{
		Line:       entity.Line{Number: "5551234567", Profile: "V", Status: entity.LineActive, DeviceID: ptr(20)},
		DetachLine: &detach,
	}

	_, err := o.CreateLine(context.Background(), plan)
	require.Error(t, err)

	after := o.Store.Snapshot(cache.Lines, cache.Devices, cache.Agents)
	assert.Equal(t, before, after)
}

func TestUpdateLine_NoopShortCircuit(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	prior := cache.Collection[entity.Line](o.Store, cache.Lines)[0]

	_, err := o.UpdateLine(context.Background(), prior, reconcile.Plan{Line: prior})
	assert.ErrorIs(t, err, ErrNoChanges)
	assert.Zero(t, calls.Load(), "an empty diff never triggers a network call")
}

func TestUpdateLine_PatchesDiffAndReconciles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/lines/100", r.URL.Path)

		var diff map[string]any
		_ = json.NewDecoder(r.Body).Decode(&diff)
		assert.Equal(t, "renewed", diff["comments"])
		assert.NotContains(t, diff, "number", "unchanged fields stay out of the diff")

		_ = json.NewEncoder(w).Encode(entity.Line{
			ID: 100, Number: "0611111111", Profile: "V", Status: entity.LineActive,
			Comments: "renewed", DeviceID: ptr(20),
		})
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	prior := cache.Collection[entity.Line](o.Store, cache.Lines)[0]
	next := prior
	next.Comments = "renewed"

	updated, err := o.UpdateLine(context.Background(), prior, reconcile.Plan{Line: next})
	require.NoError(t, err)
	assert.Equal(t, "renewed", updated.Comments)

	lines := cache.Collection[entity.Line](o.Store, cache.Lines)
	require.Len(t, lines, 1)
	assert.Equal(t, "renewed", lines[0].Comments)
}

func TestDeleteLine_RollbackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	before := cache.Collection[entity.Line](o.Store, cache.Lines)

	err := o.DeleteLine(context.Background(), 100)
	require.Error(t, err)
	assert.Equal(t, before, cache.Collection[entity.Line](o.Store, cache.Lines))
}

func TestDeleteDevice_ClearsAllReferences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	require.NoError(t, o.DeleteDevice(context.Background(), 20))

	assert.Empty(t, cache.Collection[entity.Device](o.Store, cache.Devices))

	lines := cache.Collection[entity.Line](o.Store, cache.Lines)
	require.Len(t, lines, 1)
	assert.Nil(t, lines[0].DeviceID)

	agents := cache.Collection[entity.Agent](o.Store, cache.Agents)
	require.Len(t, agents, 1)
	assert.Empty(t, agents[0].Devices)
}

func TestCreateDevice_DuplicateIMEIFailsLocally(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	_, err := o.CreateDevice(context.Background(), entity.Device{
		IMEI: "222222222222222", Status: entity.DeviceInStock, ModelID: 1,
	})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "imei")
	assert.Zero(t, calls.Load(), "uniqueness mismatch fails fast without a network call")
}

func TestCreateAgent_DuplicateEmailFailsLocally(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	_, err := o.CreateAgent(context.Background(), entity.Agent{
		Email: "MARIE.CURIE@example.fr", FirstName: "M", LastName: "C", ServiceID: 1,
	})
	require.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestCreateService_OptimisticThenReconciled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in entity.Service
		_ = json.NewDecoder(r.Body).Decode(&in)
		in.ID = 7
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	created, err := o.CreateService(context.Background(), entity.Service{Title: "DSI"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)

	services := cache.Collection[entity.Service](o.Store, cache.Services)
	require.Len(t, services, 1)
	assert.Equal(t, int64(7), services[0].ID, "placeholder replaced by server ID")
}

func TestUpdateUser_NoopShortCircuit(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	o := newOps(t, srv.URL)

	u := entity.User{ID: 1, Email: "admin@example.fr"}
	_, err := o.UpdateUser(context.Background(), u, u)
	assert.ErrorIs(t, err, ErrNoChanges)
	assert.Zero(t, calls.Load())
}

func TestMutation_StateTransitions(t *testing.T) {
	store := cache.New()

	m := Begin(store, cache.Lines)
	assert.Equal(t, StatePending, m.State())

	m.Commit()
	assert.Equal(t, StateCommitted, m.State())

	assert.Panics(t, func() { m.Commit() })
	assert.Panics(t, func() { m.Rollback() })
	assert.Panics(t, func() { m.Stage(cache.Lines, func(cur any) any { return cur }) })
}

func TestBegin_CancelsInFlightRefresh(t *testing.T) {
	store := cache.New()
	cache.Put(store, cache.Lines, []entity.Line{{ID: 1}})

	gen := store.BeginFetch(cache.Lines)

	m := Begin(store, cache.Lines)
	m.Stage(cache.Lines, func(any) any { return []entity.Line{{ID: 1}, {ID: -5}} })

	// The refresh that was in flight when the mutation began must not land.
	stored := store.CompleteFetch(cache.Lines, gen, []entity.Line{{ID: 1}})
	assert.False(t, stored)

	m.Commit()
	assert.Len(t, cache.Collection[entity.Line](store, cache.Lines), 2)
}

func TestTempID_AlwaysNegative(t *testing.T) {
	for range 100 {
		assert.Negative(t, tempID())
	}
}
