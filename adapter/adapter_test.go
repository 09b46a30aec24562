/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package adapter_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/transientspace/adapter"
	"github.com/suparena/transientspace/datastore"
	"github.com/suparena/transientspace/datastore/mock"
	"github.com/suparena/transientspace/datastore/testmodels"
	tserrors "github.com/suparena/transientspace/errors"
	"github.com/suparena/transientspace/metrics"
	"github.com/suparena/transientspace/objectmap"
	"github.com/suparena/transientspace/objectspace"
	"github.com/suparena/transientspace/session"
	"github.com/suparena/transientspace/storagemodels"
)

type fixture struct {
	space   *objectspace.Space
	adapter *adapter.TransientAdapter
	store   *mock.Storage
}

func newFixture(t *testing.T, opts ...adapter.Option) *fixture {
	t.Helper()
	store := mock.New()
	require.NoError(t, store.Seed(
		&testmodels.Customer{ID: 1, Name: "Acme", Region: "EMEA"},
		&testmodels.Customer{ID: 2, Name: "Beta", Region: "APAC"},
		&testmodels.Product{SKU: "A1", Name: "Anvil", Price: 10},
	))
	return newFixtureOn(t, store, opts...)
}

func newFixtureOn(t *testing.T, store *mock.Storage, opts ...adapter.Option) *fixture {
	t.Helper()
	space := objectspace.New()
	objects := objectmap.New(testmodels.CustomerType, testmodels.ProductType)
	return &fixture{
		space:   space,
		adapter: adapter.New(space, objects, store, opts...),
		store:   store,
	}
}

func (f *fixture) customer(t *testing.T, id int) *testmodels.Customer {
	t.Helper()
	obj, err := f.space.GetObjectByKey(context.Background(), testmodels.CustomerType, id)
	require.NoError(t, err)
	if obj == nil {
		return nil
	}
	c, ok := obj.(*testmodels.Customer)
	require.True(t, ok, "expected *Customer, got %T", obj)
	return c
}

func TestIdentityScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.customer(t, 1)
	require.NotNil(t, a)
	assert.Equal(t, "Acme", a.Name)
	assert.Equal(t, 1, f.store.GetCalls())
	assert.True(t, f.adapter.Objects().Contains(a))

	again := f.customer(t, 1)
	assert.Same(t, a, again, "second resolution must return the cached instance")
	assert.Equal(t, 1, f.store.GetCalls(), "cache hit must not reach storage")

	f.space.Reload(ctx)
	assert.Equal(t, 0, f.adapter.Objects().Len())

	b := f.customer(t, 1)
	require.NotNil(t, b)
	assert.NotSame(t, a, b, "reload must invalidate the cached instance")
	assert.Equal(t, a.Name, b.Name)
	assert.Equal(t, 2, f.store.GetCalls())
}

func TestObjectByKeyAbsent(t *testing.T) {
	f := newFixture(t)

	assert.Nil(t, f.customer(t, 404))
	assert.Equal(t, 1, f.store.GetCalls())
	assert.Equal(t, 0, f.adapter.Objects().Len(), "absent results are not cached")

	// Absent is not remembered, storage is asked again
	assert.Nil(t, f.customer(t, 404))
	assert.Equal(t, 2, f.store.GetCalls())
}

func TestObjectByKeyDeclines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	e := &session.ObjectByKeyGettingEvent{Type: testmodels.CustomerType}
	require.NoError(t, f.adapter.ObjectByKeyGetting(ctx, e))
	assert.Nil(t, e.Object(), "nil key is declined")

	e = &session.ObjectByKeyGettingEvent{Type: testmodels.InvoiceType, Key: "INV-1"}
	require.NoError(t, f.adapter.ObjectByKeyGetting(ctx, e))
	assert.Nil(t, e.Object(), "unmanaged type is declined")
	assert.Equal(t, 0, f.store.GetCalls())
}

func TestNewObjectIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fresh := &testmodels.Customer{ID: 9, Name: "Nova"}
	require.NoError(t, f.space.CreateObject(fresh))

	got, err := f.space.GetObject(ctx, fresh)
	require.NoError(t, err)
	assert.Same(t, fresh, got, "a new object resolves to itself")

	reloaded, err := f.space.ReloadObject(ctx, fresh)
	require.NoError(t, err)
	assert.Nil(t, reloaded, "a new object has nothing to reload")
	assert.Equal(t, 0, f.store.GetCalls(), "new objects are never looked up in storage")
	assert.False(t, f.space.Contains(fresh))
}

func TestObjectGetting(t *testing.T) {
	ctx := context.Background()

	t.Run("CachedObjectOfThisSession", func(t *testing.T) {
		f := newFixture(t)
		a := f.customer(t, 1)

		got, err := f.space.GetObject(ctx, a)
		require.NoError(t, err)
		assert.Same(t, a, got)
		assert.Equal(t, 1, f.store.GetCalls())
	})

	t.Run("ObjectFromAnotherSession", func(t *testing.T) {
		f := newFixture(t)
		other := newFixtureOn(t, f.store)
		foreign := other.customer(t, 1)
		require.NotNil(t, foreign)

		got, err := f.space.GetObject(ctx, foreign)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NotSame(t, foreign, got, "foreign objects are re-homed")

		local := f.customer(t, 1)
		assert.Same(t, local, got, "the re-homed object is the canonical instance")
		owner, ok := f.space.FindOwningSession(got)
		require.True(t, ok)
		assert.Equal(t, session.Session(f.space), owner)
	})

	t.Run("DetachedObject", func(t *testing.T) {
		f := newFixture(t)
		detached := &testmodels.Customer{ID: 2, Name: "stale copy"}

		got, err := f.space.GetObject(ctx, detached)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NotSame(t, detached, got)
		assert.Equal(t, "Beta", got.(*testmodels.Customer).Name)
	})
}

func TestObjectReloading(t *testing.T) {
	ctx := context.Background()

	t.Run("CanonicalObject", func(t *testing.T) {
		f := newFixture(t)
		a := f.customer(t, 1)

		got, err := f.space.ReloadObject(ctx, a)
		require.NoError(t, err)
		assert.Same(t, a, got)
		assert.Equal(t, 1, f.store.GetCalls())
	})

	t.Run("StaleReferenceAfterReload", func(t *testing.T) {
		f := newFixture(t)
		stale := f.customer(t, 1)
		f.space.Reload(ctx)

		got, err := f.space.ReloadObject(ctx, stale)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NotSame(t, stale, got)
		assert.Same(t, got, f.customer(t, 1), "reload snaps to the canonical instance")
		assert.Equal(t, 2, f.store.GetCalls())
	})

	t.Run("RemovedFromStorage", func(t *testing.T) {
		f := newFixture(t)
		a := f.customer(t, 1)
		f.store.Clear()
		f.space.Reload(ctx)

		got, err := f.space.ReloadObject(ctx, a)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestCommitChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("PartitionsOneBatch", func(t *testing.T) {
		f := newFixture(t)
		acme := f.customer(t, 1)
		beta := f.customer(t, 2)
		nova := &testmodels.Customer{ID: 10, Name: "Nova"}
		require.NoError(t, f.space.CreateObject(nova))

		acme.Name = "Acme Ltd"
		require.NoError(t, f.space.MarkModified(acme))
		require.NoError(t, f.space.Delete(beta))

		require.NoError(t, f.space.CommitChanges(ctx))

		saves := f.store.Saves()
		require.Len(t, saves, 1, "storage is called exactly once")
		assert.Equal(t, []any{nova}, saves[0].Insert)
		assert.Equal(t, []any{acme}, saves[0].Update)
		assert.Equal(t, []any{beta}, saves[0].Delete)

		stored, ok := f.store.Stored(testmodels.CustomerType, 1)
		require.True(t, ok)
		assert.Equal(t, "Acme Ltd", stored.(*testmodels.Customer).Name)
		_, ok = f.store.Stored(testmodels.CustomerType, 2)
		assert.False(t, ok)

		assert.False(t, f.space.IsNewObject(nova))
		calls := f.store.GetCalls()
		assert.Same(t, nova, f.customer(t, 10), "a committed new object stays canonical")
		assert.Nil(t, f.customer(t, 2), "a deleted object is no longer resolved")
		assert.Equal(t, calls+1, f.store.GetCalls())
	})

	t.Run("AdoptionFailureKeepsCommit", func(t *testing.T) {
		space := objectspace.New(objectspace.WithKeyFunc(func(any) (any, error) {
			return nil, errors.New("no key")
		}))
		objects := objectmap.New(testmodels.CustomerType)
		store := mock.New()
		adapter.New(space, objects, store)

		nova := &testmodels.Customer{ID: 10, Name: "Nova"}
		require.NoError(t, space.CreateObject(nova))

		require.NoError(t, space.CommitChanges(ctx), "a saved batch does not fail the commit")
		assert.False(t, space.IsNewObject(nova), "the space finalizes the insert")
		_, ok := store.Stored(testmodels.CustomerType, 10)
		assert.True(t, ok)
		assert.Zero(t, objects.Len())

		require.NoError(t, space.CommitChanges(ctx))
		assert.Len(t, store.Saves(), 1, "nothing is inserted twice")
	})

	t.Run("NothingToSave", func(t *testing.T) {
		f := newFixture(t)
		f.customer(t, 1)

		require.NoError(t, f.space.CommitChanges(ctx))
		assert.Empty(t, f.store.Saves(), "an empty commit does not reach storage")
	})

	t.Run("OnlyDeletes", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.space.Delete(f.customer(t, 2)))

		require.NoError(t, f.space.CommitChanges(ctx))
		saves := f.store.Saves()
		require.Len(t, saves, 1)
		assert.Empty(t, saves[0].Insert)
		assert.Empty(t, saves[0].Update)
		assert.Len(t, saves[0].Delete, 1)
	})

	t.Run("SaveErrorKeepsPendingChanges", func(t *testing.T) {
		cause := errors.New("disk full")
		store := mock.New().WithSaveError(cause)
		f := newFixtureOn(t, store)
		nova := &testmodels.Customer{ID: 10}
		require.NoError(t, f.space.CreateObject(nova))

		err := f.space.CommitChanges(ctx)
		assert.Same(t, cause, err, "storage errors propagate unchanged")
		assert.True(t, f.space.IsNewObject(nova))
		assert.False(t, f.adapter.Objects().Contains(nova))
	})

	t.Run("DoesNotHandleCommit", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.space.CreateObject(&testmodels.Customer{ID: 11}))

		e := &session.CommitEvent{}
		require.NoError(t, f.adapter.CommitChanges(ctx, e))
		assert.False(t, e.Handled)
	})
}

func TestObjectsGetting(t *testing.T) {
	ctx := context.Background()

	t.Run("LazyCollection", func(t *testing.T) {
		f := newFixture(t)
		e := &session.ObjectsGettingEvent{
			Type:     testmodels.CustomerType,
			Criteria: storagemodels.Equals("Region", "EMEA"),
			Sorting:  []storagemodels.SortProperty{storagemodels.Ascending("Name")},
		}
		require.NoError(t, f.adapter.ObjectsGetting(ctx, e))

		c := e.Objects()
		require.NotNil(t, c)
		assert.Equal(t, 0, f.store.QueryCalls(), "nothing is fetched before the collection is consumed")
		assert.Equal(t, testmodels.CustomerType, c.Type())

		first, shape, err := c.Load(ctx)
		require.NoError(t, err)
		assert.True(t, shape)
		require.Len(t, first, 1)
		assert.Equal(t, 1, f.store.QueryCalls())

		second, _, err := c.Load(ctx)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, 2, f.store.QueryCalls(), "every load queries storage again")
		assert.NotSame(t, first[0], second[0])
		assert.Equal(t, 0, f.adapter.Objects().Len(), "loading does not populate the identity map")
	})

	t.Run("MaterializedThroughSession", func(t *testing.T) {
		f := newFixture(t)

		objs, err := f.space.GetObjects(ctx, testmodels.CustomerType, nil, nil, false)
		require.NoError(t, err)
		require.Len(t, objs, 2)
		assert.Same(t, objs[0], f.customer(t, 1))
		assert.Same(t, objs[1], f.customer(t, 2))

		again, err := f.space.GetObjects(ctx, testmodels.CustomerType, nil, nil, false)
		require.NoError(t, err)
		assert.Same(t, objs[0], again[0], "materialized elements resolve to canonical instances")
		assert.Equal(t, 2, f.store.QueryCalls())
	})

	t.Run("QueryError", func(t *testing.T) {
		cause := errors.New("timeout")
		f := newFixtureOn(t, mock.New().WithQueryError(cause))

		_, err := f.space.GetObjects(ctx, testmodels.CustomerType, nil, nil, false)
		assert.Same(t, cause, err)
	})
}

func TestUnmanagedPassThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := &testmodels.Invoice{ID: "INV-1", Amount: 99}
	require.NoError(t, f.space.CreateObject(inv))

	ge := &session.ObjectGettingEvent{Source: inv}
	require.NoError(t, f.adapter.ObjectGetting(ctx, ge))
	assert.False(t, ge.Handled())

	re := &session.ObjectGettingEvent{Source: inv}
	require.NoError(t, f.adapter.ObjectReloading(ctx, re))
	assert.False(t, re.Handled())

	oe := &session.ObjectsGettingEvent{Type: testmodels.InvoiceType}
	require.NoError(t, f.adapter.ObjectsGetting(ctx, oe))
	assert.Nil(t, oe.Objects())

	got, err := f.space.GetObjectByKey(ctx, testmodels.InvoiceType, "INV-1")
	require.NoError(t, err)
	assert.Same(t, inv, got)

	list, err := f.space.GetObjects(ctx, testmodels.InvoiceType, nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []any{inv}, list)

	assert.Equal(t, 0, f.store.GetCalls())
	assert.Equal(t, 0, f.store.QueryCalls())
	assert.False(t, f.adapter.Objects().Contains(inv))
}

func TestStorageErrorPropagates(t *testing.T) {
	cause := errors.New("connection refused")
	f := newFixtureOn(t, mock.New().WithGetError(cause))

	_, err := f.space.GetObjectByKey(context.Background(), testmodels.CustomerType, 1)
	assert.Same(t, cause, err)
	assert.Equal(t, 0, f.adapter.Objects().Len())
}

// racingStorage fills the identity map behind the adapter's back, the way a
// second writer would.
type racingStorage struct {
	datastore.Storage
	objects *objectmap.ObjectMap
}

func (r *racingStorage) GetObjectByKey(ctx context.Context, t reflect.Type, key any) (any, error) {
	obj, err := r.Storage.GetObjectByKey(ctx, t, key)
	if err != nil || obj == nil {
		return obj, err
	}
	intruder, _ := r.Storage.GetObjectByKey(ctx, t, key)
	if err := r.objects.Register(t, key, intruder); err != nil {
		return nil, err
	}
	return obj, nil
}

func TestDuplicateRegistrationIsFatal(t *testing.T) {
	store := mock.New()
	require.NoError(t, store.Seed(&testmodels.Customer{ID: 1, Name: "Acme"}))

	space := objectspace.New()
	objects := objectmap.New(testmodels.CustomerType)
	adapter.New(space, objects, &racingStorage{Storage: store, objects: objects})

	_, err := space.GetObjectByKey(context.Background(), testmodels.CustomerType, 1)
	require.Error(t, err)
	assert.True(t, tserrors.IsInvariantViolation(err))
	assert.True(t, tserrors.IsDuplicateKey(err))
}

// sharingStorage registers the instance it returns, the way a second path
// resolving the same key would.
type sharingStorage struct {
	datastore.Storage
	objects *objectmap.ObjectMap
}

func (s *sharingStorage) GetObjectByKey(ctx context.Context, t reflect.Type, key any) (any, error) {
	obj, err := s.Storage.GetObjectByKey(ctx, t, key)
	if err != nil || obj == nil {
		return obj, err
	}
	if err := s.objects.Register(t, key, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func TestAlreadyRegisteredInstanceIsReturned(t *testing.T) {
	store := mock.New()
	require.NoError(t, store.Seed(&testmodels.Customer{ID: 1, Name: "Acme"}))

	space := objectspace.New()
	objects := objectmap.New(testmodels.CustomerType)
	adapter.New(space, objects, &sharingStorage{Storage: store, objects: objects})

	obj, err := space.GetObjectByKey(context.Background(), testmodels.CustomerType, 1)
	require.NoError(t, err)
	require.NotNil(t, obj)

	cached, ok := objects.Lookup(testmodels.CustomerType, 1)
	require.True(t, ok)
	assert.Same(t, cached, obj)
	assert.Equal(t, 1, objects.Len())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector("test", reg)
	require.NoError(t, err)
	f := newFixture(t, adapter.WithMetrics(collector))

	f.customer(t, 1)
	f.customer(t, 1)
	f.space.Reload(context.Background())

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.CacheHits.WithLabelValues("Customer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.CacheMisses.WithLabelValues("Customer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Registrations.WithLabelValues("Customer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Clears))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.StorageCalls.WithLabelValues(metrics.OpGet)))
}
