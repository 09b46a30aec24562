/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/suparena/transientspace/datastore/mock"
	"github.com/suparena/transientspace/datastore/testmodels"
	"github.com/suparena/transientspace/errors"
	"github.com/suparena/transientspace/storagemodels"
)

func TestMockStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("BasicOperations", func(t *testing.T) {
		store := mock.New()

		acme := &testmodels.Customer{ID: 1, Name: "Acme"}
		if err := store.SaveObjects(ctx, []any{acme}, nil, nil); err != nil {
			t.Fatalf("SaveObjects failed: %v", err)
		}

		got, err := store.GetObjectByKey(ctx, testmodels.CustomerType, 1)
		if err != nil {
			t.Fatalf("GetObjectByKey failed: %v", err)
		}
		c, ok := got.(*testmodels.Customer)
		if !ok || c.Name != "Acme" {
			t.Fatalf("Retrieved object mismatch: %+v", got)
		}
		if c == acme {
			t.Fatal("reads must not hand out the saved instance")
		}

		again, _ := store.GetObjectByKey(ctx, testmodels.CustomerType, 1)
		if again == got {
			t.Fatal("every read should return a fresh instance")
		}

		c.Name = "Acme Ltd"
		if err := store.SaveObjects(ctx, nil, []any{c}, nil); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		stored, _ := store.Stored(testmodels.CustomerType, 1)
		if stored.(*testmodels.Customer).Name != "Acme Ltd" {
			t.Fatal("update was not applied")
		}

		if err := store.SaveObjects(ctx, nil, nil, []any{c}); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		missing, err := store.GetObjectByKey(ctx, testmodels.CustomerType, 1)
		if err != nil || missing != nil {
			t.Fatalf("Expected absent result, got %v, %v", missing, err)
		}

		if store.GetCalls() != 3 {
			t.Fatalf("Expected 3 get calls, got %d", store.GetCalls())
		}
		if len(store.Saves()) != 3 {
			t.Fatalf("Expected 3 recorded saves, got %d", len(store.Saves()))
		}
	})

	t.Run("AtomicSave", func(t *testing.T) {
		store := mock.New()
		if err := store.Seed(&testmodels.Customer{ID: 1, Name: "Acme"}); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}

		err := store.SaveObjects(ctx,
			[]any{&testmodels.Customer{ID: 2, Name: "Beta"}},
			[]any{&testmodels.Customer{ID: 3, Name: "Ghost"}},
			nil)
		if !errors.IsNotFound(err) {
			t.Fatalf("Expected not found for update of missing key, got %v", err)
		}
		if store.Count(testmodels.CustomerType) != 1 {
			t.Fatal("failed batch must not apply the insert")
		}

		err = store.SaveObjects(ctx, []any{&testmodels.Customer{ID: 1}}, nil, nil)
		if !errors.IsAlreadyExists(err) {
			t.Fatalf("Expected already exists, got %v", err)
		}
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		getErr := fmt.Errorf("backend offline")
		store := mock.New().WithGetError(getErr).WithQueryError(getErr).WithSaveError(getErr)

		if _, err := store.GetObjectByKey(ctx, testmodels.CustomerType, 1); err != getErr {
			t.Fatalf("Expected get error, got: %v", err)
		}
		if _, err := store.GetObjects(ctx, testmodels.CustomerType, nil, nil); err != getErr {
			t.Fatalf("Expected query error, got: %v", err)
		}
		if err := store.SaveObjects(ctx, []any{&testmodels.Customer{ID: 1}}, nil, nil); err != getErr {
			t.Fatalf("Expected save error, got: %v", err)
		}
	})

	t.Run("QueryWithCriteria", func(t *testing.T) {
		store := mock.New()
		_ = store.Seed(
			&testmodels.Customer{ID: 3, Name: "Gamma", Region: "EMEA"},
			&testmodels.Customer{ID: 1, Name: "Alpha", Region: "EMEA"},
			&testmodels.Customer{ID: 2, Name: "Beta", Region: "APAC"},
		)

		all, err := store.GetObjects(ctx, testmodels.CustomerType, nil, nil)
		if err != nil {
			t.Fatalf("GetObjects failed: %v", err)
		}
		if len(all) != 3 || all[0].(*testmodels.Customer).ID != 1 {
			t.Fatalf("Expected 3 results ordered by key, got %v", all)
		}

		emea, err := store.GetObjects(ctx, testmodels.CustomerType,
			storagemodels.Equals("Region", "EMEA"),
			[]storagemodels.SortProperty{storagemodels.Descending("Name")})
		if err != nil {
			t.Fatalf("GetObjects failed: %v", err)
		}
		if len(emea) != 2 || emea[0].(*testmodels.Customer).Name != "Gamma" {
			t.Fatalf("Unexpected filtered results %v", emea)
		}

		if _, err := store.GetObjects(ctx, testmodels.CustomerType, "Region = 'EMEA'", nil); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error for unsupported criteria, got %v", err)
		}
		if store.QueryCalls() != 3 {
			t.Fatalf("Expected 3 query calls, got %d", store.QueryCalls())
		}
	})

	t.Run("KeyValidation", func(t *testing.T) {
		store := mock.New()
		if _, err := store.GetObjectByKey(ctx, testmodels.CustomerType, nil); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error for nil key, got %v", err)
		}
		if err := store.Seed(42); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error for keyless object, got %v", err)
		}
	})
}
