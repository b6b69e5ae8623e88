// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fetch

import (
	"context"
	"os"
	"testing"
)

// liveFetcher is set up by an environment-specific test harness outside
// this repo; it is never non-nil when running offline.
var liveFetcher SnapshotFetcher

// TestSnapshotFetcher_StableSwap exercises a real SnapshotFetcher against
// a live pool address when one is configured via CURVEMATH_TEST_POOL,
// and is skipped otherwise: the core never depends on this collaborator
// being available.
func TestSnapshotFetcher_StableSwap(t *testing.T) {
	if liveFetcher == nil {
		t.Skip("no SnapshotFetcher configured; this package only defines the contract")
	}
	pool := os.Getenv("CURVEMATH_TEST_POOL")
	if pool == "" {
		t.Skip("CURVEMATH_TEST_POOL not set")
	}
	snap, err := liveFetcher.FetchStableSwap(context.Background(), pool)
	if err != nil {
		t.Fatalf("FetchStableSwap: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a non-nil snapshot")
	}
}
