// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fetch names the external collaborator this module never calls
// into: something that turns a pool identifier and a chain reader
// endpoint into a populated stableswap.Pool or cryptoswap.Pool snapshot.
// The core kernels take their inputs as plain structs precisely so that
// fetching those structs from a live chain is somebody else's problem;
// this interface exists only so integration tests can depend on one
// without the kernels ever importing it.
package fetch

import (
	"context"

	"github.com/luxfi/curvemath/cryptoswap"
	"github.com/luxfi/curvemath/stableswap"
)

// SnapshotFetcher retrieves a point-in-time snapshot of a pool's on-chain
// state. pool identifies the pool (a hex address string in practice; no
// chain-specific address type is in scope here). Implementations are
// expected to fail fast on a canceled or expired ctx.
type SnapshotFetcher interface {
	FetchStableSwap(ctx context.Context, pool string) (*stableswap.Pool, error)
	FetchCryptoSwap(ctx context.Context, pool string) (*cryptoswap.Pool, error)
}
