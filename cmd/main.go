package main

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/thanos-io/objstore"
	"go.uber.org/zap"

	"github.com/ledgervault/ledgervault-go/backup/cache"
	"github.com/ledgervault/ledgervault-go/backup/compactor"
	"github.com/ledgervault/ledgervault-go/backup/logger"
	"github.com/ledgervault/ledgervault-go/backup/metadata"
	"github.com/ledgervault/ledgervault-go/backup/store"
	"github.com/ledgervault/ledgervault-go/backup/view"
)

func main() {
	logger.Init()
	defer logger.Sync()

	ctx := context.Background()
	bucket := objstore.NewInMemBucket()
	metadataStore := store.NewMetadataStore("demo", bucket)

	identity, err := metadataStore.EnsureIdentity(ctx, rand.Reader)
	if err != nil {
		logger.Error("Unable to initialize backup target", zap.Error(err))
		return
	}
	fmt.Println("Target identity:", identity.ID)

	leaves := []metadata.Metadata{
		metadata.NewEpochEndingBackup(0, 4, 0, 499, "manifests/epoch_ending_0.manifest"),
		metadata.NewEpochEndingBackup(5, 9, 500, 999, "manifests/epoch_ending_1.manifest"),
		metadata.NewStateSnapshotBackup(9, 950, "manifests/state_snapshot_950.manifest"),
		metadata.NewTransactionBackup(0, 499, "manifests/transaction_0.manifest"),
		metadata.NewTransactionBackup(500, 999, "manifests/transaction_1.manifest"),
	}
	for _, leaf := range leaves {
		if err := metadataStore.Save(ctx, leaf); err != nil {
			logger.Error("Unable to save backup metadata", zap.Error(err))
			return
		}
		fmt.Println("Saved:", leaf.Name())
	}

	comp := compactor.New(metadataStore, compactor.DefaultOptions())
	written, err := comp.RunOnce(ctx)
	if err != nil {
		logger.Error("Compaction pass failed", zap.Error(err))
		return
	}
	fmt.Println("Compacted ranges written:", written)

	metadataCache, err := cache.NewMetadataCache(metadataStore, cache.DefaultOptions())
	if err != nil {
		logger.Error("Unable to build metadata cache", zap.Error(err))
		return
	}
	records, err := metadataCache.Sync(ctx)
	if err != nil {
		logger.Error("Metadata sync failed", zap.Error(err))
		return
	}

	planner := view.NewMetadataView(records)
	snapshot, ok := planner.SelectStateSnapshot(999).Get()
	if !ok {
		fmt.Println("No state snapshot available")
		return
	}
	fmt.Println("Restore from snapshot:", snapshot.Name())

	txns, err := planner.SelectTransactionBackups(snapshot.Version, 999)
	if err != nil {
		logger.Error("Restore planning failed", zap.Error(err))
		return
	}
	for _, txn := range txns {
		fmt.Println("Replay transactions:", txn.Name())
	}
}
