package compactor

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kapetan-io/tackle/set"

	"github.com/ledgervault/ledgervault-go/backup/common"
	"github.com/ledgervault/ledgervault-go/backup/metadata"
	"github.com/ledgervault/ledgervault-go/backup/store"
)

type Options struct {
	// BatchSize caps how many leaf records one compacted range covers.
	BatchSize int

	// PollInterval is the pause between background compaction passes.
	PollInterval time.Duration

	Log *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		BatchSize:    100,
		PollInterval: time.Minute,
	}
}

// Compactor folds runs of continuous leaf records in a metadata index into
// compacted range files. Leaf files are never deleted here; whether they are
// retired after compaction is the owner's retention policy.
type Compactor struct {
	store *store.MetadataStore
	opts  Options

	shutdownCh chan struct{}
	waitGroup  sync.WaitGroup
}

func New(metadataStore *store.MetadataStore, opts Options) *Compactor {
	set.Default(&opts.BatchSize, 100)
	set.Default(&opts.PollInterval, time.Minute)
	set.Default(&opts.Log, slog.Default())

	return &Compactor{
		store:      metadataStore,
		opts:       opts,
		shutdownCh: make(chan struct{}),
	}
}

// RunOnce performs a single compaction pass over the whole index and returns
// the number of range files written. Gaps between leaf files are not errors:
// they split the input into separate runs, each compacted on its own. Runs
// of a single record are left alone, a one-member range saves nothing.
func (c *Compactor) RunOnce(ctx context.Context) (int, error) {
	records, err := c.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	epochEndings := make([]metadata.EpochEndingBackupMeta, 0)
	snapshots := make([]metadata.StateSnapshotBackupMeta, 0)
	transactions := make([]metadata.TransactionBackupMeta, 0)
	for _, record := range records {
		switch m := record.(type) {
		case metadata.EpochEndingBackupMeta:
			epochEndings = append(epochEndings, m)
		case metadata.StateSnapshotBackupMeta:
			snapshots = append(snapshots, m)
		case metadata.TransactionBackupMeta:
			transactions = append(transactions, m)
		}
	}

	slices.SortFunc(epochEndings, func(a, b metadata.EpochEndingBackupMeta) int {
		return cmp.Compare(a.FirstEpoch, b.FirstEpoch)
	})
	slices.SortFunc(snapshots, func(a, b metadata.StateSnapshotBackupMeta) int {
		return cmp.Compare(a.Version, b.Version)
	})
	slices.SortFunc(transactions, func(a, b metadata.TransactionBackupMeta) int {
		return cmp.Compare(a.FirstVersion, b.FirstVersion)
	})

	written := 0
	for _, run := range splitRuns(epochEndings, func(prev, cur metadata.EpochEndingBackupMeta) bool {
		return cur.FirstEpoch == prev.LastEpoch+1
	}) {
		n, err := compactRuns(ctx, c, run, func(batch []metadata.EpochEndingBackupMeta) (metadata.Metadata, error) {
			return metadata.NewEpochEndingBackupRange(batch)
		})
		written += n
		if err != nil {
			return written, err
		}
	}
	for _, run := range splitRuns(snapshots, func(prev, cur metadata.StateSnapshotBackupMeta) bool {
		return cur.Epoch == prev.Epoch+1 && cur.Version == prev.Version+1
	}) {
		n, err := compactRuns(ctx, c, run, func(batch []metadata.StateSnapshotBackupMeta) (metadata.Metadata, error) {
			return metadata.NewStateSnapshotBackupRange(batch)
		})
		written += n
		if err != nil {
			return written, err
		}
	}
	for _, run := range splitRuns(transactions, func(prev, cur metadata.TransactionBackupMeta) bool {
		return cur.FirstVersion == prev.LastVersion+1
	}) {
		n, err := compactRuns(ctx, c, run, func(batch []metadata.TransactionBackupMeta) (metadata.Metadata, error) {
			return metadata.NewTransactionBackupRange(batch)
		})
		written += n
		if err != nil {
			return written, err
		}
	}

	c.opts.Log.Info("compaction pass finished", "records", len(records), "ranges_written", written)
	return written, nil
}

// Start spawns the background compaction loop.
func (c *Compactor) Start(ctx context.Context) {
	c.waitGroup.Add(1)
	go func() {
		defer c.waitGroup.Done()

		ticker := time.NewTicker(c.opts.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := c.RunOnce(ctx); err != nil {
					// the next pass retries from scratch; leaves are untouched
					c.opts.Log.Error("compaction pass failed", "error", err)
				}
			case <-c.shutdownCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop shuts the background loop down and waits for it to exit.
func (c *Compactor) Stop() {
	close(c.shutdownCh)
	c.waitGroup.Wait()
}

// splitRuns groups a coordinate-sorted slice into maximal continuous runs.
func splitRuns[M any](sorted []M, continuous func(prev, cur M) bool) [][]M {
	runs := make([][]M, 0)
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || !continuous(sorted[i-1], sorted[i]) {
			if i-start >= 2 {
				runs = append(runs, sorted[start:i])
			}
			start = i
		}
	}
	return runs
}

// compactRuns chunks one continuous run into batches and persists a range
// record per batch. A range whose file already exists was compacted by an
// earlier pass and is skipped.
func compactRuns[M any](ctx context.Context, c *Compactor, run []M, newRange func([]M) (metadata.Metadata, error)) (int, error) {
	written := 0
	for start := 0; start < len(run); start += c.opts.BatchSize {
		end := min(start+c.opts.BatchSize, len(run))
		if end-start < 2 {
			break
		}

		rangeRecord, err := newRange(run[start:end])
		if err != nil {
			return written, err
		}
		err = c.store.Save(ctx, rangeRecord)
		if errors.Is(err, common.ErrMetadataFileExists) {
			continue
		}
		if err != nil {
			return written, err
		}
		c.opts.Log.Debug("wrote compacted metadata", "name", rangeRecord.Name().String(), "members", end-start)
		written++
	}
	return written, nil
}
