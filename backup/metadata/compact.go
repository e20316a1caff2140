package metadata

import (
	"fmt"
	"math"
	"slices"

	"github.com/ledgervault/ledgervault-go/backup/common"
)

// DiscontinuityError reports the first break found in a compaction input:
// two adjacent records whose coordinate spans do not chain, either because of
// a gap or an overlap on the named axis.
type DiscontinuityError struct {
	Axis     string
	Expected uint64
	Actual   uint64
}

func (e *DiscontinuityError) Error() string {
	return fmt.Sprintf("backup metadata not continuous: expected %s %d, got %d", e.Axis, e.Expected, e.Actual)
}

func (e *DiscontinuityError) Is(target error) bool {
	_, ok := target.(*DiscontinuityError)
	return ok
}

// next returns the coordinate a chain must continue at after an inclusive
// upper bound. Ledger coordinates sit far below the uint64 ceiling, so an
// overflowing bound is a hard error, never a silent wraparound.
func next(last uint64, axis string) (uint64, error) {
	if last == math.MaxUint64 {
		return 0, fmt.Errorf("%w: %s %d has no successor", common.ErrCoordinateOverflow, axis, last)
	}
	return last + 1, nil
}

// NewEpochEndingBackupRange merges an ordered run of epoch-ending backups
// into one range record. The input must already be sorted by epoch; only
// adjacency is verified: each record must start at the epoch right after the
// previous record's last epoch. Version bounds are carried through from the
// first and last members. The input is copied, never retained.
func NewEpochEndingBackupRange(backupMetas []EpochEndingBackupMeta) (EpochEndingBackupMetaRange, error) {
	if len(backupMetas) == 0 {
		return EpochEndingBackupMetaRange{}, common.ErrEmptyCompaction
	}

	first := backupMetas[0]
	nextEpoch, err := next(first.LastEpoch, "epoch")
	if err != nil {
		return EpochEndingBackupMetaRange{}, err
	}

	for _, backup := range backupMetas[1:] {
		if backup.FirstEpoch != nextEpoch {
			return EpochEndingBackupMetaRange{}, &DiscontinuityError{
				Axis:     "epoch",
				Expected: nextEpoch,
				Actual:   backup.FirstEpoch,
			}
		}
		nextEpoch, err = next(backup.LastEpoch, "epoch")
		if err != nil {
			return EpochEndingBackupMetaRange{}, err
		}
	}

	last := backupMetas[len(backupMetas)-1]
	return EpochEndingBackupMetaRange{
		FirstEpoch:   first.FirstEpoch,
		LastEpoch:    last.LastEpoch,
		FirstVersion: first.FirstVersion,
		LastVersion:  last.LastVersion,
		BackupMetas:  slices.Clone(backupMetas),
	}, nil
}

// NewStateSnapshotBackupRange merges an ordered run of state snapshots into
// one range record. Between consecutive members, epoch and version must both
// advance by exactly one; the epoch axis is checked first.
func NewStateSnapshotBackupRange(backupMetas []StateSnapshotBackupMeta) (StateSnapshotBackupMetaRange, error) {
	if len(backupMetas) == 0 {
		return StateSnapshotBackupMetaRange{}, common.ErrEmptyCompaction
	}

	first := backupMetas[0]
	nextEpoch, err := next(first.Epoch, "epoch")
	if err != nil {
		return StateSnapshotBackupMetaRange{}, err
	}
	nextVersion, err := next(first.Version, "version")
	if err != nil {
		return StateSnapshotBackupMetaRange{}, err
	}

	for _, backup := range backupMetas[1:] {
		if backup.Epoch != nextEpoch {
			return StateSnapshotBackupMetaRange{}, &DiscontinuityError{
				Axis:     "epoch",
				Expected: nextEpoch,
				Actual:   backup.Epoch,
			}
		}
		if backup.Version != nextVersion {
			return StateSnapshotBackupMetaRange{}, &DiscontinuityError{
				Axis:     "version",
				Expected: nextVersion,
				Actual:   backup.Version,
			}
		}
		nextEpoch, err = next(backup.Epoch, "epoch")
		if err != nil {
			return StateSnapshotBackupMetaRange{}, err
		}
		nextVersion, err = next(backup.Version, "version")
		if err != nil {
			return StateSnapshotBackupMetaRange{}, err
		}
	}

	last := backupMetas[len(backupMetas)-1]
	return StateSnapshotBackupMetaRange{
		FirstEpoch:   first.Epoch,
		LastEpoch:    last.Epoch,
		FirstVersion: first.Version,
		LastVersion:  last.Version,
		BackupMetas:  slices.Clone(backupMetas),
	}, nil
}

// NewTransactionBackupRange merges an ordered run of transaction backups into
// one range record. Each record must start at the version right after the
// previous record's last version.
func NewTransactionBackupRange(backupMetas []TransactionBackupMeta) (TransactionBackupMetaRange, error) {
	if len(backupMetas) == 0 {
		return TransactionBackupMetaRange{}, common.ErrEmptyCompaction
	}

	first := backupMetas[0]
	nextVersion, err := next(first.LastVersion, "version")
	if err != nil {
		return TransactionBackupMetaRange{}, err
	}

	for _, backup := range backupMetas[1:] {
		if backup.FirstVersion != nextVersion {
			return TransactionBackupMetaRange{}, &DiscontinuityError{
				Axis:     "version",
				Expected: nextVersion,
				Actual:   backup.FirstVersion,
			}
		}
		nextVersion, err = next(backup.LastVersion, "version")
		if err != nil {
			return TransactionBackupMetaRange{}, err
		}
	}

	last := backupMetas[len(backupMetas)-1]
	return TransactionBackupMetaRange{
		FirstVersion: first.FirstVersion,
		LastVersion:  last.LastVersion,
		BackupMetas:  slices.Clone(backupMetas),
	}, nil
}
