package view

import (
	"fmt"

	"github.com/huandu/skiplist"
	"github.com/samber/mo"

	"github.com/ledgervault/ledgervault-go/backup/common"
	"github.com/ledgervault/ledgervault-go/backup/metadata"
)

// MetadataView indexes a decoded metadata record set for restore planning.
// Range records are flattened into their member leaves on construction, so
// queries see one uniform coordinate-ordered index per backup kind. Within
// a range record continuity is already guaranteed; across separately
// produced files gaps are possible and are what the queries check for.
type MetadataView struct {
	epochEndings *skiplist.SkipList // first_epoch -> EpochEndingBackupMeta
	snapshots    *skiplist.SkipList // version -> StateSnapshotBackupMeta
	transactions *skiplist.SkipList // first_version -> TransactionBackupMeta
	identity     mo.Option[metadata.IdentityMeta]
}

func NewMetadataView(records []metadata.Metadata) *MetadataView {
	v := &MetadataView{
		epochEndings: skiplist.New(skiplist.Uint64),
		snapshots:    skiplist.New(skiplist.Uint64),
		transactions: skiplist.New(skiplist.Uint64),
		identity:     mo.None[metadata.IdentityMeta](),
	}

	for _, record := range records {
		switch m := record.(type) {
		case metadata.EpochEndingBackupMeta:
			v.epochEndings.Set(m.FirstEpoch, m)
		case metadata.EpochEndingBackupMetaRange:
			for _, leaf := range m.BackupMetas {
				v.epochEndings.Set(leaf.FirstEpoch, leaf)
			}
		case metadata.StateSnapshotBackupMeta:
			v.snapshots.Set(m.Version, m)
		case metadata.StateSnapshotBackupMetaRange:
			for _, leaf := range m.BackupMetas {
				v.snapshots.Set(leaf.Version, leaf)
			}
		case metadata.TransactionBackupMeta:
			v.transactions.Set(m.FirstVersion, m)
		case metadata.TransactionBackupMetaRange:
			for _, leaf := range m.BackupMetas {
				v.transactions.Set(leaf.FirstVersion, leaf)
			}
		case metadata.IdentityMeta:
			v.identity = mo.Some(m)
		}
	}
	return v
}

// Identity returns the identity record seen in the record set, when present.
func (v *MetadataView) Identity() mo.Option[metadata.IdentityMeta] {
	return v.identity
}

// MaxTransactionVersion returns the highest version covered by any
// transaction backup.
func (v *MetadataView) MaxTransactionVersion() mo.Option[uint64] {
	back := v.transactions.Back()
	if back == nil {
		return mo.None[uint64]()
	}
	return mo.Some(back.Value.(metadata.TransactionBackupMeta).LastVersion)
}

// SelectStateSnapshot returns the most recent snapshot taken at or before
// targetVersion, or None when no snapshot qualifies.
func (v *MetadataView) SelectStateSnapshot(targetVersion uint64) mo.Option[metadata.StateSnapshotBackupMeta] {
	elem := v.snapshots.Find(targetVersion)
	if elem == nil {
		elem = v.snapshots.Back()
	} else if elem.Key().(uint64) > targetVersion {
		elem = elem.Prev()
	}
	if elem == nil {
		return mo.None[metadata.StateSnapshotBackupMeta]()
	}
	return mo.Some(elem.Value.(metadata.StateSnapshotBackupMeta))
}

// SelectTransactionBackups returns the run of transaction backups covering
// [firstVersion, lastVersion] with no gap, starting at the latest backup
// whose span contains firstVersion.
func (v *MetadataView) SelectTransactionBackups(firstVersion, lastVersion uint64) ([]metadata.TransactionBackupMeta, error) {
	elem := v.transactions.Find(firstVersion)
	if elem == nil {
		elem = v.transactions.Back()
	} else if elem.Key().(uint64) > firstVersion {
		elem = elem.Prev()
	}
	if elem == nil {
		return nil, fmt.Errorf("%w: no transaction backup at or before version %d", common.ErrNotEnoughHistory, firstVersion)
	}

	selected := make([]metadata.TransactionBackupMeta, 0)
	current := elem.Value.(metadata.TransactionBackupMeta)
	if current.LastVersion < firstVersion {
		return nil, fmt.Errorf("%w: transaction backups end at version %d, version %d requested",
			common.ErrBackupGap, current.LastVersion, firstVersion)
	}

	for {
		selected = append(selected, current)
		if current.LastVersion >= lastVersion {
			return selected, nil
		}

		nextElem := elem.Next()
		if nextElem == nil {
			return nil, fmt.Errorf("%w: transaction backups end at version %d, version %d requested",
				common.ErrNotEnoughHistory, current.LastVersion, lastVersion)
		}
		next := nextElem.Value.(metadata.TransactionBackupMeta)
		if next.FirstVersion != current.LastVersion+1 {
			return nil, fmt.Errorf("%w: expected transaction backup starting at version %d, found %d",
				common.ErrBackupGap, current.LastVersion+1, next.FirstVersion)
		}
		elem, current = nextElem, next
	}
}

// SelectEpochEndingBackups returns the continuous run of epoch-ending
// backups covering epochs [0, targetEpoch].
func (v *MetadataView) SelectEpochEndingBackups(targetEpoch uint64) ([]metadata.EpochEndingBackupMeta, error) {
	elem := v.epochEndings.Front()
	if elem == nil || elem.Value.(metadata.EpochEndingBackupMeta).FirstEpoch != 0 {
		return nil, fmt.Errorf("%w: epoch-ending backups do not start at epoch 0", common.ErrBackupGap)
	}

	selected := make([]metadata.EpochEndingBackupMeta, 0)
	nextEpoch := uint64(0)
	for elem != nil {
		current := elem.Value.(metadata.EpochEndingBackupMeta)
		if current.FirstEpoch != nextEpoch {
			return nil, fmt.Errorf("%w: expected epoch-ending backup starting at epoch %d, found %d",
				common.ErrBackupGap, nextEpoch, current.FirstEpoch)
		}
		selected = append(selected, current)
		if current.LastEpoch >= targetEpoch {
			return selected, nil
		}
		nextEpoch = current.LastEpoch + 1
		elem = elem.Next()
	}
	return nil, fmt.Errorf("%w: epoch-ending backups end at epoch %d, epoch %d requested",
		common.ErrNotEnoughHistory, nextEpoch-1, targetEpoch)
}

// AllStateSnapshots lists every indexed snapshot in version order.
func (v *MetadataView) AllStateSnapshots() []metadata.StateSnapshotBackupMeta {
	snapshots := make([]metadata.StateSnapshotBackupMeta, 0, v.snapshots.Len())
	for elem := v.snapshots.Front(); elem != nil; elem = elem.Next() {
		snapshots = append(snapshots, elem.Value.(metadata.StateSnapshotBackupMeta))
	}
	return snapshots
}
