package view

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgervault/ledgervault-go/backup/common"
	"github.com/ledgervault/ledgervault-go/backup/metadata"
)

func testRecords(t *testing.T) []metadata.Metadata {
	t.Helper()

	tr, err := metadata.NewTransactionBackupRange([]metadata.TransactionBackupMeta{
		metadata.NewTransactionBackup(0, 499, "t0"),
		metadata.NewTransactionBackup(500, 999, "t1"),
	})
	require.NoError(t, err)

	return []metadata.Metadata{
		metadata.NewEpochEndingBackup(0, 4, 0, 499, "e0"),
		metadata.NewEpochEndingBackup(5, 9, 500, 999, "e1"),
		metadata.NewStateSnapshotBackup(4, 450, "s0"),
		metadata.NewStateSnapshotBackup(9, 950, "s1"),
		tr,
		metadata.NewTransactionBackup(1000, 1499, "t2"),
	}
}

func TestSelectStateSnapshot(t *testing.T) {
	v := NewMetadataView(testRecords(t))

	snapshot, ok := v.SelectStateSnapshot(950).Get()
	require.True(t, ok)
	assert.Equal(t, uint64(950), snapshot.Version)

	snapshot, ok = v.SelectStateSnapshot(949).Get()
	require.True(t, ok)
	assert.Equal(t, uint64(450), snapshot.Version)

	snapshot, ok = v.SelectStateSnapshot(5000).Get()
	require.True(t, ok)
	assert.Equal(t, uint64(950), snapshot.Version)

	assert.True(t, v.SelectStateSnapshot(100).IsAbsent())
}

func TestSelectTransactionBackups(t *testing.T) {
	v := NewMetadataView(testRecords(t))

	// range records are flattened: the selection starts inside the range
	selected, err := v.SelectTransactionBackups(450, 1200)
	require.NoError(t, err)
	require.Len(t, selected, 3)
	assert.Equal(t, uint64(0), selected[0].FirstVersion)
	assert.Equal(t, uint64(1000), selected[2].FirstVersion)

	selected, err = v.SelectTransactionBackups(500, 999)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, uint64(500), selected[0].FirstVersion)
}

func TestSelectTransactionBackupsNotEnoughHistory(t *testing.T) {
	v := NewMetadataView(testRecords(t))

	_, err := v.SelectTransactionBackups(450, 2000)
	assert.ErrorIs(t, err, common.ErrNotEnoughHistory)
}

func TestSelectTransactionBackupsGap(t *testing.T) {
	v := NewMetadataView([]metadata.Metadata{
		metadata.NewTransactionBackup(0, 499, "t0"),
		metadata.NewTransactionBackup(600, 999, "t1"),
	})

	_, err := v.SelectTransactionBackups(100, 900)
	assert.ErrorIs(t, err, common.ErrBackupGap)

	// a start version inside the gap has no covering backup
	_, err = v.SelectTransactionBackups(550, 900)
	assert.ErrorIs(t, err, common.ErrBackupGap)
}

func TestSelectEpochEndingBackups(t *testing.T) {
	v := NewMetadataView(testRecords(t))

	selected, err := v.SelectEpochEndingBackups(9)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, uint64(0), selected[0].FirstEpoch)
	assert.Equal(t, uint64(9), selected[1].LastEpoch)

	selected, err = v.SelectEpochEndingBackups(3)
	require.NoError(t, err)
	assert.Len(t, selected, 1)

	_, err = v.SelectEpochEndingBackups(15)
	assert.ErrorIs(t, err, common.ErrNotEnoughHistory)
}

func TestSelectEpochEndingBackupsMissingGenesis(t *testing.T) {
	v := NewMetadataView([]metadata.Metadata{
		metadata.NewEpochEndingBackup(5, 9, 500, 999, "e1"),
	})

	_, err := v.SelectEpochEndingBackups(9)
	assert.ErrorIs(t, err, common.ErrBackupGap)
}

func TestMaxTransactionVersion(t *testing.T) {
	v := NewMetadataView(testRecords(t))
	maxVersion, ok := v.MaxTransactionVersion().Get()
	require.True(t, ok)
	assert.Equal(t, uint64(1499), maxVersion)

	empty := NewMetadataView(nil)
	assert.True(t, empty.MaxTransactionVersion().IsAbsent())
}

func TestIdentityAndSnapshotListing(t *testing.T) {
	identity, err := metadata.NewRandomIdentity(rand.Reader)
	require.NoError(t, err)

	v := NewMetadataView(append(testRecords(t), identity))

	stored, ok := v.Identity().Get()
	require.True(t, ok)
	assert.Equal(t, identity, stored)

	snapshots := v.AllStateSnapshots()
	require.Len(t, snapshots, 2)
	assert.Equal(t, uint64(450), snapshots[0].Version)
	assert.Equal(t, uint64(950), snapshots[1].Version)
}
