package metadata

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgervault/ledgervault-go/backup/common"
)

func TestEpochEndingRangeContinuous(t *testing.T) {
	a := NewEpochEndingBackup(0, 4, 0, 499, "m0")
	b := NewEpochEndingBackup(5, 9, 500, 999, "m1")

	r, err := NewEpochEndingBackupRange([]EpochEndingBackupMeta{a, b})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.FirstEpoch)
	assert.Equal(t, uint64(9), r.LastEpoch)
	assert.Equal(t, uint64(0), r.FirstVersion)
	assert.Equal(t, uint64(999), r.LastVersion)
	assert.Equal(t, []EpochEndingBackupMeta{a, b}, r.BackupMetas)
}

func TestEpochEndingRangeGap(t *testing.T) {
	a := NewEpochEndingBackup(0, 4, 0, 499, "m0")
	c := NewEpochEndingBackup(6, 9, 600, 999, "m2")

	_, err := NewEpochEndingBackupRange([]EpochEndingBackupMeta{a, c})
	require.Error(t, err)

	var disc *DiscontinuityError
	require.True(t, errors.As(err, &disc))
	assert.Equal(t, "epoch", disc.Axis)
	assert.Equal(t, uint64(5), disc.Expected)
	assert.Equal(t, uint64(6), disc.Actual)
}

func TestEpochEndingRangeOverlap(t *testing.T) {
	a := NewEpochEndingBackup(0, 4, 0, 499, "m0")
	d := NewEpochEndingBackup(4, 9, 400, 999, "m3")

	_, err := NewEpochEndingBackupRange([]EpochEndingBackupMeta{a, d})
	require.Error(t, err)

	var disc *DiscontinuityError
	require.True(t, errors.As(err, &disc))
	assert.Equal(t, uint64(5), disc.Expected)
	assert.Equal(t, uint64(4), disc.Actual)
}

func TestEpochEndingRangeSingleElement(t *testing.T) {
	a := NewEpochEndingBackup(3, 7, 300, 700, "m0")

	r, err := NewEpochEndingBackupRange([]EpochEndingBackupMeta{a})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r.FirstEpoch)
	assert.Equal(t, uint64(7), r.LastEpoch)
	assert.Equal(t, uint64(300), r.FirstVersion)
	assert.Equal(t, uint64(700), r.LastVersion)
	assert.Len(t, r.BackupMetas, 1)
}

func TestEpochEndingRangeIgnoresVersionAxis(t *testing.T) {
	// epoch chains decide continuity; version bounds are carried through as-is
	a := NewEpochEndingBackup(0, 4, 0, 499, "m0")
	b := NewEpochEndingBackup(5, 9, 700, 999, "m1")

	r, err := NewEpochEndingBackupRange([]EpochEndingBackupMeta{a, b})
	require.NoError(t, err)
	assert.Equal(t, uint64(999), r.LastVersion)
}

func TestEpochEndingRangeCopiesInput(t *testing.T) {
	input := []EpochEndingBackupMeta{NewEpochEndingBackup(0, 4, 0, 499, "m0")}

	r, err := NewEpochEndingBackupRange(input)
	require.NoError(t, err)

	input[0].Manifest = "mutated"
	assert.Equal(t, common.FileHandle("m0"), r.BackupMetas[0].Manifest)
}

func TestStateSnapshotRangeLockstep(t *testing.T) {
	s1 := NewStateSnapshotBackup(10, 1000, "m0")
	s2 := NewStateSnapshotBackup(11, 1001, "m1")

	r, err := NewStateSnapshotBackupRange([]StateSnapshotBackupMeta{s1, s2})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), r.FirstEpoch)
	assert.Equal(t, uint64(11), r.LastEpoch)
	assert.Equal(t, uint64(1000), r.FirstVersion)
	assert.Equal(t, uint64(1001), r.LastVersion)
}

func TestStateSnapshotRangeVersionSkips(t *testing.T) {
	s1 := NewStateSnapshotBackup(10, 1000, "m0")
	s3 := NewStateSnapshotBackup(11, 1002, "m2")

	_, err := NewStateSnapshotBackupRange([]StateSnapshotBackupMeta{s1, s3})
	require.Error(t, err)

	var disc *DiscontinuityError
	require.True(t, errors.As(err, &disc))
	assert.Equal(t, "version", disc.Axis)
	assert.Equal(t, uint64(1001), disc.Expected)
	assert.Equal(t, uint64(1002), disc.Actual)
}

func TestStateSnapshotRangeEpochCheckedFirst(t *testing.T) {
	// both axes break; the epoch axis is reported
	s1 := NewStateSnapshotBackup(10, 1000, "m0")
	s4 := NewStateSnapshotBackup(13, 1005, "m3")

	_, err := NewStateSnapshotBackupRange([]StateSnapshotBackupMeta{s1, s4})
	require.Error(t, err)

	var disc *DiscontinuityError
	require.True(t, errors.As(err, &disc))
	assert.Equal(t, "epoch", disc.Axis)
}

func TestTransactionRangeContinuous(t *testing.T) {
	a := NewTransactionBackup(0, 499, "m0")
	b := NewTransactionBackup(500, 999, "m1")

	r, err := NewTransactionBackupRange([]TransactionBackupMeta{a, b})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.FirstVersion)
	assert.Equal(t, uint64(999), r.LastVersion)
	assert.Equal(t, []TransactionBackupMeta{a, b}, r.BackupMetas)
}

func TestTransactionRangeGap(t *testing.T) {
	a := NewTransactionBackup(0, 499, "m0")
	c := NewTransactionBackup(501, 999, "m2")

	_, err := NewTransactionBackupRange([]TransactionBackupMeta{a, c})
	require.Error(t, err)

	var disc *DiscontinuityError
	require.True(t, errors.As(err, &disc))
	assert.Equal(t, uint64(500), disc.Expected)
	assert.Equal(t, uint64(501), disc.Actual)
}

func TestEmptyCompactionRejected(t *testing.T) {
	_, err := NewEpochEndingBackupRange(nil)
	assert.ErrorIs(t, err, common.ErrEmptyCompaction)

	_, err = NewStateSnapshotBackupRange(nil)
	assert.ErrorIs(t, err, common.ErrEmptyCompaction)

	_, err = NewTransactionBackupRange(nil)
	assert.ErrorIs(t, err, common.ErrEmptyCompaction)
}

func TestCompactionDeterministic(t *testing.T) {
	input := []TransactionBackupMeta{
		NewTransactionBackup(0, 499, "m0"),
		NewTransactionBackup(500, 999, "m1"),
	}

	r1, err := NewTransactionBackupRange(input)
	require.NoError(t, err)
	r2, err := NewTransactionBackupRange(input)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestCompactionOverflowIsHardError(t *testing.T) {
	a := NewTransactionBackup(0, math.MaxUint64, "m0")
	_, err := NewTransactionBackupRange([]TransactionBackupMeta{a})
	assert.ErrorIs(t, err, common.ErrCoordinateOverflow)

	e := NewEpochEndingBackup(0, math.MaxUint64, 0, 10, "m0")
	_, err = NewEpochEndingBackupRange([]EpochEndingBackupMeta{e})
	assert.ErrorIs(t, err, common.ErrCoordinateOverflow)
}
