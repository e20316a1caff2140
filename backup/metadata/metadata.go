package metadata

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ledgervault/ledgervault-go/backup/common"
)

// Metadata is the closed set of backup metadata records. Every record
// persisted to a metadata index is exactly one of the variants below, and the
// naming and codec layers match over the set exhaustively.
type Metadata interface {
	// Name returns the deterministic, shell-safe file name for the record.
	Name() common.ShellSafeName

	isMetadata()
}

// EpochEndingBackupMeta describes one backup of the epoch-ending ledger info
// for the contiguous closed epoch range [FirstEpoch, LastEpoch], spanning
// ledger versions [FirstVersion, LastVersion].
type EpochEndingBackupMeta struct {
	FirstEpoch   uint64            `json:"first_epoch"`
	LastEpoch    uint64            `json:"last_epoch"`
	FirstVersion uint64            `json:"first_version"`
	LastVersion  uint64            `json:"last_version"`
	Manifest     common.FileHandle `json:"manifest"`
}

// EpochEndingBackupMetaRange is the compaction of one or more contiguous
// epoch-ending backups. Bounds are the union bounds of the members.
type EpochEndingBackupMetaRange struct {
	FirstEpoch   uint64                  `json:"first_epoch"`
	LastEpoch    uint64                  `json:"last_epoch"`
	FirstVersion uint64                  `json:"first_version"`
	LastVersion  uint64                  `json:"last_version"`
	BackupMetas  []EpochEndingBackupMeta `json:"backup_metas"`
}

// StateSnapshotBackupMeta describes one full state snapshot taken at a single
// (epoch, version) point.
type StateSnapshotBackupMeta struct {
	Epoch    uint64            `json:"epoch"`
	Version  uint64            `json:"version"`
	Manifest common.FileHandle `json:"manifest"`
}

// StateSnapshotBackupMetaRange is the compaction of consecutive snapshots
// whose epoch and version both advance by exactly one between members.
type StateSnapshotBackupMetaRange struct {
	FirstEpoch   uint64                    `json:"first_epoch"`
	LastEpoch    uint64                    `json:"last_epoch"`
	FirstVersion uint64                    `json:"first_version"`
	LastVersion  uint64                    `json:"last_version"`
	BackupMetas  []StateSnapshotBackupMeta `json:"backup_metas"`
}

// TransactionBackupMeta describes one backup of committed transactions for
// the contiguous closed version range [FirstVersion, LastVersion].
type TransactionBackupMeta struct {
	FirstVersion uint64            `json:"first_version"`
	LastVersion  uint64            `json:"last_version"`
	Manifest     common.FileHandle `json:"manifest"`
}

// TransactionBackupMetaRange is the compaction of transaction backups whose
// version spans are exactly adjacent.
type TransactionBackupMetaRange struct {
	FirstVersion uint64                  `json:"first_version"`
	LastVersion  uint64                  `json:"last_version"`
	BackupMetas  []TransactionBackupMeta `json:"backup_metas"`
}

// IdentityMeta fingerprints a backup target, so tooling can detect when an
// index is pointed at a different, unrelated target than expected. It has no
// relation to epoch/version coordinates.
type IdentityMeta struct {
	ID HashValue `json:"id"`
}

func (EpochEndingBackupMeta) isMetadata()        {}
func (EpochEndingBackupMetaRange) isMetadata()   {}
func (StateSnapshotBackupMeta) isMetadata()      {}
func (StateSnapshotBackupMetaRange) isMetadata() {}
func (TransactionBackupMeta) isMetadata()        {}
func (TransactionBackupMetaRange) isMetadata()   {}
func (IdentityMeta) isMetadata()                 {}

func NewEpochEndingBackup(firstEpoch, lastEpoch, firstVersion, lastVersion uint64, manifest common.FileHandle) EpochEndingBackupMeta {
	return EpochEndingBackupMeta{
		FirstEpoch:   firstEpoch,
		LastEpoch:    lastEpoch,
		FirstVersion: firstVersion,
		LastVersion:  lastVersion,
		Manifest:     manifest,
	}
}

func NewStateSnapshotBackup(epoch, version uint64, manifest common.FileHandle) StateSnapshotBackupMeta {
	return StateSnapshotBackupMeta{
		Epoch:    epoch,
		Version:  version,
		Manifest: manifest,
	}
}

func NewTransactionBackup(firstVersion, lastVersion uint64, manifest common.FileHandle) TransactionBackupMeta {
	return TransactionBackupMeta{
		FirstVersion: firstVersion,
		LastVersion:  lastVersion,
		Manifest:     manifest,
	}
}

// NewRandomIdentity draws a fresh 256-bit identity from rand. Pass
// crypto/rand.Reader in production; tests may inject a deterministic reader.
func NewRandomIdentity(rand io.Reader) (IdentityMeta, error) {
	var id HashValue
	if _, err := io.ReadFull(rand, id[:]); err != nil {
		return IdentityMeta{}, fmt.Errorf("reading identity randomness: %w", err)
	}
	return IdentityMeta{ID: id}, nil
}

// HashValue is a 256-bit value, hex-encoded in the persisted form.
type HashValue [32]byte

func (h HashValue) String() string {
	return hex.EncodeToString(h[:])
}

func (h HashValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HashValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hash value %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return fmt.Errorf("invalid hash value length: %d bytes, want %d", len(raw), len(h))
	}
	copy(h[:], raw)
	return nil
}
