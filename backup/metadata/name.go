package metadata

import (
	"fmt"

	"github.com/ledgervault/ledgervault-go/backup/common"
	"github.com/ledgervault/ledgervault-go/internal/assert"
)

// Names are keyed by coordinates only: two records covering the same span get
// the same name even if their manifests differ. The fixed templates below
// substitute nothing but decimal numbers, so shell-safety can only fail on a
// template bug.

func (m EpochEndingBackupMeta) Name() common.ShellSafeName {
	return mustShellSafeName(fmt.Sprintf("epoch_ending_%d-%d.meta", m.FirstEpoch, m.LastEpoch))
}

func (m EpochEndingBackupMetaRange) Name() common.ShellSafeName {
	return mustShellSafeName(fmt.Sprintf("epoch_ending_compacted_%d-%d.meta", m.FirstEpoch, m.LastEpoch))
}

func (m StateSnapshotBackupMeta) Name() common.ShellSafeName {
	return mustShellSafeName(fmt.Sprintf("state_snapshot_ver_%d.meta", m.Version))
}

func (m StateSnapshotBackupMetaRange) Name() common.ShellSafeName {
	return mustShellSafeName(fmt.Sprintf("state_snapshot_compacted_ver_%d-%d.meta", m.FirstVersion, m.LastVersion))
}

func (m TransactionBackupMeta) Name() common.ShellSafeName {
	return mustShellSafeName(fmt.Sprintf("transaction_%d-%d.meta", m.FirstVersion, m.LastVersion))
}

func (m TransactionBackupMetaRange) Name() common.ShellSafeName {
	return mustShellSafeName(fmt.Sprintf("transaction_compacted_%d-%d.meta", m.FirstVersion, m.LastVersion))
}

func (m IdentityMeta) Name() common.ShellSafeName {
	return mustShellSafeName("identity.meta")
}

func mustShellSafeName(s string) common.ShellSafeName {
	name, err := common.NewShellSafeName(s)
	assert.True(err == nil, "metadata name %q is not shell-safe: %v", s, err)
	return name
}
