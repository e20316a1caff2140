package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/ledgervault/ledgervault-go/backup/common"
)

// The persisted form is an externally tagged JSON object on one physical
// line: {"<variant>":{...fields...}}. The envelope below carries exactly one
// variant; encode and decode are exhaustive over the Metadata set, so adding
// a variant is a compile-visible change here.
type envelope struct {
	EpochEndingBackup        *EpochEndingBackupMeta        `json:"EpochEndingBackup,omitempty"`
	EpochEndingBackupRange   *EpochEndingBackupMetaRange   `json:"EpochEndingBackupRange,omitempty"`
	StateSnapshotBackup      *StateSnapshotBackupMeta      `json:"StateSnapshotBackup,omitempty"`
	StateSnapshotBackupRange *StateSnapshotBackupMetaRange `json:"StateSnapshotBackupRange,omitempty"`
	TransactionBackup        *TransactionBackupMeta        `json:"TransactionBackup,omitempty"`
	TransactionBackupRange   *TransactionBackupMetaRange   `json:"TransactionBackupRange,omitempty"`
	Identity                 *IdentityMeta                 `json:"Identity,omitempty"`
}

// ToTextLine encodes a record as one line of tagged JSON.
func ToTextLine(m Metadata) (common.TextLine, error) {
	var env envelope
	switch v := m.(type) {
	case EpochEndingBackupMeta:
		env.EpochEndingBackup = &v
	case EpochEndingBackupMetaRange:
		env.EpochEndingBackupRange = &v
	case StateSnapshotBackupMeta:
		env.StateSnapshotBackup = &v
	case StateSnapshotBackupMetaRange:
		env.StateSnapshotBackupRange = &v
	case TransactionBackupMeta:
		env.TransactionBackup = &v
	case TransactionBackupMetaRange:
		env.TransactionBackupRange = &v
	case IdentityMeta:
		env.Identity = &v
	default:
		return "", fmt.Errorf("%w: unknown metadata variant %T", common.ErrEncoding, m)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrEncoding, err)
	}
	line, err := common.NewTextLine(string(data))
	if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrEncoding, err)
	}
	return line, nil
}

// FromTextLine decodes one persisted line back into the record it encodes.
// A line tagged with no variant, more than one variant, or an unknown variant
// fails to decode.
func FromTextLine(line common.TextLine) (Metadata, error) {
	var env envelope
	if err := json.Unmarshal([]byte(line.String()), &env); err != nil {
		return nil, fmt.Errorf("decoding metadata line: %w", err)
	}

	var decoded Metadata
	set := func(m Metadata) error {
		if decoded != nil {
			return fmt.Errorf("metadata line carries more than one variant: %s", line)
		}
		decoded = m
		return nil
	}

	if env.EpochEndingBackup != nil {
		if err := set(*env.EpochEndingBackup); err != nil {
			return nil, err
		}
	}
	if env.EpochEndingBackupRange != nil {
		if err := set(*env.EpochEndingBackupRange); err != nil {
			return nil, err
		}
	}
	if env.StateSnapshotBackup != nil {
		if err := set(*env.StateSnapshotBackup); err != nil {
			return nil, err
		}
	}
	if env.StateSnapshotBackupRange != nil {
		if err := set(*env.StateSnapshotBackupRange); err != nil {
			return nil, err
		}
	}
	if env.TransactionBackup != nil {
		if err := set(*env.TransactionBackup); err != nil {
			return nil, err
		}
	}
	if env.TransactionBackupRange != nil {
		if err := set(*env.TransactionBackupRange); err != nil {
			return nil, err
		}
	}
	if env.Identity != nil {
		if err := set(*env.Identity); err != nil {
			return nil, err
		}
	}

	if decoded == nil {
		return nil, fmt.Errorf("metadata line carries no known variant: %s", line)
	}
	return decoded, nil
}
