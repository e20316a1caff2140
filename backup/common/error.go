package common

import "errors"

var (
	ErrEmptyCompaction    = errors.New("compacting an empty metadata set")
	ErrEncoding           = errors.New("metadata encoding failed")
	ErrCoordinateOverflow = errors.New("ledger coordinate overflow")
	ErrObjectStore        = errors.New("object store error")
	ErrObjectExists       = errors.New("object already exists in store")
	ErrObjectNotFound     = errors.New("object not found in store")
	ErrMetadataFileExists = errors.New("metadata file already exists")
	ErrIdentityMismatch   = errors.New("backup target identity mismatch")
	ErrIdentityMissing    = errors.New("backup target identity not found")
	ErrBackupGap          = errors.New("gap in backup coverage")
	ErrNotEnoughHistory   = errors.New("not enough backup history")
)
