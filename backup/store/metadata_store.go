package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/samber/mo"
	"github.com/thanos-io/objstore"

	"github.com/ledgervault/ledgervault-go/backup/common"
	"github.com/ledgervault/ledgervault-go/backup/metadata"
)

const (
	metadataDir    = "metadata"
	metadataSuffix = ".meta"
)

// MetadataStore persists metadata records to the metadata/ prefix of an
// object store bucket. Each file holds one or more text lines, each line a
// full record; a file's name is the Name() of the record that created it.
// Files are immutable once written: the store only ever creates new objects.
type MetadataStore struct {
	objectStore ObjectStore
}

func NewMetadataStore(rootPath string, bucket objstore.Bucket) *MetadataStore {
	return &MetadataStore{
		objectStore: newDelegatingObjectStore(rootPath, bucket),
	}
}

func (s *MetadataStore) metadataPath(filename string) string {
	return path.Join(metadataDir, filename)
}

// Save writes the record to metadata/<record.Name()>. Writing a name that
// already exists fails with ErrMetadataFileExists and leaves the stored file
// untouched.
func (s *MetadataStore) Save(ctx context.Context, m metadata.Metadata) error {
	line, err := metadata.ToTextLine(m)
	if err != nil {
		return err
	}

	err = s.objectStore.putIfNotExists(ctx, s.metadataPath(m.Name().String()), []byte(line.String()+"\n"))
	if err != nil {
		if errors.Is(err, common.ErrObjectExists) {
			return common.ErrMetadataFileExists
		}
		return err
	}
	return nil
}

// ListNames returns the metadata file names currently in the index, relative
// to the metadata/ prefix. Objects without the .meta suffix are skipped.
func (s *MetadataStore) ListNames(ctx context.Context) ([]string, error) {
	objMetaList, err := s.objectStore.list(ctx, mo.Some(metadataDir))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(objMetaList))
	for _, objMeta := range objMetaList {
		name := path.Base(objMeta.Location)
		if !strings.HasSuffix(name, metadataSuffix) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// ReadFile fetches one metadata file and decodes every line in it.
func (s *MetadataStore) ReadFile(ctx context.Context, name string) ([]metadata.Metadata, error) {
	data, err := s.objectStore.get(ctx, s.metadataPath(name))
	if err != nil {
		return nil, err
	}

	records := make([]metadata.Metadata, 0, 1)
	for _, raw := range strings.Split(string(data), "\n") {
		if raw == "" {
			continue
		}
		line, err := common.NewTextLine(raw)
		if err != nil {
			return nil, fmt.Errorf("metadata file %s: %w", name, err)
		}
		record, err := metadata.FromTextLine(line)
		if err != nil {
			return nil, fmt.Errorf("metadata file %s: %w", name, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// LoadAll lists and decodes every record in the index.
func (s *MetadataStore) LoadAll(ctx context.Context) ([]metadata.Metadata, error) {
	names, err := s.ListNames(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]metadata.Metadata, 0, len(names))
	for _, name := range names {
		fileRecords, err := s.ReadFile(ctx, name)
		if err != nil {
			return nil, err
		}
		records = append(records, fileRecords...)
	}
	return records, nil
}

// ReadIdentity returns the stored identity record, or None when the target
// has never been written to.
func (s *MetadataStore) ReadIdentity(ctx context.Context) (mo.Option[metadata.IdentityMeta], error) {
	var probe metadata.IdentityMeta
	records, err := s.ReadFile(ctx, probe.Name().String())
	if err != nil {
		if errors.Is(err, common.ErrObjectNotFound) {
			return mo.None[metadata.IdentityMeta](), nil
		}
		return mo.None[metadata.IdentityMeta](), err
	}

	for _, record := range records {
		if identity, ok := record.(metadata.IdentityMeta); ok {
			return mo.Some(identity), nil
		}
	}
	return mo.None[metadata.IdentityMeta](), fmt.Errorf("%w: identity.meta holds no identity record", common.ErrIdentityMissing)
}

// EnsureIdentity returns the target's identity, creating a fresh random one
// when the target is new. When two writers race, the loser reads back the
// winner's record.
func (s *MetadataStore) EnsureIdentity(ctx context.Context, rand io.Reader) (metadata.IdentityMeta, error) {
	existing, err := s.ReadIdentity(ctx)
	if err != nil {
		return metadata.IdentityMeta{}, err
	}
	if identity, ok := existing.Get(); ok {
		return identity, nil
	}

	identity, err := metadata.NewRandomIdentity(rand)
	if err != nil {
		return metadata.IdentityMeta{}, err
	}
	err = s.Save(ctx, identity)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, common.ErrMetadataFileExists) {
		return metadata.IdentityMeta{}, err
	}

	stored, err := s.ReadIdentity(ctx)
	if err != nil {
		return metadata.IdentityMeta{}, err
	}
	identity, ok := stored.Get()
	if !ok {
		return metadata.IdentityMeta{}, common.ErrIdentityMissing
	}
	return identity, nil
}

// VerifyIdentity checks that the index belongs to the expected backup target.
func (s *MetadataStore) VerifyIdentity(ctx context.Context, expected metadata.HashValue) error {
	stored, err := s.ReadIdentity(ctx)
	if err != nil {
		return err
	}
	identity, ok := stored.Get()
	if !ok {
		return common.ErrIdentityMissing
	}
	if identity.ID != expected {
		return fmt.Errorf("%w: expected %s, found %s", common.ErrIdentityMismatch, expected, identity.ID)
	}
	return nil
}
