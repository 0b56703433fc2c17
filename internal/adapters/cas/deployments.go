package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// DeploymentStore implements ports.DeploymentStore with one file per deployment.
type DeploymentStore struct {
	dir string
}

var _ ports.DeploymentStore = (*DeploymentStore)(nil)

// NewDeploymentStore creates a deployment store rooted at dir.
func NewDeploymentStore(dir string) *DeploymentStore {
	return &DeploymentStore{dir: filepath.Clean(dir)}
}

func (s *DeploymentStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Put stores the record, replacing any previous one.
func (s *DeploymentStore) Put(record domain.DeploymentRecord) error {
	if err := domain.ValidateDeploymentID(record.DeploymentID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := atomicWriteFile(s.path(record.DeploymentID), data); err != nil {
		return zerr.With(err, "deployment_id", record.DeploymentID)
	}
	return nil
}

// Get returns the record stored for id.
func (s *DeploymentStore) Get(id string) (domain.DeploymentRecord, error) {
	if err := domain.ValidateDeploymentID(id); err != nil {
		return domain.DeploymentRecord{}, err
	}

	//nolint:gosec // Path is constructed from the store directory and a validated id
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.DeploymentRecord{}, domain.ErrDeploymentNotFound
		}
		return domain.DeploymentRecord{}, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	var record domain.DeploymentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.DeploymentRecord{}, zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error())
	}
	return record, nil
}
