package app

import (
	"context"
	"time"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/zerr"
)

// RecordDeployment stores the dependencies of the snapshot ref points to
// under deploymentID.
func (a *App) RecordDeployment(ctx context.Context, deploymentID, ref string) (domain.DeploymentRecord, error) {
	if err := domain.ValidateDeploymentID(deploymentID); err != nil {
		return domain.DeploymentRecord{}, err
	}

	ch, snapshot, err := a.Fetch(ctx, ref, SourceOptions{})
	if err != nil {
		return domain.DeploymentRecord{}, err
	}
	d, err := snapshot.Digest()
	if err != nil {
		return domain.DeploymentRecord{}, err
	}

	record := domain.DeploymentRecord{
		DeploymentID:   deploymentID,
		SnapshotDigest: d,
		Dependencies:   domain.DependenciesFromSnapshot(snapshot),
		RecordedAt:     time.Now().UTC(),
	}
	if ch.Name != "" {
		record.Channel = ch.Ref().String()
	}

	if err := a.deployments.Put(record); err != nil {
		return domain.DeploymentRecord{}, err
	}
	a.logger.Info("recorded " + deploymentID + " at " + d.String())
	return record, nil
}

// Dependencies returns the recorded dependencies of a deployment.
func (a *App) Dependencies(_ context.Context, deploymentID string) (domain.DeploymentRecord, error) {
	record, err := a.deployments.Get(deploymentID)
	if err != nil {
		return domain.DeploymentRecord{}, zerr.With(err, "deployment_id", deploymentID)
	}
	return record, nil
}
