// Package deploy creates the auxiliary contracts of a market bootstrap: the
// mock tokens and the flash-loan arbitrage executor.
package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/ammseed/internal/chain"
)

// ContractDeployer is satisfied by *chain.Deployer.
type ContractDeployer interface {
	Deploy(ctx context.Context, art *chain.Artifact, params ...interface{}) (chain.Deployment, error)
}

// ArtifactSource resolves a contract name to its compiled artifact.
type ArtifactSource func(name string) (*chain.Artifact, error)

// DirSource loads artifacts from dir.
func DirSource(dir string) ArtifactSource {
	return func(name string) (*chain.Artifact, error) {
		return chain.LoadArtifact(dir, name)
	}
}

// Journal is told about every confirmed deployment.
type Journal interface {
	Deployed(ctx context.Context, d chain.Deployment) error
}

// Deployer deploys named artifacts one at a time.
type Deployer struct {
	contracts ContractDeployer
	artifacts ArtifactSource
	journal   Journal
	logger    *slog.Logger
}

// New creates a Deployer. journal may be nil.
func New(contracts ContractDeployer, artifacts ArtifactSource, journal Journal, logger *slog.Logger) *Deployer {
	return &Deployer{
		contracts: contracts,
		artifacts: artifacts,
		journal:   journal,
		logger:    logger.With(slog.String("component", "deploy")),
	}
}

func (d *Deployer) deploy(ctx context.Context, art *chain.Artifact, params ...interface{}) (chain.Deployment, error) {
	dep, err := d.contracts.Deploy(ctx, art, params...)
	if err != nil {
		return chain.Deployment{}, fmt.Errorf("deploy: %s: %w", art.Name, err)
	}
	d.logger.Info("contract deployed",
		slog.String("contract", dep.Name),
		slog.String("address", dep.Address.Hex()),
		slog.String("tx", dep.TxHash.Hex()),
	)
	if d.journal != nil {
		if err := d.journal.Deployed(ctx, dep); err != nil {
			d.logger.Warn("journal write failed",
				slog.String("contract", dep.Name),
				slog.String("error", err.Error()),
			)
		}
	}
	return dep, nil
}
