package chain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// TxConfirmer waits for a transaction to be mined successfully.
type TxConfirmer interface {
	Confirm(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Deployment is the outcome of a successful contract creation.
type Deployment struct {
	Name    string
	Address common.Address
	TxHash  common.Hash
	Receipt *types.Receipt
}

// Deployer creates contracts from artifacts.
type Deployer struct {
	backend bind.ContractBackend
	opts    OptsSource
	waiter  TxConfirmer
	logger  *slog.Logger
}

// NewDeployer creates a Deployer signing with opts.
func NewDeployer(backend bind.ContractBackend, opts OptsSource, waiter TxConfirmer, logger *slog.Logger) *Deployer {
	return &Deployer{
		backend: backend,
		opts:    opts,
		waiter:  waiter,
		logger:  logger.With(slog.String("component", "deployer")),
	}
}

// Deploy sends the creation transaction for art with constructor params,
// waits for it and checks that code exists at the new address.
func (d *Deployer) Deploy(ctx context.Context, art *Artifact, params ...interface{}) (Deployment, error) {
	if want := len(art.ABI.Constructor.Inputs); want != len(params) {
		return Deployment{}, fmt.Errorf("%w: %s constructor takes %d arguments, got %d", domain.ErrConfiguration, art.Name, want, len(params))
	}

	opts, err := d.opts.Opts(ctx)
	if err != nil {
		return Deployment{}, err
	}

	addr, tx, _, err := bind.DeployContract(opts, art.ABI, art.Bytecode, d.backend, params...)
	if err != nil {
		return Deployment{}, classifyCallErr("deploy "+art.Name, err)
	}
	d.logger.Info("deployment sent",
		slog.String("contract", art.Name),
		slog.String("address", addr.Hex()),
		slog.String("tx", tx.Hash().Hex()),
	)

	receipt, err := d.waiter.Confirm(ctx, tx)
	if err != nil {
		return Deployment{}, fmt.Errorf("chain: deploy %s: %w", art.Name, err)
	}
	code, err := d.backend.CodeAt(ctx, addr, nil)
	if err != nil {
		return Deployment{}, fmt.Errorf("chain: deploy %s: code at %s: %w", art.Name, addr.Hex(), err)
	}
	if len(code) == 0 {
		return Deployment{}, fmt.Errorf("chain: deploy %s: no code at %s: %w", art.Name, addr.Hex(), domain.ErrTransactionReverted)
	}

	return Deployment{Name: art.Name, Address: addr, TxHash: tx.Hash(), Receipt: receipt}, nil
}
