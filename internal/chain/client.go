// Package chain wraps go-ethereum for the handful of contract calls the
// bootstrapper makes: ERC-20 allowance and approval, router deposits,
// receipt confirmation, and artifact deployment.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// Client is a JSON-RPC connection verified to point at the expected chain.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
}

// Dial connects to rpcURL (http, ws or ipc) and checks that the remote chain
// id equals wantChainID.
func Dial(ctx context.Context, rpcURL string, wantChainID int64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}

	id, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if id.Cmp(big.NewInt(wantChainID)) != 0 {
		eth.Close()
		return nil, fmt.Errorf("%w: rpc reports chain id %s, configured %d", domain.ErrConfiguration, id, wantChainID)
	}

	return &Client{eth: eth, chainID: id}, nil
}

// Eth returns the underlying client. It satisfies every bind backend
// interface used in this package.
func (c *Client) Eth() *ethclient.Client {
	return c.eth
}

// ChainID returns a copy of the verified chain id.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
