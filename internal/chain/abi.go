package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// ERC20MetaData holds the subset of the ERC-20 interface the bootstrapper calls.
var ERC20MetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`,
}

// RouterMetaData holds the Uniswap-V2 style addLiquidity entry point.
var RouterMetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"addLiquidity","stateMutability":"nonpayable","inputs":[
 {"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},
 {"name":"amountADesired","type":"uint256"},{"name":"amountBDesired","type":"uint256"},
 {"name":"amountAMin","type":"uint256"},{"name":"amountBMin","type":"uint256"},
 {"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
 "outputs":[{"name":"amountA","type":"uint256"},{"name":"amountB","type":"uint256"},{"name":"liquidity","type":"uint256"}]}
]`,
}

// classifyCallErr maps an EVM revert reported by the node (during eth_call or
// gas estimation) to domain.ErrTransactionReverted. Transport errors pass
// through unchanged.
func classifyCallErr(action string, err error) error {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) || strings.Contains(err.Error(), "execution reverted") {
		return fmt.Errorf("chain: %s: %w: %v", action, domain.ErrTransactionReverted, err)
	}
	return fmt.Errorf("chain: %s: %w", action, err)
}
