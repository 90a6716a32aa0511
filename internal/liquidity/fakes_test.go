package liquidity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/ammseed/internal/chain"
	"github.com/alanyoungcy/ammseed/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type allowKey struct{ token, owner, spender common.Address }

// fakeNet is an in-memory chain. State changes submitted by Approve and
// AddLiquidity take effect only when the transaction is confirmed.
type fakeNet struct {
	owner     common.Address
	names     map[common.Address]string
	allowance map[allowKey]*big.Int
	balance   map[common.Address]*big.Int
	decimals  map[common.Address]uint8
	symbols   map[common.Address]string
	pending   map[common.Hash]func() bool
	nonce     uint64

	sent       []string
	approved   []*big.Int
	deposits   []chain.AddLiquidityArgs
	deadlines  []time.Time
	violations []string

	blockTime       time.Time
	revertApprove   map[common.Address]bool
	hideApproval    bool
	revertDepositAt int
	simulateErr     error
}

func newFakeNet(owner common.Address) *fakeNet {
	return &fakeNet{
		owner:         owner,
		names:         make(map[common.Address]string),
		allowance:     make(map[allowKey]*big.Int),
		balance:       make(map[common.Address]*big.Int),
		decimals:      make(map[common.Address]uint8),
		symbols:       make(map[common.Address]string),
		pending:       make(map[common.Hash]func() bool),
		revertApprove: make(map[common.Address]bool),
	}
}

func (n *fakeNet) newTx(effect func() bool) *types.Transaction {
	n.nonce++
	tx := types.NewTx(&types.LegacyTx{Nonce: n.nonce})
	n.pending[tx.Hash()] = effect
	return tx
}

func (n *fakeNet) allowanceOf(token, spender common.Address) *big.Int {
	if v, ok := n.allowance[allowKey{token, n.owner, spender}]; ok {
		return v
	}
	return new(big.Int)
}

func (n *fakeNet) Confirm(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	effect, ok := n.pending[tx.Hash()]
	if !ok {
		return nil, fmt.Errorf("unknown tx %s", tx.Hash().Hex())
	}
	delete(n.pending, tx.Hash())

	receipt := &types.Receipt{TxHash: tx.Hash(), BlockNumber: big.NewInt(int64(n.nonce)), GasUsed: 21000}
	if !effect() {
		receipt.Status = types.ReceiptStatusFailed
		return receipt, fmt.Errorf("fake: tx %d: %w", tx.Nonce(), domain.ErrTransactionReverted)
	}
	receipt.Status = types.ReceiptStatusSuccessful
	return receipt, nil
}

func (n *fakeNet) ConfirmBefore(ctx context.Context, tx *types.Transaction, deadline time.Time) (*types.Receipt, error) {
	n.deadlines = append(n.deadlines, deadline)
	if !n.blockTime.IsZero() && n.blockTime.After(deadline) {
		delete(n.pending, tx.Hash())
		return nil, fmt.Errorf("fake: tx %d: %w", tx.Nonce(), domain.ErrDeadlineExceeded)
	}
	return n.Confirm(ctx, tx)
}

type fakeToken struct {
	net    *fakeNet
	addr   common.Address
	symbol string
}

func (t *fakeToken) Address() common.Address { return t.addr }
func (t *fakeToken) Symbol() string          { return t.symbol }

func (t *fakeToken) Allowance(_ context.Context, owner, spender common.Address) (*big.Int, error) {
	return new(big.Int).Set(t.net.allowanceOf(t.addr, spender)), nil
}

func (t *fakeToken) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	if v, ok := t.net.balance[t.addr]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (t *fakeToken) Decimals(context.Context) (uint8, error) {
	return t.net.decimals[t.addr], nil
}

func (t *fakeToken) OnChainSymbol(context.Context) (string, error) {
	if s, ok := t.net.symbols[t.addr]; ok {
		return s, nil
	}
	return t.symbol, nil
}

func (t *fakeToken) Approve(_ context.Context, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	n := t.net
	n.sent = append(n.sent, "approve "+t.symbol+" "+n.names[spender])
	n.approved = append(n.approved, new(big.Int).Set(amount))
	return n.newTx(func() bool {
		if n.revertApprove[t.addr] {
			return false
		}
		if !n.hideApproval {
			n.allowance[allowKey{t.addr, n.owner, spender}] = new(big.Int).Set(amount)
		}
		return true
	}), nil
}

type fakeRouter struct {
	net  *fakeNet
	addr common.Address
	name string
}

func (r *fakeRouter) Address() common.Address { return r.addr }

func (r *fakeRouter) AddLiquidity(_ context.Context, args chain.AddLiquidityArgs) (*types.Transaction, error) {
	n := r.net
	n.sent = append(n.sent, "addLiquidity "+r.name+" "+n.names[args.TokenA]+"/"+n.names[args.TokenB])
	for _, side := range []struct {
		token  common.Address
		amount *big.Int
	}{{args.TokenA, args.AmountADesired}, {args.TokenB, args.AmountBDesired}} {
		if n.allowanceOf(side.token, r.addr).Cmp(side.amount) < 0 {
			n.violations = append(n.violations, fmt.Sprintf("%s spends %s of %s without allowance", r.name, side.amount, n.names[side.token]))
		}
	}

	deposit := len(n.deposits) + 1
	return n.newTx(func() bool {
		if n.revertDepositAt == deposit {
			return false
		}
		for _, side := range []struct {
			token  common.Address
			amount *big.Int
		}{{args.TokenA, args.AmountADesired}, {args.TokenB, args.AmountBDesired}} {
			key := allowKey{side.token, n.owner, r.addr}
			if cur := n.allowanceOf(side.token, r.addr); cur.Cmp(domain.MaxUint256()) != 0 {
				n.allowance[key] = new(big.Int).Sub(cur, side.amount)
			}
		}
		n.deposits = append(n.deposits, args)
		return true
	}), nil
}

func (r *fakeRouter) Simulate(_ context.Context, _ common.Address, args chain.AddLiquidityArgs) (chain.AddLiquidityResult, error) {
	if r.net.simulateErr != nil {
		return chain.AddLiquidityResult{}, r.net.simulateErr
	}
	return chain.AddLiquidityResult{AmountA: args.AmountADesired, AmountB: args.AmountBDesired, Liquidity: big.NewInt(1)}, nil
}

type recordingJournal struct {
	approvals []ApprovalOutcome
	deposits  []DepositReceipt
	failures  []error
	err       error
	onDeposit func()
}

func (j *recordingJournal) Approval(_ context.Context, _ int, _ string, o ApprovalOutcome) error {
	j.approvals = append(j.approvals, o)
	return j.err
}

func (j *recordingJournal) Deposit(_ context.Context, _ int, r DepositReceipt) error {
	j.deposits = append(j.deposits, r)
	if j.onDeposit != nil {
		j.onDeposit()
	}
	return j.err
}

func (j *recordingJournal) Failure(_ context.Context, _ int, _ string, cause error) error {
	j.failures = append(j.failures, cause)
	return j.err
}
