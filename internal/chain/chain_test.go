package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReceipts struct {
	receipt *types.Receipt
	header  *types.Header
}

func (f *fakeReceipts) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if f.receipt == nil {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func (f *fakeReceipts) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeReceipts) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return f.header, nil
}

func TestWaiterConfirmBefore(t *testing.T) {
	deadline := time.Now().Add(time.Hour).Truncate(time.Second)
	tx := types.NewTx(&types.LegacyTx{Nonce: 7})

	testCases := []struct {
		name       string
		receipt    *types.Receipt
		blockTime  uint64
		deadline   time.Time
		wantErr    error
		wantObserv bool
	}{
		{
			name:       "mined successfully",
			receipt:    &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10)},
			deadline:   time.Now().Add(time.Hour),
			wantObserv: true,
		},
		{
			name:      "reverted before deadline",
			receipt:   &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(10)},
			blockTime: uint64(deadline.Unix()),
			deadline:  deadline,
			wantErr:   domain.ErrTransactionReverted,
		},
		{
			name:      "reverted after deadline",
			receipt:   &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(11)},
			blockTime: uint64(deadline.Unix()) + 1,
			deadline:  deadline,
			wantErr:   domain.ErrDeadlineExceeded,
		},
		{
			name:     "never mined",
			deadline: time.Now().Add(-time.Minute),
			wantErr:  domain.ErrDeadlineExceeded,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeReceipts{receipt: tc.receipt, header: &types.Header{Time: tc.blockTime}}
			w := NewWaiter(backend, time.Minute, discardLogger())
			observed := false
			w.SetObserver(func(time.Duration, *types.Receipt) { observed = true })

			_, err := w.ConfirmBefore(context.Background(), tx, tc.deadline)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("ConfirmBefore: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("ConfirmBefore error = %v, want %v", err, tc.wantErr)
			}
			if observed != tc.wantObserv {
				t.Fatalf("observer called = %v, want %v", observed, tc.wantObserv)
			}
		})
	}
}

func TestWaiterConfirmReverted(t *testing.T) {
	backend := &fakeReceipts{receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(3)}}
	w := NewWaiter(backend, time.Minute, discardLogger())

	_, err := w.Confirm(context.Background(), types.NewTx(&types.LegacyTx{}))
	if !errors.Is(err, domain.ErrTransactionReverted) {
		t.Fatalf("Confirm error = %v, want ErrTransactionReverted", err)
	}
}

func TestWaiterConfirmCancelled(t *testing.T) {
	w := NewWaiter(&fakeReceipts{}, time.Minute, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.ConfirmBefore(ctx, types.NewTx(&types.LegacyTx{}), time.Now().Add(time.Hour))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ConfirmBefore error = %v, want context.Canceled", err)
	}
	if errors.Is(err, domain.ErrDeadlineExceeded) {
		t.Fatal("cancellation reported as deadline expiry")
	}
}

func TestRouterABISelectors(t *testing.T) {
	testCases := []struct {
		meta   *bind.MetaData
		method string
		want   string
	}{
		{ERC20MetaData, "allowance", "dd62ed3e"},
		{ERC20MetaData, "approve", "095ea7b3"},
		{ERC20MetaData, "balanceOf", "70a08231"},
		{ERC20MetaData, "decimals", "313ce567"},
		{RouterMetaData, "addLiquidity", "e8e33700"},
	}
	for _, tc := range testCases {
		parsed, err := tc.meta.GetAbi()
		if err != nil {
			t.Fatalf("GetAbi: %v", err)
		}
		m, ok := parsed.Methods[tc.method]
		if !ok {
			t.Fatalf("method %s missing", tc.method)
		}
		if got := hex.EncodeToString(m.ID); got != tc.want {
			t.Errorf("%s selector = %s, want %s", tc.method, got, tc.want)
		}
	}
}

func TestAddLiquidityArgsPack(t *testing.T) {
	parsed, err := RouterMetaData.GetAbi()
	if err != nil {
		t.Fatal(err)
	}
	args := AddLiquidityArgs{
		TokenA:         common.HexToAddress("0xa"),
		TokenB:         common.HexToAddress("0xb"),
		AmountADesired: big.NewInt(40_000_000_000_000),
		AmountBDesired: new(big.Int).Mul(big.NewInt(20_000_000), big.NewInt(1e18)),
		AmountAMin:     big.NewInt(40_000_000_000_000),
		AmountBMin:     new(big.Int).Mul(big.NewInt(20_000_000), big.NewInt(1e18)),
		To:             common.HexToAddress("0xc"),
		Deadline:       big.NewInt(1_700_003_600),
	}
	data, err := parsed.Pack("addLiquidity", args.params()...)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(data) != 4+8*32 {
		t.Fatalf("calldata length = %d, want %d", len(data), 4+8*32)
	}
	deadlineWord := new(big.Int).SetBytes(data[4+7*32:])
	if deadlineWord.Cmp(args.Deadline) != 0 {
		t.Fatalf("deadline word = %s, want %s", deadlineWord, args.Deadline)
	}
}

type staticSigner struct{ addr common.Address }

func (s staticSigner) Address() common.Address { return s.addr }
func (s staticSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: s.addr, Context: ctx}, nil
}

type fixedSuggester struct{ price *big.Int }

func (f fixedSuggester) SuggestGasPrice(context.Context) (*big.Int, error) { return f.price, nil }

func TestTransactorGas(t *testing.T) {
	signer := staticSigner{addr: common.HexToAddress("0x1")}
	suggester := fixedSuggester{price: big.NewInt(1_000_000_000)}

	testCases := []struct {
		name      string
		gas       GasConfig
		wantPrice int64
		wantLimit uint64
	}{
		{name: "auto with bump", gas: GasConfig{BumpPct: 20}, wantPrice: 1_200_000_000},
		{name: "auto without bump", gas: GasConfig{}, wantPrice: 1_000_000_000},
		{name: "fixed price and limit", gas: GasConfig{PriceWei: big.NewInt(5), BumpPct: 20, Limit: 300_000}, wantPrice: 5, wantLimit: 300_000},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := NewTransactor(signer, suggester, tc.gas).Opts(context.Background())
			if err != nil {
				t.Fatalf("Opts: %v", err)
			}
			if opts.GasPrice.Int64() != tc.wantPrice || opts.GasLimit != tc.wantLimit {
				t.Fatalf("gas = %s/%d, want %d/%d", opts.GasPrice, opts.GasLimit, tc.wantPrice, tc.wantLimit)
			}
		})
	}
}

func TestParseGasPrice(t *testing.T) {
	for _, s := range []string{"", "auto", "AUTO"} {
		if v, err := ParseGasPrice(s); err != nil || v != nil {
			t.Errorf("ParseGasPrice(%q) = %v, %v; want nil, nil", s, v, err)
		}
	}
	if v, err := ParseGasPrice("2000000000"); err != nil || v.Int64() != 2_000_000_000 {
		t.Errorf("ParseGasPrice = %v, %v", v, err)
	}
	for _, s := range []string{"-1", "0", "1.5 gwei"} {
		if _, err := ParseGasPrice(s); err == nil {
			t.Errorf("ParseGasPrice(%q) accepted", s)
		}
	}
}

const mockArtifact = `{
  "contractName": "CC01",
  "abi": [{"type":"constructor","inputs":[],"stateMutability":"nonpayable"}],
  "bytecode": "0x6080604052"
}`

const flashLoanArtifact = `{
  "abi": [{"type":"constructor","inputs":[
    {"name":"provider","type":"address"},{"name":"router","type":"address"},{"name":"borrowed","type":"address"}
  ],"stateMutability":"nonpayable"}],
  "bytecode": {"object": "0x6080"}
}`

func TestLoadArtifact(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "contracts", "FlashLoan.sol")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "CC01.json"), []byte(mockArtifact), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "FlashLoan.json"), []byte(flashLoanArtifact), 0o600); err != nil {
		t.Fatal(err)
	}

	art, err := LoadArtifact(dir, "CC01")
	if err != nil {
		t.Fatalf("LoadArtifact CC01: %v", err)
	}
	if art.Name != "CC01" || len(art.Bytecode) != 5 || len(art.ABI.Constructor.Inputs) != 0 {
		t.Fatalf("CC01 artifact = %+v", art)
	}

	art, err = LoadArtifact(dir, "FlashLoan")
	if err != nil {
		t.Fatalf("LoadArtifact FlashLoan: %v", err)
	}
	if art.Name != "FlashLoan" || len(art.ABI.Constructor.Inputs) != 3 || len(art.Bytecode) != 2 {
		t.Fatalf("FlashLoan artifact = %+v", art)
	}

	if _, err := LoadArtifact(dir, "Missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing artifact error = %v, want ErrNotFound", err)
	}
}

func TestParseArtifactRejects(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"no abi", `{"bytecode":"0x60"}`},
		{"empty bytecode", `{"abi":[],"bytecode":"0x"}`},
		{"unlinked library", `{"abi":[],"bytecode":"0x60__$abc$__60"}`},
		{"bad bytecode type", `{"abi":[],"bytecode":42}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseArtifact("X", []byte(tc.body)); !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("ParseArtifact error = %v, want ErrConfiguration", err)
			}
		})
	}
}
