package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

func TestCause(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", domain.ErrDeadlineExceeded), "deadline"},
		{fmt.Errorf("x: %w", domain.ErrTransactionReverted), "reverted"},
		{domain.ErrAllowanceNotVisible, "allowance_not_visible"},
		{domain.ErrInsufficientBalance, "insufficient_balance"},
		{domain.ErrDecimalsMismatch, "decimals_mismatch"},
		{fmt.Errorf("liquidity: %w", domain.ErrSymbolMismatch), "symbol_mismatch"},
		{domain.ErrConfiguration, "configuration"},
		{context.Canceled, "cancelled"},
		{errors.New("dial tcp: refused"), "other"},
	}
	for _, tc := range testCases {
		if got := Cause(tc.err); got != tc.want {
			t.Errorf("Cause(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestCollectors(t *testing.T) {
	m := New()
	m.Approvals.WithLabelValues("USDC", "r0").Inc()
	m.Approvals.WithLabelValues("CC01", "r0").Inc()
	m.ObserveConfirm(2*time.Second, 46_000)
	m.ObserveConfirm(time.Second, 4_000)
	m.FinishRun(90*time.Second, nil)

	if got := testutil.ToFloat64(m.Approvals.WithLabelValues("USDC", "r0")); got != 1 {
		t.Fatalf("USDC approvals = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GasUsed); got != 50_000 {
		t.Fatalf("gas used = %v, want 50000", got)
	}
	if got := testutil.ToFloat64(m.RunSuccess); got != 1 {
		t.Fatalf("run success = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.ConfirmDuration); n != 1 {
		t.Fatalf("histogram series = %d, want 1", n)
	}

	m.FinishRun(time.Second, domain.ErrTransactionReverted)
	if got := testutil.ToFloat64(m.RunSuccess); got != 0 {
		t.Fatalf("run success after failure = %v, want 0", got)
	}
}

func TestPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.Deposits.WithLabelValues("r0").Inc()
	if err := m.Push(context.Background(), srv.URL, "ammseed", "0xabc"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if path != "/metrics/job/ammseed/signer/0xabc" {
		t.Fatalf("push path = %q", path)
	}
	if body == "" {
		t.Fatal("empty push body")
	}
}
