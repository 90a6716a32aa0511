package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	s3blob "github.com/alanyoungcy/ammseed/internal/blob/s3"
	"github.com/alanyoungcy/ammseed/internal/cache/redis"
	"github.com/alanyoungcy/ammseed/internal/chain"
	"github.com/alanyoungcy/ammseed/internal/config"
	"github.com/alanyoungcy/ammseed/internal/crypto"
	"github.com/alanyoungcy/ammseed/internal/domain"
	"github.com/alanyoungcy/ammseed/internal/liquidity"
	"github.com/alanyoungcy/ammseed/internal/metrics"
	"github.com/alanyoungcy/ammseed/internal/notify"
	"github.com/alanyoungcy/ammseed/internal/store/postgres"
)

// Dependencies bundles everything the modes need. Optional sinks are nil when
// disabled in configuration.
type Dependencies struct {
	Chain      *chain.Client
	Signer     *crypto.Signer
	Transactor *chain.Transactor
	Waiter     *chain.Waiter
	Deployer   *chain.Deployer

	RunStore domain.RunStore
	Locks    domain.LockManager
	Reports  domain.BlobWriter

	Notifier *notify.Notifier
	Metrics  *metrics.Metrics
}

// Wire resolves the signing key and dials the RPC node and every enabled sink
// concurrently. The returned cleanup releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: key: %w", err)
	}
	signer, err := crypto.NewSigner(key, cfg.Chain.ChainID)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: signer: %w", err)
	}
	gasPrice, err := chain.ParseGasPrice(cfg.Chain.GasPriceWei)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: %w", err)
	}

	var (
		mu      sync.Mutex
		closers []func()
	)
	addCloser := func(fn func()) {
		mu.Lock()
		closers = append(closers, fn)
		mu.Unlock()
	}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Signer: signer, Metrics: metrics.New()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		client, err := chain.Dial(gctx, cfg.Chain.RPCURL, cfg.Chain.ChainID)
		if err != nil {
			return fmt.Errorf("wire: %w", err)
		}
		addCloser(client.Close)
		deps.Chain = client
		return nil
	})

	if cfg.Ledger.Enabled {
		g.Go(func() error {
			pg, err := postgres.New(gctx, postgres.ClientConfig{
				DSN:      cfg.Ledger.DSN,
				Host:     cfg.Ledger.Host,
				Port:     cfg.Ledger.Port,
				Database: cfg.Ledger.Database,
				User:     cfg.Ledger.User,
				Password: cfg.Ledger.Password,
				SSLMode:  cfg.Ledger.SSLMode,
				MaxConns: cfg.Ledger.PoolMaxConns,
				MinConns: cfg.Ledger.PoolMinConns,
			})
			if err != nil {
				return fmt.Errorf("wire: %w", err)
			}
			addCloser(pg.Close)
			if cfg.Ledger.RunMigrations {
				if err := pg.RunMigrations(gctx); err != nil {
					return fmt.Errorf("wire: %w", err)
				}
			}
			deps.RunStore = postgres.NewRunStore(pg.Pool())
			return nil
		})
	}

	if cfg.Redis.Enabled {
		g.Go(func() error {
			rc, err := redis.New(gctx, redis.ClientConfig{
				Addr:       cfg.Redis.Addr,
				Password:   cfg.Redis.Password,
				DB:         cfg.Redis.DB,
				PoolSize:   cfg.Redis.PoolSize,
				MaxRetries: cfg.Redis.MaxRetries,
				TLSEnabled: cfg.Redis.TLSEnabled,
			})
			if err != nil {
				return fmt.Errorf("wire: %w", err)
			}
			addCloser(func() { _ = rc.Close() })
			deps.Locks = redis.NewLockManager(rc)
			return nil
		})
	}

	if cfg.S3.Enabled {
		g.Go(func() error {
			sc, err := s3blob.New(gctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				Prefix:         cfg.S3.Prefix,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				return fmt.Errorf("wire: %w", err)
			}
			if err := sc.Health(gctx); err != nil {
				return fmt.Errorf("wire: %w", err)
			}
			deps.Reports = s3blob.NewWriter(sc)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		cleanup()
		return nil, nil, err
	}

	eth := deps.Chain.Eth()
	deps.Transactor = chain.NewTransactor(signer, eth, chain.GasConfig{
		PriceWei: gasPrice,
		BumpPct:  cfg.Chain.GasPriceBumpPct,
		Limit:    cfg.Chain.GasLimit,
	})
	deps.Waiter = chain.NewWaiter(eth, cfg.Chain.ConfirmTimeout.Duration, logger)
	deps.Waiter.SetObserver(func(elapsed time.Duration, r *types.Receipt) {
		deps.Metrics.ObserveConfirm(elapsed, r.GasUsed)
	})
	deps.Deployer = chain.NewDeployer(eth, deps.Transactor, deps.Waiter, logger)
	deps.Notifier = notify.NewNotifier(senders(cfg.Notify), cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

func senders(cfg config.NotifyConfig) []notify.Sender {
	var out []notify.Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		out = append(out, notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		out = append(out, notify.NewDiscordSender(cfg.DiscordWebhookURL))
	}
	return out
}

// Handles binds a contract handle for every asset and router in plan.
func (d *Dependencies) Handles(plan domain.DepositPlan) (liquidity.Handles, error) {
	h := liquidity.Handles{
		Tokens:  make(map[common.Address]liquidity.Token),
		Routers: make(map[common.Address]liquidity.Router),
	}
	eth := d.Chain.Eth()
	for _, a := range plan.Assets() {
		t, err := chain.NewERC20(a.Address, a.Symbol, eth, d.Transactor)
		if err != nil {
			return liquidity.Handles{}, err
		}
		h.Tokens[a.Address] = t
	}
	for _, r := range plan.Routers() {
		rt, err := chain.NewRouter(r.Name, r.Address, eth, d.Transactor)
		if err != nil {
			return liquidity.Handles{}, err
		}
		h.Routers[r.Address] = rt
	}
	return h, nil
}
