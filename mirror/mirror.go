// Package mirror implements the chain mirror service. The mirror follows the blocks of the configured chains and
// writes their actions, transactions and blocks to the collections served by the api, along with the accounts they
// create. An event is published to the message broker for every block written.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/tarancss/eosapi/lib/chain"
	"github.com/tarancss/eosapi/lib/chain/types"
	"github.com/tarancss/eosapi/lib/config"
	"github.com/tarancss/eosapi/lib/metrics"
	"github.com/tarancss/eosapi/lib/msg"
	"github.com/tarancss/eosapi/lib/store"
	"github.com/tarancss/eosapi/mirror/tracker"
)

// defaultPoll is the wait for a new block when the chain does not set one.
const defaultPoll = time.Second

// ErrFork is returned when a block does not follow the last block written.
var ErrFork = errors.New("block is not chained to the last block written")

// Node is the part of the chain client used by the mirror.
type Node interface {
	Info(ctx context.Context) (*types.Info, error)
	GetBlock(ctx context.Context, num uint64) (*types.Block, error)
	Account(ctx context.Context, name string) (*types.Account, error)
}

var _ Node = (*chain.Client)(nil)

// Chain is a mirrored chain and the node it is read from.
type Chain struct {
	config.ChainConfig
	Node Node
}

// Mirror implements the mirror service.
type Mirror struct {
	db     store.Mirror
	mb     msg.MsgBroker
	chains []Chain
	log    *slog.Logger

	l   sync.Mutex
	trk map[string]*tracker.Tracker

	retry func() backoff.BackOff // policy for calls failing because the node is unavailable
}

// New instantiates a new mirror service.
func New(db store.Mirror, mb msg.MsgBroker, chains []Chain, log *slog.Logger) *Mirror {
	return &Mirror{
		db:     db,
		mb:     mb,
		chains: chains,
		log:    log,
		trk:    make(map[string]*tracker.Tracker),
		retry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxInterval = 30 * time.Second //nolint:gomnd // cap between attempts
			b.MaxElapsedTime = 0

			return b
		},
	}
}

// Run mirrors every chain in its own go routine until ctx is done or Stop is called. A chain failing does not stop the
// others. Run returns when all chains have stopped, with the first error found.
func (m *Mirror) Run(ctx context.Context) error {
	var g errgroup.Group

	for _, c := range m.chains {
		c := c // per-iteration copy (go directive < 1.22)

		g.Go(func() error {
			if err := m.RunChain(ctx, c); err != nil {
				return fmt.Errorf("[%s] %w", c.Name, err)
			}

			return nil
		})
	}

	return g.Wait()
}

// Stop asks every chain to stop after the block being written.
func (m *Mirror) Stop() {
	m.l.Lock()
	defer m.l.Unlock()

	for _, t := range m.trk {
		t.Stop()
	}
}

// Cursor returns the position of the mirror on chain, if it is running.
func (m *Mirror) Cursor(chain string) (store.Cursor, bool) {
	m.l.Lock()
	defer m.l.Unlock()

	t, ok := m.trk[chain]
	if !ok {
		return store.Cursor{}, false
	}

	return t.ToStore(), true
}

// RunChain mirrors chain c from its saved cursor, or from c.StartBlock. It returns nil when stopped, and ErrFork when
// the chain forks below the last block written.
func (m *Mirror) RunChain(ctx context.Context, c Chain) (err error) {
	log := m.log.With("chain", c.Name)

	cur, err := m.db.LoadCursor(ctx, c.Name)
	if errors.Is(err, store.ErrNotFound) {
		cur, err = store.Cursor{Chain: c.Name}, nil
	}

	if err != nil {
		return fmt.Errorf("cannot load cursor: %w", err)
	}

	t := tracker.New(cur, c.StartBlock, c.MaxBlocks)

	m.l.Lock()
	m.trk[c.Name] = t
	m.l.Unlock()

	poll := c.Poll
	if poll <= 0 {
		poll = defaultPoll
	}

	log.Info("mirroring", "block", t.Next(), "node", c.ChainConfig.Node)

	defer func() {
		log.Info("mirror stopped", "block", t.ToStore().Block, "err", err)
	}()

	var head uint64

	for t.Status() == tracker.WORK && ctx.Err() == nil {
		next := t.Next()

		// only ask for blocks the node has
		if next > head {
			info, errInfo := call(ctx, m.retry(), log, func() (*types.Info, error) { return c.Node.Info(ctx) })
			if errInfo != nil {
				return stopped(ctx, errInfo)
			}

			if head = info.HeadBlockNum; next > head {
				wait(ctx, poll)

				continue
			}
		}

		b, errBlock := call(ctx, m.retry(), log, func() (*types.Block, error) { return c.Node.GetBlock(ctx, next) })
		if errors.Is(errBlock, types.ErrNoBlock) {
			head = 0

			wait(ctx, poll)

			continue
		}

		if errBlock != nil {
			return stopped(ctx, errBlock)
		}

		if err = m.write(ctx, log, c, t, b); err != nil {
			return stopped(ctx, err)
		}
	}

	return nil
}

// write saves block b and moves the tracker to it.
func (m *Mirror) write(ctx context.Context, log *slog.Logger, c Chain, t *tracker.Tracker, b *types.Block) error {
	if !t.Chained(b.Previous) {
		t.Stop()

		return fmt.Errorf("%w: block %d previous %s", ErrFork, b.BlockNum, b.Previous)
	}

	cb, created, err := Convert(b)
	if err != nil {
		return err
	}

	if err = m.db.SaveBlock(ctx, cb); err != nil {
		return fmt.Errorf("cannot save block %d: %w", b.BlockNum, err)
	}

	for _, name := range created {
		m.saveAccount(ctx, log, c.Node, name)
	}

	t.UpdateChain(b.ID)

	if err = m.db.SaveCursor(ctx, t.ToStore()); err != nil {
		return fmt.Errorf("cannot save cursor at block %d: %w", b.BlockNum, err)
	}

	metrics.MirrorBlock.WithLabelValues(c.Name).Set(float64(b.BlockNum))

	ev := msg.BlockEvent{
		Chain:        c.Name,
		BlockNum:     b.BlockNum,
		BlockID:      b.ID,
		Transactions: len(cb.Transactions),
		Actions:      len(cb.Actions),
	}
	if err = m.mb.Publish(ctx, msg.CHAIN, msg.BlockKey(b.BlockNum), ev); err != nil {
		log.Warn("cannot publish block event", "block", b.BlockNum, "err", err)
	}

	log.Debug("block mirrored", "block", b.BlockNum, "id", b.ID, "transactions", ev.Transactions, "accounts", len(created))

	return nil
}

// saveAccount writes the account name with its balances. Failures are logged, the block is still written.
func (m *Mirror) saveAccount(ctx context.Context, log *slog.Logger, node Node, name string) {
	a, err := call(ctx, m.retry(), log, func() (*types.Account, error) { return node.Account(ctx, name) })
	if err != nil {
		log.Warn("cannot get account", "account", name, "err", err)

		return
	}

	if err = m.db.SaveAccount(ctx, NewAccount(a)); err != nil {
		log.Warn("cannot save account", "account", name, "err", err)
	}
}

// call runs f, retrying while the node is unavailable or times out.
func call[T any](ctx context.Context, bo backoff.BackOff, log *slog.Logger, f func() (T, error)) (T, error) {
	op := func() (T, error) {
		v, err := f()
		if err != nil && !errors.Is(err, chain.ErrUnavailable) && !errors.Is(err, chain.ErrTimeout) {
			return v, backoff.Permanent(err)
		}

		return v, err
	}

	return backoff.RetryNotifyWithData(op, backoff.WithContext(bo, ctx), func(err error, d time.Duration) {
		log.Warn("node call failed, retrying", "in", d, "err", err)
	})
}

// stopped hides the error of a call interrupted by ctx.
func stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}

	return err
}

func wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
