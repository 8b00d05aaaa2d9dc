// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/nevo/database"
	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/event"
	"github.com/blinklabs-io/nevo/ledger/common"
)

type frameKey struct{}

// frame is the state of one ledger invocation. The top-level call owns the
// transaction; re-entrant calls made with the same context share it
type frame struct {
	ls     *LedgerState
	txn    *database.Txn
	events []event.Event
	now    uint64
	depth  int
}

func frameFromContext(ctx context.Context, ls *LedgerState) *frame {
	f, ok := ctx.Value(frameKey{}).(*frame)
	if !ok || f.ls != ls {
		return nil
	}
	return f
}

// invoke runs fn as a mutating ledger call. A top-level call holds the
// ledger mutex and commits on success. A nested call undoes its own writes
// and notifications on failure and leaves the outcome of the outer call to
// the outer call
func (ls *LedgerState) invoke(
	ctx context.Context,
	op string,
	fn func(ctx context.Context, f *frame) error,
) error {
	if parent := frameFromContext(ctx, ls); parent != nil {
		if !parent.txn.ReadWrite() {
			return fmt.Errorf("%s: %w", op, types.ErrReadOnlyTxn)
		}
		return ls.invokeNested(ctx, op, parent, fn)
	}
	if err := ls.lock(); err != nil {
		ls.metrics.lockContention.Inc()
		ls.metrics.operationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	defer ls.mu.Unlock()
	start := time.Now()
	ctx, span := ls.tracer.Start(
		ctx,
		"ledger."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()
	txn := ls.db.Transaction(true)
	// Covers panics in fn; a no-op once the transaction is finished
	defer txn.Release()
	f := &frame{
		ls:  ls,
		txn: txn,
		now: ls.config.Clock.Now(),
	}
	span.SetAttributes(attribute.Int64("ledger.time", int64(f.now))) //nolint:gosec
	err := fn(context.WithValue(ctx, frameKey{}, f), f)
	if err == nil {
		if err = txn.Commit(); err != nil {
			err = fmt.Errorf("commit: %w", err)
		}
	} else if rbErr := txn.Rollback(); rbErr != nil {
		err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
	}
	ls.metrics.operationDuration.WithLabelValues(op).
		Observe(time.Since(start).Seconds())
	ls.metrics.operationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ls.config.Logger.Debug(
			"ledger operation failed",
			"component", "ledger",
			"operation", op,
			"error", err,
		)
		return err
	}
	ls.publish(f.events)
	return nil
}

// lock takes the ledger mutex. While the holder waits on the token client a
// call can only be a callback from that client made without the context it
// was given, and waiting would never end, so the call fails instead
func (ls *LedgerState) lock() error {
	if !ls.outbound.Load() {
		ls.mu.Lock()
		return nil
	}
	if !ls.mu.TryLock() {
		return ErrCallInProgress
	}
	return nil
}

func (ls *LedgerState) invokeNested(
	ctx context.Context,
	op string,
	parent *frame,
	fn func(ctx context.Context, f *frame) error,
) error {
	f := &frame{
		ls:    ls,
		txn:   parent.txn,
		now:   parent.now,
		depth: parent.depth + 1,
	}
	sp := f.txn.Savepoint()
	err := fn(context.WithValue(ctx, frameKey{}, f), f)
	ls.metrics.operationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	if err != nil {
		if rbErr := f.txn.RollbackTo(sp); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	// Notifications of a nested call go out with the outer call
	parent.events = append(parent.events, f.events...)
	return nil
}

// query runs fn against a read-only snapshot, or against the running call
// when made from inside one
func query[T any](
	ctx context.Context,
	ls *LedgerState,
	fn func(f *frame) (T, error),
) (T, error) {
	if parent := frameFromContext(ctx, ls); parent != nil {
		return fn(parent)
	}
	txn := ls.db.Transaction(false)
	defer txn.Release()
	return fn(&frame{
		ls:  ls,
		txn: txn,
		now: ls.config.Clock.Now(),
	})
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return common.KindOf(err).String()
}

func (ls *LedgerState) publish(events []event.Event) {
	if ls.config.EventBus == nil {
		return
	}
	for _, evt := range events {
		if !ls.config.EventBus.PublishAsync(evt.Type, evt) {
			ls.metrics.eventsDropped.Inc()
		}
	}
}

func (f *frame) emit(evtType event.EventType, data any) {
	f.events = append(f.events, event.NewEvent(evtType, data))
}

// requireAuth checks authorization for addr. Failures always wrap
// common.ErrUnauthorized
func (f *frame) requireAuth(ctx context.Context, addr common.Address) error {
	if addr.IsZero() {
		return fmt.Errorf("%w: %w", common.ErrUnauthorized, common.ErrEmptyAddress)
	}
	err := f.ls.config.Authorizer.RequireAuth(ctx, addr)
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrUnauthorized) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
}

const (
	transferDirectionIn  = "in"
	transferDirectionOut = "out"
)

// transferIn moves amount of asset from an external address into custody
func (f *frame) transferIn(
	ctx context.Context,
	asset, from common.Address,
	amount common.Amount,
) error {
	return f.transfer(ctx, transferDirectionIn, asset, from, f.ls.config.ContractAddress, amount)
}

// transferOut moves amount of asset out of custody
func (f *frame) transferOut(
	ctx context.Context,
	asset, to common.Address,
	amount common.Amount,
) error {
	return f.transfer(ctx, transferDirectionOut, asset, f.ls.config.ContractAddress, to, amount)
}

func (f *frame) transfer(
	ctx context.Context,
	direction string,
	asset, from, to common.Address,
	amount common.Amount,
) error {
	if err := f.callTokenClient(ctx, asset, from, to, amount); err != nil {
		return fmt.Errorf("%w: %w", common.ErrTokenTransferFailed, err)
	}
	f.ls.metrics.recordTransfer(direction, amount)
	return nil
}

func (f *frame) callTokenClient(
	ctx context.Context,
	asset, from, to common.Address,
	amount common.Amount,
) error {
	f.ls.outbound.Store(true)
	defer f.ls.outbound.Store(false)
	return f.ls.config.TokenClient.Transfer(ctx, asset, from, to, amount)
}

// addAmount adds delta to the amount stored at key, mapping overflow to
// common.ErrArithmeticOverflow
func (f *frame) addAmount(key types.Key, delta common.Amount) (common.Amount, error) {
	ret, err := f.txn.AddAmount(key, delta)
	if errors.Is(err, common.ErrAmountOverflow) {
		return ret, fmt.Errorf("%w: %s", common.ErrArithmeticOverflow, key)
	}
	return ret, err
}

// subAmount subtracts delta from the amount stored at key
func (f *frame) subAmount(key types.Key, delta common.Amount) (common.Amount, error) {
	cur, err := f.txn.GetAmount(key)
	if err != nil {
		return common.Amount{}, err
	}
	ret, err := checkedSub(cur, delta)
	if err != nil {
		return common.Amount{}, fmt.Errorf("%w: %s", err, key)
	}
	return ret, f.txn.SetAmount(key, ret)
}

func checkedAdd(a, b common.Amount) (common.Amount, error) {
	ret, err := a.Add(b)
	if err != nil {
		return common.Amount{}, common.ErrArithmeticOverflow
	}
	return ret, nil
}

func checkedSub(a, b common.Amount) (common.Amount, error) {
	ret, err := a.Sub(b)
	if err != nil {
		return common.Amount{}, common.ErrArithmeticOverflow
	}
	return ret, nil
}
