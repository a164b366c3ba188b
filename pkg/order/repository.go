// 文件: pkg/order/repository.go
// 订单仓储 - 建在持久化边界之上

package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"sim.com/pkg/store"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotCancelable  = errors.New("order cannot be cancelled")
	ErrNotSettleable  = errors.New("order cannot be settled")
	ErrNotDue         = errors.New("order not due yet")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

type Repository interface {
	// 创建
	Create(ctx context.Context, o *Order) error

	// 查询
	Get(ctx context.Context, id int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	TodaysByUser(ctx context.Context, userID int64, now time.Time) ([]*Order, error)
	Due(ctx context.Context, now time.Time) ([]*Order, error)

	// 状态迁移: 当前状态不是 from 时返回 ErrStatusConflict
	Transition(ctx context.Context, id int64, from, to Status) error
	Settle(ctx context.Context, id int64, from Status, result decimal.Decimal, at time.Time, to Status) error
	Reopen(ctx context.Context, id int64, from, to Status) error
}

// 确保实现了接口
var _ Repository = (*StoreRepository)(nil)

type StoreRepository struct {
	s store.Store
}

func NewStoreRepository(s store.Store) *StoreRepository {
	return &StoreRepository{s: s}
}

func (r *StoreRepository) Create(ctx context.Context, o *Order) error {
	return r.s.Insert(ctx, o)
}

func (r *StoreRepository) Get(ctx context.Context, id int64) (*Order, error) {
	var orders []*Order
	if err := r.s.SelectAll(ctx, Order{}.TableName(), &orders, store.Filters{"id": id}); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	return orders[0], nil
}

// ListByUser 按开仓时间倒序
func (r *StoreRepository) ListByUser(ctx context.Context, userID int64) ([]*Order, error) {
	var orders []*Order
	if err := r.s.SelectAll(ctx, Order{}.TableName(), &orders, store.Filters{"user_id": userID}); err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].OpenedAt.After(orders[j].OpenedAt)
	})
	return orders, nil
}

// TodaysByUser now 所在自然日内开仓的订单 (含终态订单，由闸门自己排除)
func (r *StoreRepository) TodaysByUser(ctx context.Context, userID int64, now time.Time) ([]*Order, error) {
	all, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	y, m, d := now.Date()
	out := all[:0]
	for _, o := range all {
		oy, om, od := o.OpenedAt.In(now.Location()).Date()
		if oy == y && om == m && od == d {
			out = append(out, o)
		}
	}
	return out, nil
}

// Due 到了结算时间仍未结算的订单，按结算时间先后
func (r *StoreRepository) Due(ctx context.Context, now time.Time) ([]*Order, error) {
	var orders []*Order
	filters := store.Filters{"status": []string{string(StatusHolding), string(StatusOpen)}}
	if err := r.s.SelectAll(ctx, Order{}.TableName(), &orders, filters); err != nil {
		return nil, err
	}
	out := orders[:0]
	for _, o := range orders {
		if o.SettleAt != nil && !o.SettleAt.After(now) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SettleAt.Before(*out[j].SettleAt)
	})
	return out, nil
}

func (r *StoreRepository) Transition(ctx context.Context, id int64, from, to Status) error {
	return r.updateFrom(ctx, id, from, store.Patch{"status": to})
}

// Settle 写入结算结果并转入终态
func (r *StoreRepository) Settle(ctx context.Context, id int64, from Status, result decimal.Decimal, at time.Time, to Status) error {
	return r.updateFrom(ctx, id, from, store.Patch{
		"result_amount": decimal.NewNullDecimal(result),
		"closed_at":     at,
		"status":        to,
	})
}

// Reopen 撤回一次结算: 清空结果，状态回到 to
func (r *StoreRepository) Reopen(ctx context.Context, id int64, from, to Status) error {
	return r.updateFrom(ctx, id, from, store.Patch{
		"result_amount": decimal.NullDecimal{},
		"closed_at":     nil,
		"status":        to,
	})
}

// updateFrom 仅当当前状态为 from 时更新; 没命中再查一次区分不存在和状态已变
func (r *StoreRepository) updateFrom(ctx context.Context, id int64, from Status, patch store.Patch) error {
	err := r.s.UpdateIf(ctx, Order{}.TableName(), id, store.Filters{"status": string(from)}, patch)
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	o, gerr := r.Get(ctx, id)
	if gerr != nil {
		return gerr
	}
	return fmt.Errorf("%w: order %d is %s, expected %s", ErrStatusConflict, id, o.Status, from)
}
