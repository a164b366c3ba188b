// 文件: pkg/catalog/provider.go
// 用户名册 / 产品目录 (只读)

package catalog

import (
	"context"
	"errors"
	"fmt"

	"sim.com/pkg/account"
	"sim.com/pkg/product"
	"sim.com/pkg/store"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
)

// Provider 名册与目录的只读来源
type Provider interface {
	Users(ctx context.Context) ([]*account.User, error)
	Products(ctx context.Context) ([]*product.Product, error)
	User(ctx context.Context, id int64) (*account.User, error)
	Product(ctx context.Context, id int64) (*product.Product, error)
}

// 确保实现了接口
var _ Provider = (*StoreProvider)(nil)

// StoreProvider 直接读持久化层
type StoreProvider struct {
	store store.Store
}

func NewStoreProvider(s store.Store) *StoreProvider {
	return &StoreProvider{store: s}
}

func (p *StoreProvider) Users(ctx context.Context) ([]*account.User, error) {
	var users []*account.User
	if err := p.store.SelectAll(ctx, account.User{}.TableName(), &users, nil); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

func (p *StoreProvider) Products(ctx context.Context) ([]*product.Product, error) {
	var products []*product.Product
	if err := p.store.SelectAll(ctx, product.Product{}.TableName(), &products, nil); err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return products, nil
}

func (p *StoreProvider) User(ctx context.Context, id int64) (*account.User, error) {
	var users []*account.User
	if err := p.store.SelectAll(ctx, account.User{}.TableName(), &users, store.Filters{"id": id}); err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	return users[0], nil
}

func (p *StoreProvider) Product(ctx context.Context, id int64) (*product.Product, error) {
	var products []*product.Product
	if err := p.store.SelectAll(ctx, product.Product{}.TableName(), &products, store.Filters{"id": id}); err != nil {
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return products[0], nil
}
