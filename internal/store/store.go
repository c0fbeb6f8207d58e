package store

import (
	"context"
	"errors"

	"quotedesk/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidQuotation = errors.New("invalid quotation")
)

type Repository interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	ListParties(ctx context.Context) ([]domain.Party, error)
	ListSalesmen(ctx context.Context) ([]domain.Salesman, error)
	ListPriceLists(ctx context.Context) ([]domain.PriceList, error)
	SaveQuotation(ctx context.Context, quotation domain.Quotation) (*domain.Quotation, error)
	GetQuotation(ctx context.Context, id string) (*domain.Quotation, error)
	ListQuotations(ctx context.Context, filter domain.QuotationFilter) ([]domain.Quotation, error)
	DeleteQuotation(ctx context.Context, id string) error
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
