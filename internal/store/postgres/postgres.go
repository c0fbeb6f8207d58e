package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"quotedesk/backend/internal/domain"
	"quotedesk/backend/internal/store"
	"quotedesk/backend/internal/xid"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// New opens the database, verifies connectivity, and brings the schema up to
// date with the embedded migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, sku_code, name, description, category, company, image_url, mrp, disc_percent, gst_percent, prices`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	var prices []byte
	err := row.Scan(&p.ID, &p.SKUCode, &p.Name, &p.Description, &p.Category, &p.Company,
		&p.ImageURL, &p.MRP, &p.DiscPercent, &p.GSTPercent, &prices)
	if err != nil {
		return domain.Product{}, err
	}
	if len(prices) > 0 {
		if err := json.Unmarshal(prices, &p.Prices); err != nil {
			return domain.Product{}, fmt.Errorf("decode prices for %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE lower(sku_code) LIKE $1
		   OR lower(name) LIKE $1
		   OR lower(category) LIKE $1
		   OR lower(company) LIKE $1
		ORDER BY (lower(sku_code) = lower($2)) DESC, sku_code
		LIMIT $3
	`, pattern, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE lower(sku_code) = lower($1)`, strings.TrimSpace(sku))
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListParties(ctx context.Context) ([]domain.Party, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, city, phone, gstin FROM parties ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parties := make([]domain.Party, 0, 64)
	for rows.Next() {
		var p domain.Party
		if err := rows.Scan(&p.ID, &p.Name, &p.City, &p.Phone, &p.GSTIN); err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

func (s *Store) ListSalesmen(ctx context.Context) ([]domain.Salesman, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM salesmen ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	salesmen := make([]domain.Salesman, 0, 16)
	for rows.Next() {
		var sm domain.Salesman
		if err := rows.Scan(&sm.ID, &sm.Name); err != nil {
			return nil, err
		}
		salesmen = append(salesmen, sm)
	}
	return salesmen, rows.Err()
}

func (s *Store) ListPriceLists(ctx context.Context) ([]domain.PriceList, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM price_lists ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := make([]domain.PriceList, 0, 8)
	for rows.Next() {
		var pl domain.PriceList
		if err := rows.Scan(&pl.ID, &pl.Name); err != nil {
			return nil, err
		}
		lists = append(lists, pl)
	}
	return lists, rows.Err()
}

func (s *Store) SaveQuotation(ctx context.Context, quotation domain.Quotation) (*domain.Quotation, error) {
	if strings.TrimSpace(quotation.Party) == "" || len(quotation.Items) == 0 {
		return nil, store.ErrInvalidQuotation
	}

	items, err := json.Marshal(quotation.Items)
	if err != nil {
		return nil, err
	}
	totals, err := json.Marshal(quotation.Totals)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if quotation.ID == "" {
		quotation.ID = xid.New("qtn")
		quotation.CreatedAt = now
		quotation.UpdatedAt = now
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO quotations (id, voucher_no, voucher_date, party, reference_by, salesman, remark, email, price_list, items, totals, created_at, updated_at)
			VALUES ($1, 'QT-' || to_char(now(), 'YYMM') || '-' || lpad(nextval('quotation_voucher_seq')::text, 4, '0'),
			        $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
			RETURNING voucher_no
		`, quotation.ID, quotation.VoucherDate, quotation.Party, quotation.ReferenceBy, quotation.Salesman,
			quotation.Remark, quotation.Email, quotation.PriceList, items, totals, now).Scan(&quotation.VoucherNo)
		if err != nil {
			return nil, err
		}
		return &quotation, nil
	}

	quotation.UpdatedAt = now
	err = s.db.QueryRowContext(ctx, `
		UPDATE quotations
		SET voucher_date = $2, party = $3, reference_by = $4, salesman = $5, remark = $6,
		    email = $7, price_list = $8, items = $9, totals = $10, updated_at = $11
		WHERE id = $1
		RETURNING voucher_no, created_at
	`, quotation.ID, quotation.VoucherDate, quotation.Party, quotation.ReferenceBy, quotation.Salesman,
		quotation.Remark, quotation.Email, quotation.PriceList, items, totals, now).
		Scan(&quotation.VoucherNo, &quotation.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &quotation, nil
}

func (s *Store) GetQuotation(ctx context.Context, id string) (*domain.Quotation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, voucher_no, voucher_date, party, reference_by, salesman, remark, email, price_list, items, totals, created_at, updated_at
		FROM quotations
		WHERE id = $1
	`, id)

	q, err := scanQuotation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

func scanQuotation(row interface{ Scan(...any) error }) (*domain.Quotation, error) {
	var q domain.Quotation
	var items, totals []byte
	err := row.Scan(&q.ID, &q.VoucherNo, &q.VoucherDate, &q.Party, &q.ReferenceBy, &q.Salesman,
		&q.Remark, &q.Email, &q.PriceList, &items, &totals, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &q.Items); err != nil {
		return nil, fmt.Errorf("decode items for %s: %w", q.ID, err)
	}
	if err := json.Unmarshal(totals, &q.Totals); err != nil {
		return nil, fmt.Errorf("decode totals for %s: %w", q.ID, err)
	}
	return &q, nil
}

func (s *Store) ListQuotations(ctx context.Context, filter domain.QuotationFilter) ([]domain.Quotation, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	conditions := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Party != "" {
		conditions = append(conditions, "lower(party) = lower("+arg(filter.Party)+")")
	}
	if filter.Salesman != "" {
		conditions = append(conditions, "lower(salesman) = lower("+arg(filter.Salesman)+")")
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "voucher_date >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "voucher_date <= "+arg(filter.To))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, voucher_no, voucher_date, party, reference_by, salesman, remark, email, price_list, items, totals, created_at, updated_at
		FROM quotations
		WHERE `+strings.Join(conditions, " AND ")+`
		ORDER BY updated_at DESC
		LIMIT `+arg(limit), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotations := make([]domain.Quotation, 0, limit)
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		quotations = append(quotations, *q)
	}
	return quotations, rows.Err()
}

func (s *Store) DeleteQuotation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, strings.ToLower(strings.TrimSpace(user.Username)), user.Password, user.Role, user.Active, user.CreatedAt)
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username, password, role, active, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE username = $1`,
		strings.ToLower(strings.TrimSpace(username)), password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
