package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"quotedesk/backend/internal/domain"
	"quotedesk/backend/internal/store"
	"quotedesk/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	parties         []domain.Party
	salesmen        []domain.Salesman
	priceLists      []domain.PriceList
	quotationsByID  map[string]domain.Quotation
	usersByUsername map[string]domain.UserAccount
	voucherSeq      int
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_SALES_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	salesPwd := envOr("SEED_SALES_PASSWORD", "sales123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SALES_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_SALES_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"sales", salesPwd, "sales"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("bad seed decimal %q: %v", s, err))
	}
	return d
}

func NewSeeded() *Store {
	products := []domain.Product{
		{ID: "prod-til-6060", SKUCode: "TIL-6060", Name: "Wall Tile Glossy 60x60", Category: "tiles", Company: "Kajaria", MRP: dec("85"), GSTPercent: dec("18"), Prices: map[string]decimal.Decimal{"MRP": dec("85"), "Wholesale": dec("68"), "Projects": dec("74")}},
		{ID: "prod-til-3060", SKUCode: "TIL-3060", Name: "Wall Tile Matt 30x60", Category: "tiles", Company: "Kajaria", MRP: dec("62"), GSTPercent: dec("18"), Prices: map[string]decimal.Decimal{"MRP": dec("62"), "Wholesale": dec("51")}},
		{ID: "prod-gvt-8080", SKUCode: "GVT-8080", Name: "Vitrified Tile 80x80", Category: "tiles", Company: "Somany", MRP: dec("145"), DiscPercent: dec("5"), GSTPercent: dec("18"), Prices: map[string]decimal.Decimal{"MRP": dec("145"), "Wholesale": dec("120")}},
		{ID: "prod-san-wc01", SKUCode: "SAN-WC01", Name: "Wall Hung WC", Category: "sanitaryware", Company: "Hindware", MRP: dec("8450"), GSTPercent: dec("18"), Prices: map[string]decimal.Decimal{"MRP": dec("8450")}},
		{ID: "prod-san-bs02", SKUCode: "SAN-BS02", Name: "Counter Basin Round", Category: "sanitaryware", Company: "Hindware", MRP: dec("3200"), DiscPercent: dec("10"), GSTPercent: dec("18"), Prices: map[string]decimal.Decimal{"MRP": dec("3200"), "Wholesale": dec("2650")}},
		{ID: "prod-fit-mx01", SKUCode: "FIT-MX01", Name: "Single Lever Basin Mixer", Category: "cp-fittings", Company: "Jaquar", MRP: dec("4150"), GSTPercent: dec("18"), Prices: map[string]decimal.Decimal{"MRP": dec("4150")}},
		{ID: "prod-fit-sh03", SKUCode: "FIT-SH03", Name: "Overhead Shower 8in", Category: "cp-fittings", Company: "Jaquar", MRP: dec("2890"), GSTPercent: dec("18"), Prices: map[string]decimal.Decimal{"MRP": dec("2890"), "Wholesale": dec("2390")}},
		{ID: "prod-adh-20kg", SKUCode: "ADH-20KG", Name: "Tile Adhesive 20kg", Category: "adhesives", Company: "Roff", MRP: dec("540"), GSTPercent: dec("28"), Prices: map[string]decimal.Decimal{"MRP": dec("540"), "Wholesale": dec("465")}},
		{ID: "prod-grt-1kg", SKUCode: "GRT-1KG", Name: "Epoxy Grout 1kg", Category: "adhesives", Company: "Roff", MRP: dec("385"), GSTPercent: dec("28"), Prices: map[string]decimal.Decimal{"MRP": dec("385")}},
		{ID: "prod-til-skrt", SKUCode: "TIL-SKRT", Name: "Skirting Tile 10x60", Category: "tiles", Company: "Somany", MRP: dec("38"), GSTPercent: dec("18"), Prices: map[string]decimal.Decimal{"MRP": dec("38"), "Wholesale": dec("31")}},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	return &Store{
		products: productMap,
		parties: []domain.Party{
			{ID: "party-01", Name: "Sharma Traders", City: "Jaipur", Phone: "9829012345", GSTIN: "08AABCS1234A1Z5"},
			{ID: "party-02", Name: "Mehta Constructions", City: "Udaipur", Phone: "9414098765", GSTIN: "08AADCM9876B1Z2"},
			{ID: "party-03", Name: "Agarwal Interiors", City: "Jaipur", Phone: "9001234567"},
		},
		salesmen: []domain.Salesman{
			{ID: "sm-01", Name: "Ravi Kumar"},
			{ID: "sm-02", Name: "Deepak Jain"},
		},
		priceLists: []domain.PriceList{
			{ID: "pl-01", Name: "MRP"},
			{ID: "pl-02", Name: "Wholesale"},
			{ID: "pl-03", Name: "Projects"},
		},
		quotationsByID:  make(map[string]domain.Quotation),
		usersByUsername: seedUsers(),
	}
}

// SearchProducts matches the query against SKU code, name, category and
// company, case-insensitively. An exact SKU match sorts first so SKU entry
// resolves deterministically.
func (s *Store) SearchProducts(_ context.Context, query string, limit int) ([]domain.Product, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.Product, 0, limit)
	for _, p := range s.products {
		haystack := strings.ToLower(p.SKUCode + " " + p.Name + " " + p.Category + " " + p.Company)
		if strings.Contains(haystack, query) {
			matches = append(matches, p)
		}
	}
	slices.SortFunc(matches, func(a, b domain.Product) int {
		aExact := strings.EqualFold(a.SKUCode, query)
		bExact := strings.EqualFold(b.SKUCode, query)
		if aExact != bExact {
			if aExact {
				return -1
			}
			return 1
		}
		return strings.Compare(a.SKUCode, b.SKUCode)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if strings.EqualFold(p.SKUCode, strings.TrimSpace(sku)) {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListParties(_ context.Context) ([]domain.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.parties), nil
}

func (s *Store) ListSalesmen(_ context.Context) ([]domain.Salesman, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.salesmen), nil
}

func (s *Store) ListPriceLists(_ context.Context) ([]domain.PriceList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.priceLists), nil
}

func (s *Store) SaveQuotation(_ context.Context, quotation domain.Quotation) (*domain.Quotation, error) {
	if strings.TrimSpace(quotation.Party) == "" || len(quotation.Items) == 0 {
		return nil, store.ErrInvalidQuotation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if quotation.ID == "" {
		quotation.ID = xid.New("qtn")
		s.voucherSeq++
		quotation.VoucherNo = fmt.Sprintf("QT-%s-%04d", now.Format("0601"), s.voucherSeq)
		quotation.CreatedAt = now
	} else {
		existing, ok := s.quotationsByID[quotation.ID]
		if !ok {
			return nil, store.ErrNotFound
		}
		quotation.VoucherNo = existing.VoucherNo
		quotation.CreatedAt = existing.CreatedAt
	}
	quotation.UpdatedAt = now

	s.quotationsByID[quotation.ID] = quotation
	saved := quotation
	return &saved, nil
}

func (s *Store) GetQuotation(_ context.Context, id string) (*domain.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotationsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &q, nil
}

func (s *Store) ListQuotations(_ context.Context, filter domain.QuotationFilter) ([]domain.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	result := make([]domain.Quotation, 0, limit)
	for _, q := range s.quotationsByID {
		if filter.Party != "" && !strings.EqualFold(q.Party, filter.Party) {
			continue
		}
		if filter.Salesman != "" && !strings.EqualFold(q.Salesman, filter.Salesman) {
			continue
		}
		if !filter.From.IsZero() && q.VoucherDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && q.VoucherDate.After(filter.To) {
			continue
		}
		result = append(result, q)
	}
	slices.SortFunc(result, func(a, b domain.Quotation) int {
		if a.UpdatedAt.Equal(b.UpdatedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.UpdatedAt.After(b.UpdatedAt) {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) DeleteQuotation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quotationsByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.quotationsByID, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("username already exists")
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
