package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quotedesk/backend/internal/calc"
	"quotedesk/backend/internal/domain"
	"quotedesk/backend/internal/grid"
	"quotedesk/backend/internal/lookup"
	"quotedesk/backend/internal/metrics"
	"quotedesk/backend/internal/quote"
	"quotedesk/backend/internal/store"
	"quotedesk/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Save precondition violations. Both are caught locally, before the
// repository is ever called.
var (
	ErrMissingParty   = fmt.Errorf("%w: party is required", store.ErrInvalidQuotation)
	ErrNoLineItems    = fmt.Errorf("%w: at least one line item is required", store.ErrInvalidQuotation)
	ErrSessionUnknown = errors.New("editor session not found")
)

// Service wraps the quotation core with persistence, directories, product
// search, and server-held editor sessions.
type Service struct {
	repo     store.Repository
	resolver lookup.Resolver
	debounce time.Duration
	log      zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*EditorSession
}

func New(repo store.Repository, resolver lookup.Resolver, debounce time.Duration, log zerolog.Logger) *Service {
	if debounce < 0 {
		debounce = lookup.DefaultDebounce
	}
	return &Service{
		repo:     repo,
		resolver: resolver,
		debounce: debounce,
		log:      log,
		sessions: make(map[string]*EditorSession),
	}
}

// --- directories & search ---

func (s *Service) ListParties(ctx context.Context) ([]domain.Party, error) {
	return s.repo.ListParties(ctx)
}

func (s *Service) ListSalesmen(ctx context.Context) ([]domain.Salesman, error) {
	return s.repo.ListSalesmen(ctx)
}

func (s *Service) ListPriceLists(ctx context.Context) ([]domain.PriceList, error) {
	return s.repo.ListPriceLists(ctx)
}

func (s *Service) SearchProducts(ctx context.Context, query string, priceList string) (domain.ProductSearchResponse, error) {
	start := time.Now()
	products, err := s.resolver.Search(ctx, query, priceList)
	if err != nil {
		return domain.ProductSearchResponse{}, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return domain.ProductSearchResponse{
		Products:  products,
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}

// --- quotations ---

// SaveQuotation validates preconditions locally and re-derives every amount
// before persisting, so stored snapshots can never disagree with their
// inputs.
func (s *Service) SaveQuotation(ctx context.Context, quotation domain.Quotation) (domain.SaveQuotationResponse, error) {
	if strings.TrimSpace(quotation.Party) == "" {
		metrics.SaveRejections.Inc()
		return domain.SaveQuotationResponse{}, ErrMissingParty
	}
	if len(quotation.Items) == 0 {
		metrics.SaveRejections.Inc()
		return domain.SaveQuotationResponse{}, ErrNoLineItems
	}
	if quotation.VoucherDate.IsZero() {
		quotation.VoucherDate = time.Now().UTC()
	}
	if quotation.PriceList == "" {
		quotation.PriceList = domain.PriceListMRP
	}
	for i := range quotation.Items {
		quotation.Items[i] = calc.ComputeLineItem(quotation.Items[i])
	}
	quotation.Totals = calc.ComputeTotals(quotation.Items)

	saved, err := s.repo.SaveQuotation(ctx, quotation)
	if err != nil {
		return domain.SaveQuotationResponse{}, err
	}

	metrics.QuotationsSaved.Inc()
	actor, _ := ActorFromContext(ctx)
	s.log.Info().
		Str("quotation_id", saved.ID).
		Str("voucher_no", saved.VoucherNo).
		Str("party", saved.Party).
		Str("actor", actor.Username).
		Int("items", len(saved.Items)).
		Msg("quotation saved")

	return domain.SaveQuotationResponse{
		ID:        saved.ID,
		VoucherNo: saved.VoucherNo,
		UpdatedAt: saved.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) GetQuotation(ctx context.Context, id string) (domain.Quotation, error) {
	q, err := s.repo.GetQuotation(ctx, id)
	if err != nil {
		return domain.Quotation{}, err
	}
	return *q, nil
}

func (s *Service) ListQuotations(ctx context.Context, filter domain.QuotationFilter) ([]domain.Quotation, error) {
	return s.repo.ListQuotations(ctx, filter)
}

func (s *Service) DeleteQuotation(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	if err := s.repo.DeleteQuotation(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("quotation_id", id).Str("actor", actor.Username).Msg("quotation deleted")
	return nil
}

// --- editor sessions ---

// EditorSession is one server-held grid editor. All key events and commands
// for a session serialize on its mutex: one logical writer per quotation.
// Asynchronous lookup results land in pending and are drained with the next
// response.
type EditorSession struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	controller *grid.Controller

	eventsMu sync.Mutex
	pending  []grid.Event
}

func (es *EditorSession) enqueue(event grid.Event) {
	es.eventsMu.Lock()
	es.pending = append(es.pending, event)
	es.eventsMu.Unlock()
}

func (es *EditorSession) drain() []grid.Event {
	es.eventsMu.Lock()
	defer es.eventsMu.Unlock()
	pending := es.pending
	es.pending = nil
	return pending
}

// OpenEditorSession starts a new editor session, blank or loaded from a
// saved quotation.
func (s *Service) OpenEditorSession(ctx context.Context, req domain.OpenSessionRequest) (domain.OpenSessionResponse, error) {
	session := &EditorSession{
		ID:        xid.New("ses"),
		CreatedAt: time.Now().UTC(),
	}

	editor := quote.NewEditor(s.resolver)
	sessions := lookup.NewSessionManager(s.resolver, s.debounce, s.log)
	session.controller = grid.NewController(editor, sessions, session.enqueue)

	if req.QuotationID != "" {
		saved, err := s.repo.GetQuotation(ctx, req.QuotationID)
		if err != nil {
			return domain.OpenSessionResponse{}, err
		}
		editor.Load(*saved)
	}
	if req.PriceList != "" {
		editor.SetPriceList(req.PriceList)
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.log.Debug().Str("session_id", session.ID).Str("quotation_id", req.QuotationID).Msg("editor session opened")
	return domain.OpenSessionResponse{
		SessionID: session.ID,
		Quotation: editor.Snapshot(),
	}, nil
}

func (s *Service) session(id string) (*EditorSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionUnknown
	}
	return session, nil
}

// SessionKey feeds one keyboard event to the session's grid controller and
// returns the resulting events, including any lookup results that arrived
// since the last call.
func (s *Service) SessionKey(ctx context.Context, id string, key grid.Key) ([]grid.Event, grid.State, error) {
	session, err := s.session(id)
	if err != nil {
		return nil, grid.State{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	events := session.controller.HandleKey(ctx, key)
	events = append(events, session.drain()...)
	return events, session.controller.State(), nil
}

// SessionCommand executes one editor command. Commands that bypass the
// keyboard (bulk discount, price list switch, copy/paste, header edits) go
// through the same per-session lock as key events.
func (s *Service) SessionCommand(ctx context.Context, id string, cmd domain.EditorCommandRequest) ([]grid.Event, error) {
	session, err := s.session(id)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	controller := session.controller
	editor := controller.Editor()
	var events []grid.Event

	switch cmd.Command {
	case "focus_first_cell":
		events = controller.FocusFirstCell()
	case "focus_cell":
		events = controller.FocusCell(cmd.RowID, grid.Column(cmd.Column))
	case "commit_edit":
		events = controller.CommitEdit()
	case "add_row":
		events = controller.AddRow()
	case "select_row":
		events = controller.SelectRow(cmd.RowID)
	case "delete_row":
		events = controller.DeleteRow(cmd.RowID)
	case "set_field":
		editor.UpdateField(cmd.RowID, cmd.Field, cmd.Value)
	case "set_product":
		product, err := s.repo.GetProductByID(ctx, cmd.ProductID)
		if err != nil {
			return nil, err
		}
		events = controller.ApplyLookupSelection(cmd.RowID, *product)
	case "lookup_query":
		controller.LookupQuery(cmd.Value)
	case "close_lookup":
		controller.CloseLookup()
	case "apply_discount":
		editor.ApplyOverallDiscount(calc.CoerceAmount(cmd.Percent))
	case "set_price_list":
		editor.SetPriceList(cmd.PriceList)
	case "copy":
		editor.Copy(cmd.RowIDs)
	case "paste":
		for _, rowID := range editor.Paste() {
			events = append(events, grid.Event{Type: grid.EventRowAppended, RowID: rowID})
		}
	case "set_party":
		editor.SetParty(cmd.Party)
	case "set_salesman":
		editor.SetSalesman(cmd.Salesman)
	case "set_reference_by":
		editor.SetReferenceBy(cmd.Value)
	case "set_remark":
		editor.SetRemark(cmd.Remark)
	case "set_email":
		editor.SetEmail(cmd.Email)
	default:
		return nil, fmt.Errorf("unknown editor command %q", cmd.Command)
	}

	events = append(events, session.drain()...)
	return events, nil
}

// SessionSnapshot returns the working quotation, the grid state, and any
// pending asynchronous events.
func (s *Service) SessionSnapshot(id string) (domain.Quotation, grid.State, []grid.Event, error) {
	session, err := s.session(id)
	if err != nil {
		return domain.Quotation{}, grid.State{}, nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	return session.controller.Editor().Snapshot(), session.controller.State(), session.drain(), nil
}

// SaveSession persists the session's quotation. On success the editor adopts
// the stored identity, so a later save updates instead of inserting.
func (s *Service) SaveSession(ctx context.Context, id string) (domain.SaveQuotationResponse, error) {
	session, err := s.session(id)
	if err != nil {
		return domain.SaveQuotationResponse{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	editor := session.controller.Editor()
	resp, err := s.SaveQuotation(ctx, editor.Snapshot())
	if err != nil {
		return domain.SaveQuotationResponse{}, err
	}

	saved, err := s.repo.GetQuotation(ctx, resp.ID)
	if err == nil {
		editor.Load(*saved)
	}
	return resp, nil
}

// CloseEditorSession drops the session and cancels any pending lookup.
func (s *Service) CloseEditorSession(id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionUnknown
	}

	session.mu.Lock()
	session.controller.CloseLookup()
	session.mu.Unlock()
	s.log.Debug().Str("session_id", id).Msg("editor session closed")
	return nil
}
