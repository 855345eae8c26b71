package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
)

// memoryDB is shared by the in-memory repositories so a settlement can touch
// payments, tickets and events under one lock
type memoryDB struct {
	mu sync.RWMutex

	payments    map[string]*domain.Payment // reference -> payment
	tickets     map[string]*domain.Ticket  // id -> ticket
	byReference map[string][]string        // reference -> ticket ids
	events      map[string]*domain.Event
	users       map[string]*domain.User
	byEmail     map[string]string // lower(email) -> user id
}

// NewMemoryRepositories creates in-memory repositories sharing one store.
// This is useful for testing and development.
func NewMemoryRepositories() *Repositories {
	db := &memoryDB{
		payments:    make(map[string]*domain.Payment),
		tickets:     make(map[string]*domain.Ticket),
		byReference: make(map[string][]string),
		events:      make(map[string]*domain.Event),
		users:       make(map[string]*domain.User),
		byEmail:     make(map[string]string),
	}
	return &Repositories{
		Payments:    &MemoryPaymentRepository{db: db},
		Tickets:     &MemoryTicketRepository{db: db},
		Events:      &MemoryEventRepository{db: db},
		Users:       &MemoryUserRepository{db: db},
		Settlements: &MemorySettlementRepository{db: db},
	}
}

func clonePayment(p *domain.Payment) *domain.Payment {
	c := *p
	c.TicketIDs = append([]string(nil), p.TicketIDs...)
	if p.VerifiedAt != nil {
		t := *p.VerifiedAt
		c.VerifiedAt = &t
	}
	return &c
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	return &c
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	return &c
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

// details must be called with db.mu held
func (db *memoryDB) details(reference string) (*domain.PaymentDetails, error) {
	p, ok := db.payments[reference]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}

	d := &domain.PaymentDetails{Payment: clonePayment(p)}
	for _, id := range db.byReference[reference] {
		d.Tickets = append(d.Tickets, cloneTicket(db.tickets[id]))
	}
	if e, ok := db.events[p.EventID]; ok {
		d.Event = cloneEvent(e)
	}
	if u, ok := db.users[p.UserID]; ok {
		d.User = cloneUser(u)
	}
	return d, nil
}

// MemoryPaymentRepository implements PaymentRepository in memory
type MemoryPaymentRepository struct {
	db *memoryDB
}

// Create stores a pending payment together with its tickets
func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *domain.Payment, tickets []*domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.payments[payment.Reference]; exists {
		return domain.ErrPaymentAlreadyExists
	}

	p := clonePayment(payment)
	p.TicketIDs = p.TicketIDs[:0]
	for _, t := range tickets {
		r.db.tickets[t.ID] = cloneTicket(t)
		r.db.byReference[payment.Reference] = append(r.db.byReference[payment.Reference], t.ID)
		p.TicketIDs = append(p.TicketIDs, t.ID)
	}
	r.db.payments[payment.Reference] = p
	payment.TicketIDs = append([]string(nil), p.TicketIDs...)
	return nil
}

// GetByReference retrieves a payment by reference
func (r *MemoryPaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.payments[reference]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

// GetDetailsByReference hydrates a payment with its relations
func (r *MemoryPaymentRepository) GetDetailsByReference(ctx context.Context, reference string) (*domain.PaymentDetails, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.details(reference)
}

// SetCheckoutURL records the checkout link
func (r *MemoryPaymentRepository) SetCheckoutURL(ctx context.Context, reference, url string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.payments[reference]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.CheckoutURL = url
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns payments matching filter, newest first
func (r *MemoryPaymentRepository) List(ctx context.Context, filter domain.PaymentFilter, limit, offset int) ([]*domain.Payment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var result []*domain.Payment
	for _, p := range r.db.payments {
		if filter.EventID != "" && p.EventID != filter.EventID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Gateway != "" && p.Gateway != filter.Gateway {
			continue
		}
		result = append(result, clonePayment(p))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, limit, offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// MemoryTicketRepository implements TicketRepository in memory
type MemoryTicketRepository struct {
	db *memoryDB
}

// GetByID retrieves a ticket by ID
func (r *MemoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return cloneTicket(t), nil
}

// ListByUser returns tickets held by userID, newest first
func (r *MemoryTicketRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var result []*domain.Ticket
	for _, t := range r.db.tickets {
		if t.UserID == userID {
			result = append(result, cloneTicket(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, limit, offset), nil
}

// Transfer moves a ticket between holders if it is still transferable
func (r *MemoryTicketRepository) Transfer(ctx context.Context, ticketID, fromUserID, toUserID string, at time.Time) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.tickets[ticketID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	if t.UserID != fromUserID || t.Status != domain.TicketStatusSuccess || t.Scanned {
		return nil, domain.ErrInvalidTicketState
	}

	t.UserID = toUserID
	t.TransferredFrom = fromUserID
	ts := at.UTC()
	t.TransferredAt = &ts
	t.UpdatedAt = ts
	return cloneTicket(t), nil
}

// MarkScanned admits a ticket once
func (r *MemoryTicketRepository) MarkScanned(ctx context.Context, ticketID string, at time.Time) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.tickets[ticketID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	if t.Scanned {
		return nil, domain.ErrTicketAlreadyUsed
	}
	if t.Status != domain.TicketStatusSuccess {
		return nil, domain.ErrInvalidTicketState
	}

	t.Scanned = true
	ts := at.UTC()
	t.ScannedAt = &ts
	t.UpdatedAt = ts
	return cloneTicket(t), nil
}

// MemoryEventRepository implements EventRepository in memory
type MemoryEventRepository struct {
	db *memoryDB
}

// Create creates a new event
func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.events[event.ID]; exists {
		return domain.ErrInvalidEvent
	}
	r.db.events[event.ID] = cloneEvent(event)
	return nil
}

// GetByID retrieves an event by ID
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	e, ok := r.db.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return cloneEvent(e), nil
}

// MemoryUserRepository implements UserRepository in memory
type MemoryUserRepository struct {
	db *memoryDB
}

// Create creates a new user
func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := r.db.byEmail[email]; exists {
		return domain.ErrUserAlreadyExists
	}
	r.db.users[user.ID] = cloneUser(user)
	r.db.byEmail[email] = user.ID
	return nil
}

// GetByID retrieves a user by ID
func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetByEmail retrieves a user by email
func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(r.db.users[id]), nil
}

// MemorySettlementRepository implements SettlementRepository in memory
type MemorySettlementRepository struct {
	db *memoryDB
}

// Settle applies one terminal outcome under the store lock
func (r *MemorySettlementRepository) Settle(ctx context.Context, s domain.Settlement) (*domain.PaymentDetails, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.payments[s.Reference]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	if p.Status.IsFinal() {
		d, _ := r.db.details(s.Reference)
		return d, domain.ErrPaymentAlreadyFinal
	}

	if s.IsSale() {
		e, ok := r.db.events[p.EventID]
		if !ok {
			return nil, domain.ErrEventNotFound
		}
		class := e.Class(s.TicketType)
		if !class.CanFit(s.TicketCount) {
			return nil, domain.ErrCapacityExceeded
		}
		class.Sold += s.TicketCount
		e.RecomputeSoldOut()
		e.UpdatedAt = time.Now().UTC()
	}

	now := time.Now().UTC()
	p.Status = s.Outcome.PaymentStatus()
	if s.GatewayPaymentIntentID != "" {
		p.GatewayPaymentIntentID = s.GatewayPaymentIntentID
	}
	if s.GatewayTransactionID != "" {
		p.GatewayTransactionID = s.GatewayTransactionID
	}
	p.FailureReason = s.FailureReason
	p.VerifiedAt = &now
	p.UpdatedAt = now

	status := domain.TicketStatusFor(p.Status)
	for _, id := range r.db.byReference[s.Reference] {
		t := r.db.tickets[id]
		t.Status = status
		t.UpdatedAt = now
	}

	return r.db.details(s.Reference)
}
