package storefront_test

import (
	"context"
	"sync"
	"time"

	storefront "github.com/PlainAnoyn/go-storefront"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// fakeUsers is a configurable in-memory credential store.
type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*storefront.User

	getSecretErr      error
	updatePasswordErr error
	updatedPasswords  map[uuid.UUID]string
	storedTokens      map[uuid.UUID]string
}

func newFakeUsers(seed ...*storefront.User) *fakeUsers {
	f := &fakeUsers{
		users:            map[uuid.UUID]*storefront.User{},
		updatedPasswords: map[uuid.UUID]string{},
		storedTokens:     map[uuid.UUID]string{},
	}
	for _, u := range seed {
		f.users[u.ID] = u
	}
	return f
}

func notFound(id string) error {
	return repository.NewRecordNotFound().WithMetadata(map[string]any{"id": id})
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*storefront.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, notFound(id.String())
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*storefront.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == storefront.NormalizeEmail(email) {
			return u, nil
		}
	}
	return nil, notFound(email)
}

func (f *fakeUsers) GetByIdentifier(ctx context.Context, identifier string) (*storefront.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == storefront.NormalizeEmail(identifier) || u.Username == identifier || u.ID.String() == identifier {
			return u, nil
		}
	}
	return nil, notFound(identifier)
}

func (f *fakeUsers) Register(ctx context.Context, user *storefront.User) (*storefront.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUsers) GetSecret(ctx context.Context, id uuid.UUID) (string, error) {
	if f.getSecretErr != nil {
		return "", f.getSecretErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u.PasswordHash, nil
	}
	return "", notFound(id.String())
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	if f.updatePasswordErr != nil {
		return f.updatePasswordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return notFound(id.String())
	}
	u.PasswordHash = passwordHash
	f.updatedPasswords[id] = passwordHash
	return nil
}

func (f *fakeUsers) StoreVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) (*storefront.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, notFound(id.String())
	}
	u.VerificationToken = &token
	u.VerificationExpiresAt = &expiresAt
	f.storedTokens[id] = token
	return u, nil
}

func (f *fakeUsers) ConsumeVerificationToken(ctx context.Context, token string) (*storefront.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			if u.VerificationExpiresAt == nil || u.VerificationExpiresAt.Before(time.Now()) {
				return nil, storefront.ErrVerificationInvalid
			}
			u.EmailVerified = true
			u.VerificationToken = nil
			u.VerificationExpiresAt = nil
			return u, nil
		}
	}
	return nil, storefront.ErrVerificationInvalid
}

func (f *fakeUsers) SetBlacklist(ctx context.Context, id uuid.UUID, by uuid.UUID, reason string, at time.Time) (*storefront.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, notFound(id.String())
	}
	u.IsBlacklisted = true
	u.BlacklistedBy = &by
	u.BlacklistedAt = &at
	u.BlacklistReason = reason
	return u, nil
}

func (f *fakeUsers) ClearBlacklist(ctx context.Context, id uuid.UUID) (*storefront.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, notFound(id.String())
	}
	u.IsBlacklisted = false
	u.BlacklistedBy = nil
	u.BlacklistedAt = nil
	u.BlacklistReason = ""
	return u, nil
}

// fakeOrders is a configurable in-memory order store implementing the same
// compare-and-swap semantics as the real repository.
type fakeOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*storefront.Order
}

func newFakeOrders(seed ...*storefront.Order) *fakeOrders {
	f := &fakeOrders{orders: map[uuid.UUID]*storefront.Order{}}
	for _, o := range seed {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) GetByID(ctx context.Context, id uuid.UUID) (*storefront.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, notFound(id.String())
}

func (f *fakeOrders) Create(ctx context.Context, order *storefront.Order) (*storefront.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrders) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (*storefront.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, false, notFound(id.String())
	}
	if o.PaymentStatus == storefront.PaymentPaid {
		return o, false, nil
	}
	o.PaymentStatus = storefront.PaymentPaid
	o.IsPaid = true
	o.PaidAt = &paidAt
	if o.Status == storefront.OrderCreated {
		o.Status = storefront.OrderProcessing
	}
	return o, true, nil
}

func (f *fakeOrders) MarkFailed(ctx context.Context, id uuid.UUID) (*storefront.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, notFound(id.String())
	}
	if o.PaymentStatus != storefront.PaymentPaid {
		o.PaymentStatus = storefront.PaymentFailed
	}
	return o, nil
}

func (f *fakeOrders) SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) (*storefront.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, notFound(id.String())
	}
	o.PaymentID = &paymentID
	return o, nil
}

func (f *fakeOrders) SetStatus(ctx context.Context, id uuid.UUID, status storefront.OrderStatus) (*storefront.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, notFound(id.String())
	}
	o.Status = status
	return o, nil
}

// fakeAuditRecords captures writes and can be told to fail.
type fakeAuditRecords struct {
	mu        sync.Mutex
	records   []*storefront.AuditRecord
	createErr error
}

func (f *fakeAuditRecords) Create(ctx context.Context, record *storefront.AuditRecord) (*storefront.AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.records = append(f.records, record)
	return record, nil
}

func (f *fakeAuditRecords) ListForResource(ctx context.Context, kind, resourceID string) ([]*storefront.AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*storefront.AuditRecord
	for _, r := range f.records {
		if r.ResourceKind == kind && r.ResourceID == resourceID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAuditRecords) ListForActor(ctx context.Context, actorID uuid.UUID) ([]*storefront.AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*storefront.AuditRecord
	for _, r := range f.records {
		if r.ActorID == actorID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAuditRecords) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeAuditRecords) last() *storefront.AuditRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		return nil
	}
	return f.records[len(f.records)-1]
}

// fakeRepoManager bundles the fakes behind the RepositoryManager interface.
type fakeRepoManager struct {
	users  *fakeUsers
	orders *fakeOrders
	audit  *fakeAuditRecords
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:  newFakeUsers(),
		orders: newFakeOrders(),
		audit:  &fakeAuditRecords{},
	}
}

func (f *fakeRepoManager) Validate() error                       { return nil }
func (f *fakeRepoManager) Users() storefront.Users               { return f.users }
func (f *fakeRepoManager) Orders() storefront.Orders             { return f.orders }
func (f *fakeRepoManager) AuditRecords() storefront.AuditRecords { return f.audit }

// fakeMailer records verification sends.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []string
	sendErr error
}

func (f *fakeMailer) SendVerification(ctx context.Context, address, displayName, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, address)
	return nil
}

func (f *fakeMailer) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
