// Package memory implements the repository interfaces in process memory.
// Service tests use it in place of PostgreSQL; every method returns copies
// so callers observe the same isolation they get from the database.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"freshcart/internal/models"
	"freshcart/internal/repositories"
)

// Store holds every table. One mutex serializes all access, which gives
// Mutate the same all-or-nothing behaviour as a row lock.
type Store struct {
	mu sync.Mutex

	nextID uint

	devices   map[models.DeviceKey]models.DeviceFailureRecord
	sessions  map[string]models.LoginAttemptSession
	owners    map[uint]models.ShopOwner
	ownerRT   map[string]models.ShopOwnerRefreshToken
	customers map[uint]models.Customer
	tokens    map[string]models.Token
	orders    map[uint]models.Order
}

func NewStore() *Store {
	return &Store{
		devices:   make(map[models.DeviceKey]models.DeviceFailureRecord),
		sessions:  make(map[string]models.LoginAttemptSession),
		owners:    make(map[uint]models.ShopOwner),
		ownerRT:   make(map[string]models.ShopOwnerRefreshToken),
		customers: make(map[uint]models.Customer),
		tokens:    make(map[string]models.Token),
		orders:    make(map[uint]models.Order),
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

func (s *Store) Devices() repositories.DeviceFailureRepository { return deviceRepo{s} }
func (s *Store) Sessions() repositories.LoginAttemptRepository { return sessionRepo{s} }
func (s *Store) ShopOwners() repositories.ShopOwnerRepository  { return ownerRepo{s} }
func (s *Store) Customers() repositories.CustomerRepository    { return customerRepo{s} }
func (s *Store) Tokens() repositories.TokenRepository          { return tokenRepo{s} }

// AddOrder seeds an order for deletion tests.
func (s *Store) AddOrder(o models.Order) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.id()
	s.orders[o.ID] = o
	return o.ID
}

func (s *Store) Order(id uint) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

// TokenCount returns how many customer tokens of typ exist for a customer.
func (s *Store) TokenCount(customerID uint, typ models.TokenType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.CustomerID == customerID && t.Type == typ {
			n++
		}
	}
	return n
}

// RefreshTokenCount returns how many refresh rows a shop owner has.
func (s *Store) RefreshTokenCount(ownerID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.ownerRT {
		if t.ShopOwnerID == ownerID {
			n++
		}
	}
	return n
}

// devices

type deviceRepo struct{ s *Store }

func (r deviceRepo) Get(_ context.Context, key models.DeviceKey) (*models.DeviceFailureRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.devices[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &rec, nil
}

func (r deviceRepo) Mutate(_ context.Context, key models.DeviceKey, fn func(*models.DeviceFailureRecord) error) (*models.DeviceFailureRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.devices[key]
	if !ok {
		rec = models.DeviceFailureRecord{ID: r.s.id(), DeviceID: key.DeviceID, BrowserToken: key.BrowserToken, CreatedAt: time.Now()}
	}
	if err := fn(&rec); err != nil {
		return nil, err
	}
	rec.UpdatedAt = time.Now()
	r.s.devices[key] = rec
	return &rec, nil
}

func (r deviceRepo) Delete(_ context.Context, key models.DeviceKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.devices, key)
	return nil
}

// login attempt sessions

type sessionRepo struct{ s *Store }

func (r sessionRepo) GetByStoreID(_ context.Context, storeID string) (*models.LoginAttemptSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[storeID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &sess, nil
}

func (r sessionRepo) Mutate(_ context.Context, storeID string, fn func(*models.LoginAttemptSession) error) (*models.LoginAttemptSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[storeID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if err := fn(&sess); err != nil {
		return nil, err
	}
	r.s.sessions[storeID] = sess
	return &sess, nil
}

func (r sessionRepo) Upsert(_ context.Context, session *models.LoginAttemptSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.sessions[session.StoreID]; ok {
		session.ID = existing.ID
	} else {
		session.ID = r.s.id()
	}
	r.s.sessions[session.StoreID] = *session
	return nil
}

// shop owners

type ownerRepo struct{ s *Store }

func (r ownerRepo) Create(_ context.Context, owner *models.ShopOwner) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	owner.Email = strings.ToLower(strings.TrimSpace(owner.Email))
	for _, o := range r.s.owners {
		if o.StoreID == owner.StoreID || o.Email == owner.Email {
			return repositories.ErrDuplicate
		}
	}
	owner.ID = r.s.id()
	owner.CreatedAt = time.Now()
	r.s.owners[owner.ID] = *owner
	return nil
}

func (r ownerRepo) GetByID(_ context.Context, id uint) (*models.ShopOwner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.owners[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &o, nil
}

func (r ownerRepo) find(match func(models.ShopOwner) bool) (*models.ShopOwner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.owners {
		if match(o) {
			return &o, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r ownerRepo) GetByStoreID(_ context.Context, storeID string) (*models.ShopOwner, error) {
	return r.find(func(o models.ShopOwner) bool { return o.StoreID == storeID })
}

func (r ownerRepo) GetByEmail(_ context.Context, email string) (*models.ShopOwner, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(o models.ShopOwner) bool { return o.Email == email })
}

func (r ownerRepo) MarkEmailVerified(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.owners[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.EmailVerified = true
	r.s.owners[id] = o
	return nil
}

func (r ownerRepo) AddRefreshToken(_ context.Context, token *models.ShopOwnerRefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.ownerRT[token.TokenID]; ok {
		return repositories.ErrDuplicate
	}
	token.ID = r.s.id()
	token.CreatedAt = time.Now()
	r.s.ownerRT[token.TokenID] = *token
	return nil
}

func (r ownerRepo) FindRefreshToken(_ context.Context, tokenID string) (*models.ShopOwnerRefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.ownerRT[tokenID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

func (r ownerRepo) RotateRefreshToken(_ context.Context, oldTokenID, oldHash string, next *models.ShopOwnerRefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.ownerRT[oldTokenID]
	if !ok || old.TokenHash != oldHash {
		return repositories.ErrStaleToken
	}
	delete(r.s.ownerRT, oldTokenID)
	next.ID = r.s.id()
	next.CreatedAt = time.Now()
	r.s.ownerRT[next.TokenID] = *next
	return nil
}

func (r ownerRepo) DeleteRefreshToken(_ context.Context, tokenID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.ownerRT, tokenID)
	return nil
}

func (r ownerRepo) DeleteRefreshTokens(_ context.Context, ownerID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, t := range r.s.ownerRT {
		if t.ShopOwnerID == ownerID {
			delete(r.s.ownerRT, id)
		}
	}
	return nil
}

// customers

type customerRepo struct{ s *Store }

func (r customerRepo) Create(_ context.Context, c *models.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	for _, existing := range r.s.customers {
		if existing.Email == c.Email {
			return repositories.ErrDuplicate
		}
		if c.Phone != nil && existing.Phone != nil && *existing.Phone == *c.Phone {
			return repositories.ErrDuplicate
		}
	}
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.customers[c.ID] = *c
	return nil
}

func (r customerRepo) GetByID(_ context.Context, id uint) (*models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r customerRepo) find(match func(models.Customer) bool) (*models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.customers {
		if match(c) {
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r customerRepo) GetByEmail(_ context.Context, email string) (*models.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(c models.Customer) bool { return c.Email == email })
}

func (r customerRepo) GetByPhone(_ context.Context, phone string) (*models.Customer, error) {
	return r.find(func(c models.Customer) bool { return c.Phone != nil && *c.Phone == phone })
}

func (r customerRepo) Update(_ context.Context, c *models.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.customers[c.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.customers[c.ID] = *c
	return nil
}

func (r customerRepo) Mutate(_ context.Context, id uint, fn func(*models.Customer) error) (*models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if err := fn(&c); err != nil {
		return nil, err
	}
	r.s.customers[id] = c
	return &c, nil
}

func (r customerRepo) SetStripeCustomerID(_ context.Context, id uint, stripeID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.StripeCustomerID = stripeID
	r.s.customers[id] = c
	return nil
}

func (r customerRepo) DeleteAccount(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.customers[id]; !ok {
		return repositories.ErrNotFound
	}
	for hash, t := range r.s.tokens {
		if t.CustomerID == id {
			delete(r.s.tokens, hash)
		}
	}
	for oid, o := range r.s.orders {
		if o.CustomerID != nil && *o.CustomerID == id {
			o.CustomerID = nil
			o.CustomerName = "Deleted customer"
			o.ContactPhone = ""
			r.s.orders[oid] = o
		}
	}
	delete(r.s.customers, id)
	return nil
}

// tokens

type tokenRepo struct{ s *Store }

func (r tokenRepo) Create(_ context.Context, t *models.Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(t)
}

func (r tokenRepo) insert(t *models.Token) error {
	if _, ok := r.s.tokens[t.TokenHash]; ok {
		return repositories.ErrDuplicate
	}
	t.ID = r.s.id()
	t.CreatedAt = time.Now()
	r.s.tokens[t.TokenHash] = *t
	return nil
}

func (r tokenRepo) FindByHash(_ context.Context, hash string) (*models.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[hash]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

func (r tokenRepo) Delete(_ context.Context, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, hash)
	return nil
}

func (r tokenRepo) Consume(_ context.Context, hash string, typ models.TokenType) (*models.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[hash]
	if !ok || t.Type != typ {
		return nil, repositories.ErrNotFound
	}
	delete(r.s.tokens, hash)
	return &t, nil
}

func (r tokenRepo) ReplaceRefresh(_ context.Context, t *models.Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.deleteWhere(t.CustomerID, models.TokenRefresh)
	return r.insert(t)
}

func (r tokenRepo) Rotate(_ context.Context, oldHash, newHash string, expiresAt, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[oldHash]
	if !ok || t.Type != models.TokenRefresh || !now.Before(t.ExpiresAt) {
		return repositories.ErrStaleToken
	}
	delete(r.s.tokens, oldHash)
	t.TokenHash = newHash
	t.ExpiresAt = expiresAt
	t.UpdatedAt = now
	r.s.tokens[newHash] = t
	return nil
}

func (r tokenRepo) DeleteByCustomer(_ context.Context, customerID uint, types ...models.TokenType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(types) == 0 {
		r.deleteWhere(customerID, "")
		return nil
	}
	for _, typ := range types {
		r.deleteWhere(customerID, typ)
	}
	return nil
}

// deleteWhere removes the customer's tokens of typ, or all of them when typ
// is empty. The caller holds the lock.
func (r tokenRepo) deleteWhere(customerID uint, typ models.TokenType) {
	for hash, t := range r.s.tokens {
		if t.CustomerID == customerID && (typ == "" || t.Type == typ) {
			delete(r.s.tokens, hash)
		}
	}
}
