package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// storeData is the state shared by the in-memory and file stores.
type storeData struct {
	Accounts   map[string]Account           `json:"accounts"`   // Key: account ID
	Attributes map[string]map[string][]byte `json:"attributes"` // Key: account ID, then attribute key
	Settings   map[string][]byte            `json:"settings"`
}

func newStoreData() *storeData {
	return &storeData{
		Accounts:   make(map[string]Account),
		Attributes: make(map[string]map[string][]byte),
		Settings:   make(map[string][]byte),
	}
}

func (d *storeData) byName(name string) (Account, bool) {
	for _, acct := range d.Accounts {
		if strings.EqualFold(acct.Username, name) {
			return acct, true
		}
	}
	return Account{}, false
}

func (d *storeData) create(acct Account) (Account, error) {
	if _, exists := d.byName(acct.Username); exists {
		return Account{}, ErrAccountExists
	}
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	if _, exists := d.Accounts[acct.ID]; exists {
		return Account{}, ErrAccountExists
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}
	d.Accounts[acct.ID] = acct
	return acct, nil
}

func (d *storeData) attribute(accountID, key string) ([]byte, error) {
	attrs, ok := d.Attributes[accountID]
	if !ok {
		return nil, ErrAttributeNotFound
	}
	value, ok := attrs[key]
	if !ok {
		return nil, ErrAttributeNotFound
	}
	return append([]byte(nil), value...), nil
}

func (d *storeData) setAttribute(accountID, key string, value []byte) {
	attrs, ok := d.Attributes[accountID]
	if !ok {
		attrs = make(map[string][]byte)
		d.Attributes[accountID] = attrs
	}
	attrs[key] = append([]byte(nil), value...)
}

func (d *storeData) deleteAttribute(accountID, key string) {
	if attrs, ok := d.Attributes[accountID]; ok {
		delete(attrs, key)
	}
}

// InMemStore implements Store using in-memory maps
type InMemStore struct {
	data *storeData
	mu   sync.RWMutex
}

// NewInMemStore creates a new in-memory account store
func NewInMemStore() *InMemStore {
	return &InMemStore{data: newStoreData()}
}

func (s *InMemStore) GetByName(ctx context.Context, name string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.data.byName(name)
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acct, nil
}

func (s *InMemStore) GetByID(ctx context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.data.Accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acct, nil
}

func (s *InMemStore) CreateAccount(ctx context.Context, acct Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.create(acct)
}

func (s *InMemStore) GetAttribute(ctx context.Context, accountID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.attribute(accountID, key)
}

func (s *InMemStore) SetAttribute(ctx context.Context, accountID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.setAttribute(accountID, key, value)
	return nil
}

func (s *InMemStore) DeleteAttribute(ctx context.Context, accountID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.deleteAttribute(accountID, key)
	return nil
}

func (s *InMemStore) GetSetting(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data.Settings[key]
	if !ok {
		return nil, ErrAttributeNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *InMemStore) SetSetting(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Settings[key] = append([]byte(nil), value...)
	return nil
}
