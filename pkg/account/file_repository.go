package account

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const accountsFile = "accounts.json"

// FileStore implements Store using a JSON file that is rewritten on every change
type FileStore struct {
	dataDir string
	data    *storeData
	mu      sync.RWMutex
}

// NewFileStore creates a new file-based account store
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		dataDir: dataDir,
		data:    newStoreData(),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return s, nil
}

func (s *FileStore) GetByName(ctx context.Context, name string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.data.byName(name)
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acct, nil
}

func (s *FileStore) GetByID(ctx context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.data.Accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acct, nil
}

func (s *FileStore) CreateAccount(ctx context.Context, acct Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.data.create(acct)
	if err != nil {
		return Account{}, err
	}
	if err := s.save(); err != nil {
		delete(s.data.Accounts, created.ID)
		return Account{}, fmt.Errorf("failed to save: %w", err)
	}
	return created, nil
}

func (s *FileStore) GetAttribute(ctx context.Context, accountID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.attribute(accountID, key)
}

func (s *FileStore) SetAttribute(ctx context.Context, accountID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.setAttribute(accountID, key, value)
	return s.save()
}

func (s *FileStore) DeleteAttribute(ctx context.Context, accountID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.deleteAttribute(accountID, key)
	return s.save()
}

func (s *FileStore) GetSetting(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data.Settings[key]
	if !ok {
		return nil, ErrAttributeNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *FileStore) SetSetting(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Settings[key] = append([]byte(nil), value...)
	return s.save()
}

// load reads account data from file
func (s *FileStore) load() error {
	filePath := filepath.Join(s.dataDir, accountsFile)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	data := newStoreData()
	if err := json.Unmarshal(raw, data); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	// Maps missing from older files decode as nil
	if data.Accounts == nil {
		data.Accounts = make(map[string]Account)
	}
	if data.Attributes == nil {
		data.Attributes = make(map[string]map[string][]byte)
	}
	if data.Settings == nil {
		data.Settings = make(map[string][]byte)
	}
	s.data = data
	return nil
}

// save writes account data to file atomically
func (s *FileStore) save() error {
	jsonData, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(s.dataDir, accountsFile+".tmp")
	if err := os.WriteFile(tempFile, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(s.dataDir, accountsFile)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
