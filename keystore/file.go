package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"signalcore/keys"
	"signalcore/protocol/ratchet"
)

const documentVersion = 1

// FileStore keeps all key material in a single versioned JSON document on
// disk. Writes rewrite the whole document under a store-wide lock.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *logrus.Logger
}

type document struct {
	Version         int                                `json:"version"`
	IdentityKeyPair *keys.IdentityKeyPairRecord        `json:"identity_key_pair,omitempty"`
	PreKeys         map[string]keys.PreKeyRecord       `json:"pre_keys,omitempty"`
	SignedPreKeys   map[string]keys.SignedPreKeyRecord `json:"signed_pre_keys,omitempty"`
	Sessions        map[string]sessionDocument         `json:"sessions,omitempty"`
}

// NewFileStore opens (or prepares to create) the document at path.
func NewFileStore(path string, logger *logrus.Logger) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating key store directory: %w", err)
		}
	}
	return &FileStore{path: path, logger: logger}, nil
}

func (fs *FileStore) SaveIdentityKeyPair(_ context.Context, kp *keys.IdentityKeyPair) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.update(func(doc *document) error {
		rec := kp.Record()
		doc.IdentityKeyPair = &rec
		return nil
	})
}

func (fs *FileStore) LoadIdentityKeyPair(_ context.Context) (*keys.IdentityKeyPair, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.load()
	if err != nil {
		return nil, err
	}
	if doc.IdentityKeyPair == nil {
		return nil, ErrNotFound
	}
	return keys.IdentityKeyPairFromRecord(*doc.IdentityKeyPair)
}

func (fs *FileStore) SavePreKeyPair(_ context.Context, pk *keys.PreKeyPair) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.update(func(doc *document) error {
		if doc.PreKeys == nil {
			doc.PreKeys = make(map[string]keys.PreKeyRecord)
		}
		doc.PreKeys[keyID(pk.ID)] = pk.Record()
		return nil
	})
}

func (fs *FileStore) LoadPreKeyPair(_ context.Context, id uint32) (*keys.PreKeyPair, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.load()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.PreKeys[keyID(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return keys.PreKeyPairFromRecord(rec)
}

func (fs *FileStore) RemovePreKeyPair(_ context.Context, id uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.update(func(doc *document) error {
		if _, ok := doc.PreKeys[keyID(id)]; !ok {
			return ErrNotFound
		}
		delete(doc.PreKeys, keyID(id))
		return nil
	})
}

func (fs *FileStore) SaveSignedPreKeyPair(_ context.Context, spk *keys.SignedPreKeyPair) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.update(func(doc *document) error {
		if doc.SignedPreKeys == nil {
			doc.SignedPreKeys = make(map[string]keys.SignedPreKeyRecord)
		}
		doc.SignedPreKeys[keyID(spk.ID)] = spk.Record()
		return nil
	})
}

func (fs *FileStore) LoadSignedPreKeyPair(_ context.Context, id uint32) (*keys.SignedPreKeyPair, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.load()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.SignedPreKeys[keyID(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return keys.SignedPreKeyPairFromRecord(rec)
}

func (fs *FileStore) SaveSession(_ context.Context, session *ratchet.SessionRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.update(func(doc *document) error {
		if doc.Sessions == nil {
			doc.Sessions = make(map[string]sessionDocument)
		}
		doc.Sessions[session.SessionID] = sessionToDocument(session)
		return nil
	})
}

func (fs *FileStore) LoadSession(_ context.Context, sessionID string) (*ratchet.SessionRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.load()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sessionFromDocument(rec)
}

func (fs *FileStore) RemoveSession(_ context.Context, sessionID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.update(func(doc *document) error {
		if _, ok := doc.Sessions[sessionID]; !ok {
			return ErrNotFound
		}
		delete(doc.Sessions, sessionID)
		return nil
	})
}

// update loads the document, applies fn and writes it back. Must be called
// with the lock held.
func (fs *FileStore) update(fn func(*document) error) error {
	doc, err := fs.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return fs.save(doc)
}

func (fs *FileStore) load() (*document, error) {
	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return &document{Version: documentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading key store: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing key store: %w", err)
	}
	return &doc, nil
}

func (fs *FileStore) save(doc *document) error {
	doc.Version = documentVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding key store: %w", err)
	}
	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return fmt.Errorf("writing key store: %w", err)
	}
	fs.logger.Debugf("key store written to %s", fs.path)
	return nil
}

func keyID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
