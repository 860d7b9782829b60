package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Namespace is the key-value namespace the kiosk owns in the store file
	Namespace = "autoprint"

	// KeyNetworkName holds the station-mode network name
	KeyNetworkName = "network_name"

	// KeySecret holds the network secret (empty for open networks)
	KeySecret = "secret"

	documentVersion = 1
)

// Credentials is the network configuration entered through the setup portal
type Credentials struct {
	NetworkName string
	Secret      string
}

// Present reports whether usable credentials exist. A secret without a
// network name is treated as absent.
func (c Credentials) Present() bool {
	return c.NetworkName != ""
}

// document is the on-disk layout
type document struct {
	Version   int               `yaml:"version"`
	Namespace string            `yaml:"namespace"`
	Values    map[string]string `yaml:"values"`
}

// FileStore is a YAML-file-backed key-value namespace
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the file at path. The file and its
// directory are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value for key, or "" if the key or the file is missing
func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return "", err
	}
	return doc.Values[key], nil
}

// Put sets a single key and saves the document
func (s *FileStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Values[key] = value
	return s.write(doc)
}

// Load returns the stored credentials. A missing file yields empty
// credentials and no error.
func (s *FileStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return Credentials{}, err
	}

	creds := Credentials{
		NetworkName: doc.Values[KeyNetworkName],
		Secret:      doc.Values[KeySecret],
	}
	if !creds.Present() {
		return Credentials{}, nil
	}
	return creds, nil
}

// Save persists both credential fields in one atomic write
func (s *FileStore) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Values[KeyNetworkName] = creds.NetworkName
	doc.Values[KeySecret] = creds.Secret
	return s.write(doc)
}

// Clear removes the stored credentials, forcing provisioning on next boot
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	delete(doc.Values, KeyNetworkName)
	delete(doc.Values, KeySecret)
	return s.write(doc)
}

func (s *FileStore) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return newDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse credential store: %w", err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("unsupported credential store version: %d (expected %d)", doc.Version, documentVersion)
	}
	if doc.Namespace != Namespace {
		return nil, fmt.Errorf("credential store namespace %q, expected %q", doc.Namespace, Namespace)
	}
	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}
	return &doc, nil
}

func (s *FileStore) write(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential store directory: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal credential store: %w", err)
	}

	header := []byte("# AutoPrint kiosk network credentials.\n# Written by the setup portal. Delete to force setup mode.\n\n")
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary credential store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save credential store: %w", err)
	}
	return nil
}

func newDocument() *document {
	return &document{
		Version:   documentVersion,
		Namespace: Namespace,
		Values:    make(map[string]string),
	}
}
