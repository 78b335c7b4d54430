// Package filestore persists accounts, speakers and their presets, recents
// and configured sources as XML files under a data directory:
//
//	<data>/<account>/Presets.xml
//	<data>/<account>/Recents.xml
//	<data>/<account>/Sources.xml
//	<data>/<account>/devices/<device>/DeviceInfo.xml
//
// Collections are account-scoped, matching what the speakers themselves keep.
// Every collection lives in its own file so change detection (ETags) works
// per collection.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

const (
	DevicesDir     = "devices"
	DeviceInfoFile = "DeviceInfo.xml"
	PresetsFile    = "Presets.xml"
	RecentsFile    = "Recents.xml"
	SourcesFile    = "Sources.xml"
)

// Store handles filesystem operations for the protocol state.
type Store struct {
	dataDir string
	logger  logger.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	etagMu    sync.Mutex
	etagFloor map[string]int64 // file path -> last issued etag
	lastETag  int64
}

// New creates a Store rooted at dataDir. The directory is created if missing.
func New(dataDir string, log logger.Logger) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("data dir must not be empty")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", domain.ErrStorage, err)
	}
	log.Info("filestore ready", logger.String("data_dir", dataDir))
	return &Store{
		dataDir:   dataDir,
		logger:    log,
		locks:     make(map[string]*sync.Mutex),
		etagFloor: make(map[string]int64),
	}, nil
}

func (s *Store) accountDir(account string) string {
	return filepath.Join(s.dataDir, account)
}

func (s *Store) devicesDir(account string) string {
	return filepath.Join(s.dataDir, account, DevicesDir)
}

func (s *Store) deviceDir(account, device string) string {
	return filepath.Join(s.devicesDir(account), device)
}

func (s *Store) collectionPath(account, file string) string {
	return filepath.Join(s.accountDir(account), file)
}

// Lock serializes read-modify-write sequences on an account's collections.
// Presets, recents and sources are stored per account, so the lock is too.
func (s *Store) Lock(account string) (unlock func()) {
	s.locksMu.Lock()
	mu, ok := s.locks[account]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[account] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// ListAccounts returns the registered account ids, sorted. An empty data
// directory yields an empty slice.
func (s *Store) ListAccounts() ([]string, error) {
	return listDirs(s.dataDir)
}

// ListDevices returns the device ids of an account, sorted. An account
// without devices yields an empty slice.
func (s *Store) ListDevices(account string) ([]string, error) {
	if !domain.ValidAccountID(account) {
		return nil, fmt.Errorf("account %q: %w", account, domain.ErrNotFound)
	}
	return listDirs(s.devicesDir(account))
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: read dir %s: %v", domain.ErrStorage, dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// AccountExists reports whether the account directory is present.
func (s *Store) AccountExists(account string) bool {
	if !domain.ValidAccountID(account) {
		return false
	}
	return isDir(s.accountDir(account))
}

// DeviceExists reports whether the device is registered under the account.
func (s *Store) DeviceExists(account, device string) bool {
	if !domain.ValidAccountID(account) || !domain.ValidDeviceID(device) {
		return false
	}
	return isDir(s.deviceDir(account, device))
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

// CreateAccount creates the account layout. It returns false without error
// when the account already exists, so registration can be retried.
func (s *Store) CreateAccount(account string) (bool, error) {
	if !domain.ValidAccountID(account) {
		return false, domain.NewInvalidIdentifierError("account", account)
	}
	if s.AccountExists(account) {
		return false, nil
	}
	s.logger.Info("creating account", logger.String("account", account))
	if err := os.MkdirAll(s.devicesDir(account), 0o755); err != nil {
		return false, fmt.Errorf("%w: create account %s: %v", domain.ErrStorage, account, err)
	}
	return true, nil
}

// AddDevice registers a speaker by storing its DeviceInfo.xml. The account is
// created on first registration. Returns false when the device is already
// registered.
func (s *Store) AddDevice(account, device string, deviceInfoXML []byte) (bool, error) {
	if !domain.ValidDeviceID(device) {
		return false, domain.NewInvalidIdentifierError("device", device)
	}
	if _, err := s.CreateAccount(account); err != nil {
		return false, err
	}
	if s.DeviceExists(account, device) {
		return false, nil
	}
	if _, err := parseDeviceInfo(deviceInfoXML); err != nil {
		return false, err
	}

	dir := s.deviceDir(account, device)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("%w: create device dir: %v", domain.ErrStorage, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, DeviceInfoFile), deviceInfoXML); err != nil {
		return false, err
	}
	s.logger.Info("device added",
		logger.String("account", account),
		logger.String("device", device))
	return true, nil
}

// RemoveDevice deletes a speaker's directory. Returns false when it was not
// registered.
func (s *Store) RemoveDevice(account, device string) (bool, error) {
	if !s.DeviceExists(account, device) {
		return false, nil
	}
	if err := os.RemoveAll(s.deviceDir(account, device)); err != nil {
		return false, fmt.Errorf("%w: remove device: %v", domain.ErrStorage, err)
	}
	s.logger.Info("device removed",
		logger.String("account", account),
		logger.String("device", device))
	return true, nil
}

// GetDeviceInfo reads a speaker's identity from disk.
func (s *Store) GetDeviceInfo(account, device string) (*domain.DeviceInfo, error) {
	if !s.DeviceExists(account, device) {
		return nil, fmt.Errorf("device %s/%s: %w", account, device, domain.ErrNotFound)
	}
	data, err := os.ReadFile(filepath.Join(s.deviceDir(account, device), DeviceInfoFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("device info %s/%s: %w", account, device, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: read device info: %v", domain.ErrStorage, err)
	}
	info, err := parseDeviceInfo(data)
	if err != nil {
		return nil, fmt.Errorf("%w: device %s: %v", domain.ErrStorage, device, err)
	}
	return info, nil
}

// requireDevice guards collection access keyed by (account, device).
func (s *Store) requireDevice(account, device string) error {
	if !s.AccountExists(account) {
		return fmt.Errorf("account %s: %w", account, domain.ErrNotFound)
	}
	if !s.DeviceExists(account, device) {
		return fmt.Errorf("device %s/%s: %w", account, device, domain.ErrNotFound)
	}
	return nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", domain.ErrStorage, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", domain.ErrStorage, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", domain.ErrStorage, path, err)
	}
	return nil
}
