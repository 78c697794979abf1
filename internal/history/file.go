package history

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/config"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxStorageSize     = int64(100 * 1024 * 1024)
	DefaultDataRetentionDays  = 90
	MaxStorageSizeEnvVar      = "HISTORY_MAX_STORAGE_SIZE"
	DataRetentionDaysEnvVar   = "HISTORY_RETENTION_DAYS"
	EncryptionPasswordEnvVar  = "HISTORY_ENCRYPTION_PASSWORD"
	historyFileName           = "history.jsonl"
	lockRetryDelay            = 25 * time.Millisecond
	defaultLockAcquireTimeout = 5 * time.Second
)

// FileStore keeps history as JSON lines in a single file, optionally encrypted as a
// whole with AES-GCM. Writes replace the file atomically under an exclusive lock.
type FileStore struct {
	filePath           string
	logger             *logrus.Logger
	maxStorageSize     int64
	dataRetentionDays  int
	encryptionPassword string
	now                func() time.Time

	// flock excludes other processes; mu serialises this one, whose goroutines would
	// otherwise contend on separate lock file descriptors
	mu sync.Mutex
}

// NewFileStore creates the history directory if needed and returns a file store
func NewFileStore(opts Options, logger *logrus.Logger) (*FileStore, error) {
	dir, err := historyDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	s := &FileStore{
		filePath:           filepath.Join(dir, historyFileName),
		logger:             logger,
		maxStorageSize:     opts.MaxSizeBytes,
		dataRetentionDays:  opts.RetentionDays,
		encryptionPassword: opts.EncryptionPassword,
		now:                time.Now,
	}
	s.loadEnvConfig()
	return s, nil
}

// loadEnvConfig fills settings left unset by Options from the environment
func (s *FileStore) loadEnvConfig() {
	if s.maxStorageSize <= 0 {
		s.maxStorageSize = DefaultMaxStorageSize
		if sizeStr := os.Getenv(MaxStorageSizeEnvVar); sizeStr != "" {
			if size, err := strconv.ParseInt(sizeStr, 10, 64); err == nil && size > 0 {
				s.maxStorageSize = size
			}
		}
	}
	if s.dataRetentionDays <= 0 {
		s.dataRetentionDays = DefaultDataRetentionDays
		if daysStr := os.Getenv(DataRetentionDaysEnvVar); daysStr != "" {
			if days, err := strconv.Atoi(daysStr); err == nil && days > 0 {
				s.dataRetentionDays = days
			}
		}
	}
	if s.encryptionPassword == "" {
		s.encryptionPassword = os.Getenv(EncryptionPasswordEnvVar)
	}
}

// Path returns the history file path
func (s *FileStore) Path() string {
	return s.filePath
}

// Append implements Store
func (s *FileStore) Append(ctx context.Context, rec Record) (Record, error) {
	rec, err := prepare(rec, s.now())
	if err != nil {
		return rec, err
	}

	err = s.update(ctx, func(records []Record) ([]Record, error) {
		return append(records, rec), nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List implements Store
func (s *FileStore) List(ctx context.Context, email string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	cutoff := retentionCutoff(s.now(), s.dataRetentionDays)
	var out []Record
	for _, r := range records {
		if r.UserEmail == email && r.CreatedAt.After(cutoff) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Clear implements Store
func (s *FileStore) Clear(ctx context.Context, email string) (int, error) {
	removed := 0
	err := s.update(ctx, func(records []Record) ([]Record, error) {
		kept := records[:0]
		for _, r := range records {
			if r.UserEmail == email {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Close implements Store
func (s *FileStore) Close() error {
	return nil
}

// update loads every record, applies fn, prunes expired records and writes the result
func (s *FileStore) update(ctx context.Context, fn func([]Record) ([]Record, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records, err = fn(records)
	if err != nil {
		return err
	}
	return s.save(s.prune(records))
}

func (s *FileStore) lock(ctx context.Context, exclusive bool) (func(), error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultLockAcquireTimeout)
		defer cancel()
	}

	fileLock := flock.New(s.filePath + ".lock")
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = fileLock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = fileLock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire history lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("could not acquire lock on history file")
	}
	return func() {
		if err := fileLock.Unlock(); err != nil {
			s.logger.WithError(err).Warn("Failed to release history lock")
		}
	}, nil
}

func (s *FileStore) prune(records []Record) []Record {
	cutoff := retentionCutoff(s.now(), s.dataRetentionDays)
	kept := records[:0]
	for _, r := range records {
		if r.CreatedAt.After(cutoff) {
			kept = append(kept, r)
		}
	}
	if pruned := len(records) - len(kept); pruned > 0 {
		s.logger.WithFields(logrus.Fields{
			"pruned":         pruned,
			"retention_days": s.dataRetentionDays,
		}).Debug("Pruned expired history records")
	}
	return kept
}

func (s *FileStore) load() ([]Record, error) {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	plain, err := s.decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt history file: %w", err)
	}

	// The file is already in memory, so lines are split directly: escaping can make a
	// record several times MaxFieldBytes and no line length limit applies.
	var records []Record
	rest := plain
	for lineNum := 1; len(rest) > 0; lineNum++ {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte{'\n'})
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			s.logger.WithError(err).WithField("line", lineNum).Warn("Failed to parse history record, skipping")
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *FileStore) save(records []Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to marshal history record %s: %w", r.ID, err)
		}
	}
	if int64(buf.Len()) > s.maxStorageSize {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit (set %s to adjust)",
			ErrStorageFull, buf.Len(), s.maxStorageSize, MaxStorageSizeEnvVar)
	}

	data, err := s.encrypt(buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to encrypt history: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary history file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

func (s *FileStore) gcm() (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(s.encryptionPassword))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func (s *FileStore) encrypt(data []byte) ([]byte, error) {
	if s.encryptionPassword == "" {
		return data, nil
	}
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

func (s *FileStore) decrypt(data []byte) ([]byte, error) {
	if s.encryptionPassword == "" || len(data) == 0 {
		return data, nil
	}
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func historyDir(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	stateDir, err := config.StateDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine history directory: %w", err)
	}
	return filepath.Join(stateDir, "history"), nil
}
