package cachestorage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	createTempFile = os.CreateTemp
	renameFile     = os.Rename
)

var fileRecordMagic = []byte("CSF1")

const (
	fileRecordSuffix    = ".cache"
	fileRecordHeaderLen = 8
)

// ErrCorruptRecord is returned when an on-disk record cannot be decoded.
var ErrCorruptRecord = errors.New("cachestorage: corrupt file record")

type fileStore struct {
	dir   string
	quota uint64
}

func newFileStore(dir string, quota uint64) (Store, error) {
	if dir == "" {
		dir = defaultFileDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create file store dir: %w", err)
	}
	return &fileStore{dir: dir, quota: quota}, nil
}

func (s *fileStore) Driver() Driver {
	return DriverFile
}

func (s *fileStore) Ready(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("file store path %q is not a directory", s.dir)
	}
	return nil
}

func (s *fileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	storedKey, value, err := decodeFileRecord(data)
	if err != nil {
		return nil, false, err
	}
	if storedKey != key {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *fileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := createTempFile(s.dir, "tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(encodeFileRecord(key, value)); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := renameFile(tmpPath, s.path(key)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *fileStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileRecordSuffix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, err := readFileRecordKey(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fileStore) Estimate(context.Context) (Estimate, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Estimate{}, err
	}
	var usage uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		usage += uint64(info.Size())
	}
	return Estimate{Usage: usage, Quota: s.quota}, nil
}

func (s *fileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+fileRecordSuffix)
}

// A record is magic, big-endian key length, key, value.
func encodeFileRecord(key string, value []byte) []byte {
	out := make([]byte, fileRecordHeaderLen, fileRecordHeaderLen+len(key)+len(value))
	copy(out[:4], fileRecordMagic)
	binary.BigEndian.PutUint32(out[4:fileRecordHeaderLen], uint32(len(key)))
	out = append(out, key...)
	return append(out, value...)
}

func decodeFileRecord(data []byte) (string, []byte, error) {
	if len(data) < fileRecordHeaderLen || !bytes.Equal(data[:4], fileRecordMagic) {
		return "", nil, ErrCorruptRecord
	}
	keyLen := int(binary.BigEndian.Uint32(data[4:fileRecordHeaderLen]))
	if len(data) < fileRecordHeaderLen+keyLen {
		return "", nil, ErrCorruptRecord
	}
	key := string(data[fileRecordHeaderLen : fileRecordHeaderLen+keyLen])
	return key, data[fileRecordHeaderLen+keyLen:], nil
}

func readFileRecordKey(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	var header [fileRecordHeaderLen]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return "", ErrCorruptRecord
	}
	if !bytes.Equal(header[:4], fileRecordMagic) {
		return "", ErrCorruptRecord
	}
	keyLen := int64(binary.BigEndian.Uint32(header[4:]))
	if keyLen > info.Size()-fileRecordHeaderLen {
		return "", ErrCorruptRecord
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(f, key); err != nil {
		return "", ErrCorruptRecord
	}
	return string(key), nil
}
