// Package badgerstore implements the license store on an embedded badger
// database. Records are JSON values under "license/<username>"; events live
// under "event/" followed by the uvarint length of the username, the username
// and a big-endian id, so that key order is insertion order and no username
// is a key prefix of another.
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
)

const (
	licensePrefix = "license/"
	eventPrefix   = "event/"
	sequenceKey   = "seq/events"
	sequenceBand  = 100
)

type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger logging.Logger
}

// Open opens (or creates) the database in dir. An empty dir keeps the
// database in memory.
func Open(dir string, logger logging.Logger) (*Store, error) {
	logger = logger.With("module", "badgerstore")

	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = &badgerLogger{l: logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open error: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBand)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("badger sequence error: %w", err)
	}

	return &Store{db: db, seq: seq, logger: logger}, nil
}

func licenseKey(username string) []byte {
	return []byte(licensePrefix + username)
}

func eventUserPrefix(username string) []byte {
	k := binary.AppendUvarint([]byte(eventPrefix), uint64(len(username)))
	return append(k, username...)
}

func eventKey(username string, id uint64) []byte {
	k := eventUserPrefix(username)
	return binary.BigEndian.AppendUint64(k, id)
}

func (s *Store) Create(ctx context.Context, lic *models.License, ev models.LicenseEvent) error {
	val, err := json.Marshal(lic)
	if err != nil {
		return fmt.Errorf("encode license: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(licenseKey(lic.Username))
		if err == nil {
			return common.ErrUsernameTaken
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("badger error: %w", err)
		}
		if err := txn.Set(licenseKey(lic.Username), val); err != nil {
			return fmt.Errorf("badger error: %w", err)
		}
		return s.appendEvent(txn, ev)
	})
}

func (s *Store) Get(ctx context.Context, username string) (*models.License, error) {
	var lic *models.License
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		lic, err = getLicense(txn, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lic, nil
}

func (s *Store) Update(ctx context.Context, lic *models.License, ev models.LicenseEvent) error {
	return s.db.Update(func(txn *badger.Txn) error {
		cur, err := getLicense(txn, lic.Username)
		if err != nil {
			return err
		}
		cur.ViewsRemaining = lic.ViewsRemaining
		cur.ExpiresAt = lic.ExpiresAt

		val, err := json.Marshal(cur)
		if err != nil {
			return fmt.Errorf("encode license: %w", err)
		}
		if err := txn.Set(licenseKey(lic.Username), val); err != nil {
			return fmt.Errorf("badger error: %w", err)
		}
		return s.appendEvent(txn, ev)
	})
}

func (s *Store) Events(ctx context.Context, username string, limit int) ([]models.LicenseEvent, error) {
	var out []models.LicenseEvent
	prefix := eventUserPrefix(username)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration starts from the largest key with this prefix
		seek := append(append([]byte(nil), prefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var ev models.LicenseEvent
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &ev)
			})
			if err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close() error {
	s.logger.Info(context.Background(), "Closing badger")
	if err := s.seq.Release(); err != nil {
		s.logger.Warn(context.Background(), "Sequence release failed", "error", err)
	}
	return s.db.Close()
}

func (s *Store) appendEvent(txn *badger.Txn, ev models.LicenseEvent) error {
	id, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("badger sequence error: %w", err)
	}
	// ids start at 1, matching the SQL stores
	id++
	ev.ID = int64(id)

	val, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := txn.Set(eventKey(ev.Username, id), val); err != nil {
		return fmt.Errorf("badger error: %w", err)
	}
	return nil
}

func getLicense(txn *badger.Txn, username string) (*models.License, error) {
	item, err := txn.Get(licenseKey(username))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("badger error: %w", err)
	}

	lic := &models.License{}
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, lic)
	})
	if err != nil {
		return nil, fmt.Errorf("decode license: %w", err)
	}
	return lic, nil
}
