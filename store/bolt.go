// Copyright 2026 The Quicksolve Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"github.com/ManDay/quicksolve/errs"
	"github.com/boltdb/bolt"
)

var dataBucket = []byte("data")

// boltStore backs Store with a single-bucket boltdb/bolt database. Files
// are named per-prototype: "PR<id>.dat", "idPR<id>.dat".
type boltStore struct {
	db *bolt.DB
}

// Open opens (creating if requested by mode) a bolt-backed Store at path.
func Open(path string, mode Mode) (Store, error) {
	readOnly := mode == Read
	db, err := bolt.Open(path, 0644, &bolt.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, errs.ErrNoSuchPivot.Wrap(err, path)
	}

	if mode&(Write|Create) != 0 {
		if err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(dataBucket)
			return err
		}); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &boltStore{db: db}, nil
}

func (s *boltStore) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, value != nil, err
}

func (s *boltStore) Set(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(dataBucket)
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
}

func (s *boltStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if b == nil {
			return nil
		}
		return b.Delete(key)
	})
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

// Cursor returns a snapshot cursor over the bucket within one read
// transaction, closed when the cursor is closed.
func (s *boltStore) Cursor() (Cursor, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, err
	}
	b := tx.Bucket(dataBucket)
	if b == nil {
		tx.Rollback()
		return &boltCursor{done: true}, nil
	}
	c := b.Cursor()
	k, v := c.First()
	return &boltCursor{tx: tx, cursor: c, key: k, value: v, started: true}, nil
}

type boltCursor struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	key     []byte
	value   []byte
	started bool
	done    bool
}

func (c *boltCursor) Next() (key, value []byte, ok bool) {
	if c.done {
		return nil, nil, false
	}
	if c.key == nil {
		c.done = true
		return nil, nil, false
	}
	key, value = c.key, c.value
	c.key, c.value = c.cursor.Next()
	return key, value, true
}

func (c *boltCursor) Close() error {
	if c.tx != nil {
		return c.tx.Rollback()
	}
	return nil
}
