package recorder

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketSessions = "sessions"

// BoltStore keeps recordings in a local bbolt file. Every session is a
// nested bucket keyed by a big-endian sequence number.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, ErrStorage.WithSubject("%s", path).Wrap(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSessions))
		return err
	})
	if err != nil {
		db.Close()
		return nil, ErrStorage.WithSubject("%s", path).Wrap(err)
	}
	return &BoltStore{db: db}, nil
}

// Append implements Store.
func (s *BoltStore) Append(_ context.Context, session string, recs []Record) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(bucketSessions)).CreateBucketIfNotExists([]byte(session))
		if err != nil {
			return err
		}
		for _, rec := range recs {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(marshalSeq(seq), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ErrStorage.WithSubject("session %s", session).Wrap(err)
	}
	return nil
}

// Load implements Store.
func (s *BoltStore) Load(_ context.Context, session string) ([]Record, error) {
	var recs []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions)).Bucket([]byte(session))
		if b == nil {
			return ErrNotFound.WithSubject("session %s", session)
		}
		return b.ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return ErrStorage.WithSubject("session %s", session).Wrap(err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Sessions implements Store. Names are returned in key order.
func (s *BoltStore) Sessions(context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).ForEach(func(k, v []byte) error {
			if v == nil { // nested bucket
				names = append(names, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, ErrStorage.Wrap(err)
	}
	return names, nil
}

// Delete drops a session.
func (s *BoltStore) Delete(session string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(bucketSessions)).DeleteBucket([]byte(session))
		if err == bolt.ErrBucketNotFound {
			return ErrNotFound.WithSubject("session %s", session)
		}
		return err
	})
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
