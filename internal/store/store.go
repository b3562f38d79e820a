// Package store is the booth's local record store: sessions grouping
// photos by category, the encoded photo payloads, and gallery thumbnails.
// Single writer, one bbolt file, no external services.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	bolt "go.etcd.io/bbolt"

	"github.com/Chandru0712/SelfieBooth/internal/debug"
)

var (
	bucketSessions = []byte("sessions")
	bucketPhotos   = []byte("photos")
	bucketPayloads = []byte("payloads")
	bucketThumbs   = []byte("thumbs")
)

// Session groups photos taken under one category, with running counts
// and byte totals maintained on every save and delete.
type Session struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	CreatedAt  time.Time `json:"created_at"`
	PhotoCount int       `json:"photo_count"`
	TotalBytes int64     `json:"total_bytes"`
}

// Photo references its owning session and carries capture metadata.
// The encoded payload lives in a separate bucket keyed by the photo id.
type Photo struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	FrameID   string    `json:"frame_id,omitempty"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes int64     `json:"size_bytes"`
	TakenAt   time.Time `json:"taken_at"`
}

// PhotoMeta is the capture metadata recorded with a payload.
type PhotoMeta struct {
	FrameID string
	Width   int
	Height  int
	TakenAt time.Time
}

// Stats summarizes the record store.
type Stats struct {
	SessionCount int   `json:"session_count"`
	PhotoCount   int   `json:"photo_count"`
	TotalBytes   int64 `json:"total_bytes"`
}

// Store wraps the bbolt database.
type Store struct {
	db         *bolt.DB
	thumbWidth int
}

// Open opens (or creates) the database file and ensures all buckets exist.
func Open(path string, thumbWidth int) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSessions, bucketPhotos, bucketPayloads, bucketThumbs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init record store: %w", err)
	}
	return &Store{db: db, thumbWidth: thumbWidth}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession starts a new session for a category.
func (s *Store) CreateSession(category string) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		Category:  category,
		CreatedAt: time.Now(),
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(bucketSessions), session.ID, session)
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	debug.Info("Session %s created (category: %s)", session.ID, category)
	return session, nil
}

// Session returns one session by id.
func (s *Store) Session(id string) (*Session, error) {
	var session Session
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketSessions), id, &session)
	})
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return &session, nil
}

// SavePhoto stores an encoded payload under a session and updates the
// session's running counters. A gallery thumbnail is generated from the
// payload; a thumbnail failure is logged, not fatal.
func (s *Store) SavePhoto(sessionID string, payload []byte, meta PhotoMeta) (*Photo, error) {
	photo := &Photo{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		FrameID:   meta.FrameID,
		Width:     meta.Width,
		Height:    meta.Height,
		SizeBytes: int64(len(payload)),
		TakenAt:   meta.TakenAt,
	}
	if photo.TakenAt.IsZero() {
		photo.TakenAt = time.Now()
	}

	thumb := s.makeThumb(photo.ID, payload)

	err := s.db.Update(func(tx *bolt.Tx) error {
		var session Session
		if err := getJSON(tx.Bucket(bucketSessions), sessionID, &session); err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}

		if err := putJSON(tx.Bucket(bucketPhotos), photo.ID, photo); err != nil {
			return err
		}
		if err := tx.Bucket(bucketPayloads).Put([]byte(photo.ID), payload); err != nil {
			return err
		}
		if thumb != nil {
			if err := tx.Bucket(bucketThumbs).Put([]byte(photo.ID), thumb); err != nil {
				return err
			}
		}

		session.PhotoCount++
		session.TotalBytes += photo.SizeBytes
		return putJSON(tx.Bucket(bucketSessions), session.ID, &session)
	})
	if err != nil {
		return nil, fmt.Errorf("save photo: %w", err)
	}
	debug.Info("Photo %s saved (%dx%d, %d bytes)", photo.ID, photo.Width, photo.Height, photo.SizeBytes)
	return photo, nil
}

// makeThumb decodes the payload and produces a JPEG gallery thumbnail.
func (s *Store) makeThumb(photoID string, payload []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		debug.Error(fmt.Errorf("thumbnail for %s: decode: %w", photoID, err))
		return nil
	}
	small := resize.Resize(uint(s.thumbWidth), 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: 80}); err != nil {
		debug.Error(fmt.Errorf("thumbnail for %s: encode: %w", photoID, err))
		return nil
	}
	return buf.Bytes()
}

// Sessions returns sessions ordered newest first, paginated.
func (s *Store) Sessions(limit, offset int) ([]Session, error) {
	var all []Session
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(_, v []byte) error {
			var session Session
			if err := json.Unmarshal(v, &session); err != nil {
				return err
			}
			all = append(all, session)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []Session{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Photos returns a session's photos ordered by capture time.
func (s *Store) Photos(sessionID string) ([]Photo, error) {
	var photos []Photo
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPhotos).ForEach(func(_, v []byte) error {
			var photo Photo
			if err := json.Unmarshal(v, &photo); err != nil {
				return err
			}
			if photo.SessionID == sessionID {
				photos = append(photos, photo)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	sort.Slice(photos, func(i, j int) bool { return photos[i].TakenAt.Before(photos[j].TakenAt) })
	return photos, nil
}

// Photo returns one photo's metadata.
func (s *Store) Photo(id string) (*Photo, error) {
	var photo Photo
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketPhotos), id, &photo)
	})
	if err != nil {
		return nil, fmt.Errorf("photo %s: %w", id, err)
	}
	return &photo, nil
}

// PhotoPayload returns a photo's encoded image.
func (s *Store) PhotoPayload(id string) ([]byte, error) {
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketPayloads).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("no payload")
		}
		payload = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("photo payload %s: %w", id, err)
	}
	return payload, nil
}

// PhotoThumb returns a photo's gallery thumbnail, if one was generated.
func (s *Store) PhotoThumb(id string) ([]byte, error) {
	var thumb []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketThumbs).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("no thumbnail")
		}
		thumb = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("photo thumb %s: %w", id, err)
	}
	return thumb, nil
}

// DeletePhoto removes a photo, its payload and thumbnail, and adjusts the
// owning session's counters.
func (s *Store) DeletePhoto(id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		var photo Photo
		if err := getJSON(tx.Bucket(bucketPhotos), id, &photo); err != nil {
			return err
		}

		if err := tx.Bucket(bucketPhotos).Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketPayloads).Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketThumbs).Delete([]byte(id)); err != nil {
			return err
		}

		var session Session
		if err := getJSON(tx.Bucket(bucketSessions), photo.SessionID, &session); err != nil {
			// Orphaned photo: nothing to adjust.
			return nil
		}
		session.PhotoCount--
		session.TotalBytes -= photo.SizeBytes
		return putJSON(tx.Bucket(bucketSessions), session.ID, &session)
	})
	if err != nil {
		return fmt.Errorf("delete photo %s: %w", id, err)
	}
	debug.Info("Photo %s deleted", id)
	return nil
}

// StorageStats returns the session count, photo count, and total bytes.
func (s *Store) StorageStats() (Stats, error) {
	var stats Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		stats.SessionCount = tx.Bucket(bucketSessions).Stats().KeyN
		return tx.Bucket(bucketPhotos).ForEach(func(_, v []byte) error {
			var photo Photo
			if err := json.Unmarshal(v, &photo); err != nil {
				return err
			}
			stats.PhotoCount++
			stats.TotalBytes += photo.SizeBytes
			return nil
		})
	})
	if err != nil {
		return Stats{}, fmt.Errorf("storage stats: %w", err)
	}
	return stats, nil
}

func putJSON(b *bolt.Bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func getJSON(b *bolt.Bucket, key string, v interface{}) error {
	data := b.Get([]byte(key))
	if data == nil {
		return fmt.Errorf("not found")
	}
	return json.Unmarshal(data, v)
}
