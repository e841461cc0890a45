package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"HaikuCurator/internal/conversation"
)

var (
	bucketHistory  = []byte("history")
	bucketSettings = []byte("settings")

	keyCurrent = []byte("current_conversation")
	keyTheme   = []byte("theme")
)

// Store хранит историю диалогов и настройки в локальном bbolt-файле.
// История переписывается целиком при каждом сохранении (снимок), логические
// наборы данных лежат в отдельных бакетах одного файла.
type Store struct {
	path   string
	logger *zap.SugaredLogger
}

// New создаёт стор и директорию под файл БД.
func New(path string, logger *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating data directory")
	}
	return &Store{path: path, logger: logger}, nil
}

func (s *Store) open() (*bolt.DB, error) {
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	return db, nil
}

// SaveHistory переписывает снимок истории целиком: бакет пересоздаётся,
// диалоги кладутся под упорядоченными ключами.
func (s *Store) SaveHistory(conversations []*conversation.Conversation, currentID string) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketHistory); b != nil {
			if err := tx.DeleteBucket(bucketHistory); err != nil {
				return errors.Wrap(err, "recreating history bucket")
			}
		}
		b, err := tx.CreateBucket(bucketHistory)
		if err != nil {
			return errors.Wrap(err, "creating history bucket")
		}
		for i, c := range conversations {
			enc, err := json.Marshal(c)
			if err != nil {
				return errors.Wrap(err, "marshaling conversation")
			}
			if err := b.Put(fmt.Appendf(nil, "%06d", i), enc); err != nil {
				return errors.Wrap(err, "writing conversation")
			}
		}

		sb, err := tx.CreateBucketIfNotExists(bucketSettings)
		if err != nil {
			return errors.Wrap(err, "creating settings bucket")
		}
		return errors.Wrap(sb.Put(keyCurrent, []byte(currentID)), "writing current conversation id")
	})
}

// LoadHistory читает сохранённую историю. Отсутствие файла или бакета — не
// ошибка: возвращается пустой список, вызывающий создаёт свежий диалог.
// Повреждённые записи пропускаются, а не валят загрузку.
func (s *Store) LoadHistory() ([]*conversation.Conversation, string, error) {
	db, err := s.open()
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = db.Close() }()

	var out []*conversation.Conversation
	var currentID string
	err = db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketHistory); b != nil {
			// ключи упорядочены, ForEach сохраняет хронологию
			if err := b.ForEach(func(k, v []byte) error {
				var c conversation.Conversation
				if err := json.Unmarshal(v, &c); err != nil {
					s.logger.Warnw("Повреждённая запись истории пропущена", "key", string(k), "error", err)
					return nil
				}
				out = append(out, &c)
				return nil
			}); err != nil {
				return err
			}
		}
		if sb := tx.Bucket(bucketSettings); sb != nil {
			currentID = string(sb.Get(keyCurrent))
		}
		return nil
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "reading history")
	}
	return out, currentID, nil
}

// SaveTheme сохраняет выбор темы оформления.
func (s *Store) SaveTheme(theme string) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		sb, err := tx.CreateBucketIfNotExists(bucketSettings)
		if err != nil {
			return errors.Wrap(err, "creating settings bucket")
		}
		return errors.Wrap(sb.Put(keyTheme, []byte(theme)), "writing theme")
	})
}

// LoadTheme возвращает сохранённую тему, пустую строку если её нет.
func (s *Store) LoadTheme() (string, error) {
	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	var theme string
	err = db.View(func(tx *bolt.Tx) error {
		if sb := tx.Bucket(bucketSettings); sb != nil {
			theme = string(sb.Get(keyTheme))
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "reading theme")
	}
	return theme, nil
}
