package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/vmihailenco/msgpack/v5"

	"marble-race/backend/internal/core/domain/entity"
	"marble-race/backend/internal/core/port/out/results"
)

// ResultEntity - префикс ключей результатов заездов
const ResultEntity = "RESULT"

// OpenBadger открывает базу. Пустой path - база в памяти.
func OpenBadger(path string, logger zerolog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logger})
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть badger (%q): %w", path, err)
	}
	return db, nil
}

// badgerLogger направляет логи badger в zerolog
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(strings.TrimSpace(format), args...)
}

// BadgerResults хранит результаты заездов в badger.
// Ключ - RESULT/<ksuid>, ksuid упорядочен по времени финиша.
type BadgerResults struct {
	entityPrefix []byte
	db           *badger.DB
}

var _ results.ResultsRepository = (*BadgerResults)(nil)

// NewBadgerResults создает хранилище поверх открытой базы
func NewBadgerResults(db *badger.DB) *BadgerResults {
	return &BadgerResults{
		entityPrefix: []byte(ResultEntity + "/"),
		db:           db,
	}
}

func (b *BadgerResults) buildKey(id string) []byte {
	return append(slices.Clone(b.entityPrefix), id...)
}

func (b *BadgerResults) buildValue(result *entity.RaceResult) ([]byte, error) {
	buf, err := msgpack.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("ошибка кодирования результата: %w", err)
	}
	return buf, nil
}

func decodeResult(val []byte) (*entity.RaceResult, error) {
	var r entity.RaceResult
	if err := msgpack.Unmarshal(val, &r); err != nil {
		return nil, fmt.Errorf("ошибка декодирования результата: %w", err)
	}
	r.Seconds = r.Duration.Seconds()
	return &r, nil
}

// Save присваивает результату ID и сохраняет его
func (b *BadgerResults) Save(ctx context.Context, result *entity.RaceResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	finishedAt := result.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	id, err := ksuid.NewRandomWithTime(finishedAt)
	if err != nil {
		return fmt.Errorf("ошибка генерации ID результата: %w", err)
	}
	result.ID = id.String()
	result.Seconds = result.Duration.Seconds()

	buf, err := b.buildValue(result)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.buildKey(result.ID), buf)
	})
}

// Get возвращает результат по ID
func (b *BadgerResults) Get(ctx context.Context, id string) (*entity.RaceResult, error) {
	var result *entity.RaceResult

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.buildKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r, err := decodeResult(val)
			result = r
			return err
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", id, results.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения результата %s: %w", id, err)
	}

	return result, nil
}

// list обходит результаты в порядке ключей (reverse - от новых к старым)
func (b *BadgerResults) list(ctx context.Context, reverse bool, visit func(*entity.RaceResult) bool) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = reverse
		opts.Prefix = b.entityPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := b.entityPrefix
		if reverse {
			seek = append(slices.Clone(b.entityPrefix), 0xFF)
		}

		for it.Seek(seek); it.ValidForPrefix(b.entityPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var r *entity.RaceResult
			if err := it.Item().Value(func(val []byte) error {
				var err error
				r, err = decodeResult(val)
				return err
			}); err != nil {
				return err
			}

			if !visit(r) {
				return nil
			}
		}
		return nil
	})
}

// Best возвращает лучшие по времени результаты
func (b *BadgerResults) Best(ctx context.Context, numOfTraps, limit int) ([]*entity.RaceResult, error) {
	var list []*entity.RaceResult

	err := b.list(ctx, false, func(r *entity.RaceResult) bool {
		if numOfTraps <= 0 || r.NumOfTraps == numOfTraps {
			list = append(list, r)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения лучших результатов: %w", err)
	}

	slices.SortStableFunc(list, func(a, b *entity.RaceResult) int {
		switch {
		case a.Duration < b.Duration:
			return -1
		case a.Duration > b.Duration:
			return 1
		default:
			return 0
		}
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Recent возвращает последние результаты, новые первыми
func (b *BadgerResults) Recent(ctx context.Context, limit int) ([]*entity.RaceResult, error) {
	var list []*entity.RaceResult

	err := b.list(ctx, true, func(r *entity.RaceResult) bool {
		list = append(list, r)
		return limit <= 0 || len(list) < limit
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения последних результатов: %w", err)
	}

	return list, nil
}

// Close закрывает базу
func (b *BadgerResults) Close() error {
	return b.db.Close()
}
