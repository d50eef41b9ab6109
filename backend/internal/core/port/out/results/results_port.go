package results

import (
	"context"
	"errors"

	"marble-race/backend/internal/core/domain/entity"
)

// ErrNotFound возвращается, когда результата с таким ID нет
var ErrNotFound = errors.New("результат не найден")

// ResultsRepository хранит итоги завершенных заездов
type ResultsRepository interface {
	// Save сохраняет результат и присваивает ему ID
	Save(ctx context.Context, result *entity.RaceResult) error

	// Get возвращает результат по ID
	Get(ctx context.Context, id string) (*entity.RaceResult, error)

	// Best возвращает до limit лучших результатов для трассы из numOfTraps ловушек.
	// numOfTraps <= 0 - по всем трассам.
	Best(ctx context.Context, numOfTraps, limit int) ([]*entity.RaceResult, error)

	// Recent возвращает до limit последних результатов, новые первыми
	Recent(ctx context.Context, limit int) ([]*entity.RaceResult, error)

	// Close закрывает хранилище
	Close() error
}
