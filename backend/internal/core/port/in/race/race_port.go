package race

import (
	"context"

	"marble-race/backend/internal/core/domain/entity"
)

// RacePort определяет интерфейс управления заездом для входящих адаптеров.
// Методы потокобезопасны: команды применяются в начале следующего тика.
type RacePort interface {
	// SetInput сохраняет состояние клавиш для следующего тика
	SetInput(input entity.InputState)

	// RequestRestart просит перезапустить заезд (из playing или ended)
	RequestRestart()

	// Snapshot возвращает последнее опубликованное состояние сессии
	Snapshot() entity.Snapshot

	// Course возвращает описание текущей трассы
	Course() entity.CourseView
}

// ResultsQuery - чтение сохраненных результатов
type ResultsQuery interface {
	BestResults(ctx context.Context, limit int) ([]*entity.RaceResult, error)
	RecentResults(ctx context.Context, limit int) ([]*entity.RaceResult, error)
}
