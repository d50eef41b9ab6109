package service

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"marble-race/backend/internal/core/domain/entity"
)

var (
	// ErrEmptyPalette - нечего выбирать для ненулевого числа ловушек
	ErrEmptyPalette = errors.New("пустая палитра препятствий")

	// ErrInvalidTrapCount - отрицательное количество ловушек
	ErrInvalidTrapCount = errors.New("некорректное количество ловушек")
)

// LevelGenerator выбирает последовательность препятствий и кэширует результат.
//
// Сид используется только как ключ кэша: в генератор случайных чисел он не
// передается, поэтому содержимое трассы по сиду не воспроизводится.
type LevelGenerator struct {
	rng *rand.Rand

	cached      *entity.Level
	cachedN     int
	cachedSeed  float64
	cachedPal   []entity.ObstacleType
	generations int
}

// NewLevelGenerator создает генератор. rng == nil - случайный источник.
func NewLevelGenerator(rng *rand.Rand) *LevelGenerator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &LevelGenerator{rng: rng}
}

// Generate возвращает трассу из n ловушек, выбранных из palette.
// При тех же (n, palette, seed) возвращается тот же *Level.
func (g *LevelGenerator) Generate(n int, palette []entity.ObstacleType, seed float64) (*entity.Level, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTrapCount, n)
	}
	if n > 0 && len(palette) == 0 {
		return nil, ErrEmptyPalette
	}

	if g.cached != nil && g.cachedN == n && g.cachedSeed == seed && slices.Equal(g.cachedPal, palette) {
		return g.cached, nil
	}

	traps := make([]entity.ObstacleType, n)
	for i := range traps {
		traps[i] = palette[g.rng.IntN(len(palette))]
	}

	g.cached = entity.NewLevel(traps, seed)
	g.cachedN = n
	g.cachedSeed = seed
	g.cachedPal = slices.Clone(palette)
	g.generations++

	return g.cached, nil
}

// Generations возвращает, сколько раз трасса пересчитывалась
func (g *LevelGenerator) Generations() int {
	return g.generations
}

// Rand возвращает источник случайности генератора (для констант препятствий)
func (g *LevelGenerator) Rand() *rand.Rand {
	return g.rng
}
