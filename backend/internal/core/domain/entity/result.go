package entity

import "time"

// RaceResult - итог завершенного заезда
type RaceResult struct {
	ID         string         `json:"id" msgpack:"id"`
	Duration   time.Duration  `json:"duration" msgpack:"duration"`
	Seconds    float64        `json:"seconds" msgpack:"-"`
	NumOfTraps int            `json:"num_of_traps" msgpack:"num_of_traps"`
	Traps      []ObstacleType `json:"traps" msgpack:"traps"`
	Seed       float64        `json:"seed" msgpack:"seed"`
	FinishedAt time.Time      `json:"finished_at" msgpack:"finished_at"`
}

// NewRaceResult фиксирует результат по автомату заезда и текущей трассе.
// ID присваивает хранилище.
func NewRaceResult(race *RaceState, level *Level) *RaceResult {
	traps := make([]ObstacleType, len(level.Traps))
	copy(traps, level.Traps)

	duration := race.Elapsed()
	return &RaceResult{
		Duration:   duration,
		Seconds:    duration.Seconds(),
		NumOfTraps: race.NumOfTraps(),
		Traps:      traps,
		Seed:       level.Seed,
		FinishedAt: race.EndTime(),
	}
}
