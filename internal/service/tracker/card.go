package tracker

import (
	"context"
	"time"

	"habitweb/internal/habit"
	"habitweb/internal/model"
)

// CardStats is everything a habit card renders.
type CardStats struct {
	Habit            model.Habit
	Records          []model.CheckedRecord
	WeekTicks        int
	TotalTicks       int
	LastWeekComplete bool
	Priority         int
	Color            string
	SkippedToday     bool
}

// Card aggregates the stats of one habit over its records.
func Card(h model.Habit, records []model.CheckedRecord, days []time.Time, today time.Time, p habit.Palette) CardStats {
	week, total := habit.WeekTicks(records, today)
	lastWeek := habit.LastWeekCompletion(h, records, today)
	return CardStats{
		Habit:            h,
		Records:          records,
		WeekTicks:        week,
		TotalTicks:       total,
		LastWeekComplete: lastWeek,
		Priority:         habit.Priority(h, records, days),
		Color:            habit.CardColor(p, h.WeeklyGoal, week, lastWeek),
		SkippedToday:     habit.StateOn(records, today) == model.Skipped,
	}
}

// State returns the state stored for day.
func (c CardStats) State(day time.Time) model.TickState {
	return habit.StateOn(c.Records, day)
}

// Cards builds the stats of habits in one records query.
func (s *Service) Cards(ctx context.Context, userID int, habits []model.Habit, days []time.Time, p habit.Palette) ([]CardStats, error) {
	records, err := s.RecordsByHabit(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	cards := make([]CardStats, 0, len(habits))
	for _, h := range habits {
		cards = append(cards, Card(h, records[h.ID], days, today, p))
	}
	return cards, nil
}

// CardFor reloads one habit and its records.
func (s *Service) CardFor(ctx context.Context, userID, habitID int, days []time.Time, p habit.Palette) (*CardStats, error) {
	h, err := s.Habit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListByHabit(ctx, habitID)
	if err != nil {
		return nil, err
	}
	c := Card(*h, records, days, s.Today(), p)
	return &c, nil
}
