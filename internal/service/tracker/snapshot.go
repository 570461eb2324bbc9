package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	mqcontracts "habitweb/contracts/mq"
	"habitweb/internal/habit"
	"habitweb/internal/model"
)

// Snapshot is the export/import document.
type Snapshot struct {
	ExportedAt time.Time       `json:"exported_at"`
	Lists      []SnapshotList  `json:"lists"`
	Habits     []SnapshotHabit `json:"habits"`
}

type SnapshotList struct {
	Name               string `json:"name"`
	EnableLetterFilter bool   `json:"enable_letter_filter"`
}

type SnapshotHabit struct {
	Name       string            `json:"name"`
	List       string            `json:"list,omitempty"`
	Star       bool              `json:"star"`
	Status     model.HabitStatus `json:"status"`
	WeeklyGoal int               `json:"weekly_goal"`
	Records    []SnapshotRecord  `json:"records"`
}

type SnapshotRecord struct {
	Day  string          `json:"day"` // YYYY-MM-DD
	Done model.TickState `json:"done"`
	Text string          `json:"text,omitempty"`
}

// Export collects the user's lists, habits and records.
func (s *Service) Export(ctx context.Context, userID int) (*Snapshot, error) {
	lists, err := s.Lists(ctx, userID)
	if err != nil {
		return nil, err
	}
	habits, err := s.Habits(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.RecordsByHabit(ctx, userID)
	if err != nil {
		return nil, err
	}

	listNames := make(map[int]string, len(lists))
	snap := &Snapshot{
		ExportedAt: s.now().UTC(),
		Lists:      make([]SnapshotList, 0, len(lists)),
		Habits:     make([]SnapshotHabit, 0, len(habits)),
	}
	for _, l := range lists {
		listNames[l.ID] = l.Name
		snap.Lists = append(snap.Lists, SnapshotList{Name: l.Name, EnableLetterFilter: l.EnableLetterFilter})
	}
	for _, h := range habits {
		sh := SnapshotHabit{
			Name:       h.Name,
			Star:       h.Star,
			Status:     h.Status,
			WeeklyGoal: h.WeeklyGoal,
			Records:    make([]SnapshotRecord, 0, len(records[h.ID])),
		}
		if h.ListID != nil {
			sh.List = listNames[*h.ListID]
		}
		for _, r := range records[h.ID] {
			sh.Records = append(sh.Records, SnapshotRecord{
				Day:  r.Day.Format(time.DateOnly),
				Done: r.Done,
				Text: r.Text,
			})
		}
		snap.Habits = append(snap.Habits, sh)
	}
	return snap, nil
}

// ImportResult counts what Import created.
type ImportResult struct {
	Lists   int
	Habits  int
	Records int
}

// Import merges a snapshot by name: missing lists and habits are created,
// records are written over the existing ones.
func (s *Service) Import(ctx context.Context, userID int, snap *Snapshot) (*ImportResult, error) {
	if snap == nil {
		return &ImportResult{}, nil
	}
	for _, sh := range snap.Habits {
		for _, r := range sh.Records {
			if _, err := time.Parse(time.DateOnly, r.Day); err != nil {
				return nil, fmt.Errorf("%w: habit %q: bad day %q", ErrInvalidSnapshot, sh.Name, r.Day)
			}
			if err := habit.ValidateNote(r.Text); err != nil {
				return nil, fmt.Errorf("habit %q on %s: %w", sh.Name, r.Day, err)
			}
		}
	}

	res := &ImportResult{}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		lists, err := s.Lists(ctx, userID)
		if err != nil {
			return err
		}
		listIDs := make(map[string]int, len(lists))
		for _, l := range lists {
			listIDs[l.Name] = l.ID
		}
		for _, sl := range snap.Lists {
			name := strings.TrimSpace(sl.Name)
			if name == "" {
				continue
			}
			if _, ok := listIDs[name]; ok {
				continue
			}
			l, err := s.AddList(ctx, userID, name)
			if err != nil {
				return err
			}
			if sl.EnableLetterFilter {
				if _, err := s.UpdateList(ctx, userID, l.ID, name, true); err != nil {
					return err
				}
			}
			listIDs[name] = l.ID
			res.Lists++
		}

		habits, err := s.Habits(ctx, userID)
		if err != nil {
			return err
		}
		habitIDs := make(map[string]int, len(habits))
		for _, h := range habits {
			habitIDs[h.Name] = h.ID
		}

		for _, sh := range snap.Habits {
			name := strings.TrimSpace(sh.Name)
			if name == "" || sh.Status == model.HabitSoftDeleted {
				continue
			}
			id, ok := habitIDs[name]
			if !ok {
				var listID *int
				if lid, found := listIDs[sh.List]; found && sh.List != "" {
					listID = &lid
				}
				h, err := s.AddHabit(ctx, userID, name, listID)
				if err != nil {
					return err
				}
				if _, err := s.UpdateHabit(ctx, userID, h.ID, HabitUpdate{Name: name, WeeklyGoal: sh.WeeklyGoal, ListID: listID}); err != nil {
					return err
				}
				if sh.Star {
					if err := s.habits.UpdateStar(ctx, userID, h.ID, true); err != nil {
						return err
					}
				}
				if sh.Status == model.HabitArchived {
					if err := s.habits.UpdateStatus(ctx, userID, h.ID, model.HabitArchived); err != nil {
						return err
					}
				}
				id = h.ID
				habitIDs[name] = id
				res.Habits++
			}

			for _, r := range sh.Records {
				day, _ := time.Parse(time.DateOnly, r.Day)
				text := r.Text
				if _, err := s.records.Upsert(ctx, id, day, r.Done, &text); err != nil {
					return fmt.Errorf("import record: %w", err)
				}
				res.Records++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Snapshot imported",
		zap.Int("user_id", userID),
		zap.Int("lists", res.Lists),
		zap.Int("habits", res.Habits),
		zap.Int("records", res.Records),
	)
	s.publish(ctx, mqcontracts.RoutingHabitImported, mqcontracts.HabitImportedPayload{
		UserID: userID,
		Habits: res.Habits,
		Lists:  res.Lists,
	})
	return res, nil
}
