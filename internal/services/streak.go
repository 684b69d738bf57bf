package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
	"github.com/AnshRaj112/nutrilog-backend/internal/metrics"
	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CreditOutcome reports whether a (user, day) pair was new to the ledger.
type CreditOutcome int

const (
	Admitted CreditOutcome = iota + 1
	AlreadyCredited
)

func (o CreditOutcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case AlreadyCredited:
		return "already_credited"
	default:
		return "unknown"
	}
}

type StreakService struct {
	store *database.Store
}

func NewStreakService(store *database.Store) *StreakService {
	return &StreakService{store: store}
}

// AdmitCredit records that userID logged something on day. The unique key on
// (user_id, local_date) decides; a conflicting insert affects no rows and is
// reported as AlreadyCredited, never as an error.
func (s *StreakService) AdmitCredit(ctx context.Context, tx DBTX, userID string, day models.CalendarDay) (CreditOutcome, error) {
	res, err := tx.ExecContext(ctx, s.store.Rebind(`
		INSERT INTO streak_credits (user_id, local_date, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, local_date) DO NOTHING
	`), userID, day, nowUTC())
	if err != nil {
		return 0, fmt.Errorf("admit streak credit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("admit streak credit: %w", err)
	}
	if n == 0 {
		return AlreadyCredited, nil
	}
	return Admitted, nil
}

// ApplyCredit advances the counter for a newly admitted day and returns the new
// state. Call it only after AdmitCredit returned Admitted, in the same tx.
//
// A day earlier than the last credited one leaves the counter untouched: a
// backfilled day is in the ledger but does not rebuild the run around it.
func (s *StreakService) ApplyCredit(ctx context.Context, tx DBTX, userID string, day models.CalendarDay) (models.StreakState, error) {
	now := nowUTC()

	res, err := tx.ExecContext(ctx, s.store.Rebind(`
		INSERT INTO streaks (user_id, current_streak, best_streak, last_credited_date, updated_at)
		VALUES ($1, 1, 1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`), userID, day, now)
	if err != nil {
		return models.StreakState{}, fmt.Errorf("create streak: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.StreakState{}, fmt.Errorf("create streak: %w", err)
	} else if n == 1 {
		return models.StreakState{UserID: userID, Current: 1, Best: 1, LastCreditedDay: day, UpdatedAt: now}, nil
	}

	state := models.StreakState{UserID: userID}
	err = tx.QueryRowContext(ctx, s.store.Rebind(`
		SELECT current_streak, best_streak, last_credited_date, updated_at
		FROM streaks WHERE user_id = $1`+s.store.ForUpdate()),
		userID,
	).Scan(&state.Current, &state.Best, &state.LastCreditedDay, &state.UpdatedAt)
	if err != nil {
		return models.StreakState{}, fmt.Errorf("load streak: %w", err)
	}

	next, changed := nextStreak(state, day)
	if !changed {
		return state, nil
	}
	next.UpdatedAt = now

	_, err = tx.ExecContext(ctx, s.store.Rebind(`
		UPDATE streaks
		SET current_streak = $2, best_streak = $3, last_credited_date = $4, updated_at = $5
		WHERE user_id = $1
	`), userID, next.Current, next.Best, next.LastCreditedDay, next.UpdatedAt)
	if err != nil {
		return models.StreakState{}, fmt.Errorf("update streak: %w", err)
	}
	return next, nil
}

// nextStreak is the pure transition of the counter for a credited day.
func nextStreak(state models.StreakState, day models.CalendarDay) (models.StreakState, bool) {
	last := state.LastCreditedDay
	if !last.IsZero() && !day.After(last) {
		return state, false
	}

	next := state
	if !last.IsZero() && day.Equal(last.AddDays(1)) {
		next.Current = state.Current + 1
	} else {
		next.Current = 1
	}
	if next.Current > next.Best {
		next.Best = next.Current
	}
	next.LastCreditedDay = day
	return next, true
}

// credit admits day and, when new, advances the counter. It returns the
// counter as it stands after the call, plus the ledger outcome.
func (s *StreakService) credit(ctx context.Context, tx DBTX, userID string, day models.CalendarDay) (models.StreakSummary, CreditOutcome, error) {
	outcome, err := s.AdmitCredit(ctx, tx, userID, day)
	if err != nil {
		metrics.RecordCredit("error")
		return models.StreakSummary{}, 0, err
	}
	metrics.RecordCredit(outcome.String())

	if outcome == AlreadyCredited {
		state, err := s.get(ctx, tx, userID)
		if err != nil {
			return models.StreakSummary{}, outcome, err
		}
		return state.Summary(), outcome, nil
	}

	state, err := s.ApplyCredit(ctx, tx, userID, day)
	if err != nil {
		return models.StreakSummary{}, outcome, err
	}
	return state.Summary(), outcome, nil
}

// CreditStreak credits day in its own transaction. Repeating it for the same
// (user, day) is a no-op that returns the current counter.
func (s *StreakService) CreditStreak(ctx context.Context, userID string, day models.CalendarDay) (models.StreakSummary, error) {
	tx, err := s.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.StreakSummary{}, fmt.Errorf("begin credit tx: %w", err)
	}
	defer tx.Rollback()

	summary, outcome, err := s.credit(ctx, tx, userID, day)
	if err != nil {
		return models.StreakSummary{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.StreakSummary{}, fmt.Errorf("commit credit tx: %w", err)
	}

	logging.Ctx(ctx).Debug().
		Str("user_id", userID).
		Str("day", day.String()).
		Str("outcome", outcome.String()).
		Int("current", summary.Current).
		Msg("Streak credited")
	return summary, nil
}

// Get returns the user's counter, or a zero state when nothing was credited yet.
func (s *StreakService) Get(ctx context.Context, userID string) (models.StreakState, error) {
	return s.get(ctx, s.store.DB, userID)
}

func (s *StreakService) get(ctx context.Context, q DBTX, userID string) (models.StreakState, error) {
	state, found, err := s.lookup(ctx, q, userID)
	if err != nil || !found {
		return models.StreakState{UserID: userID}, err
	}
	return state, nil
}

func (s *StreakService) lookup(ctx context.Context, q DBTX, userID string) (models.StreakState, bool, error) {
	state := models.StreakState{UserID: userID}
	err := q.QueryRowContext(ctx, s.store.Rebind(`
		SELECT current_streak, best_streak, last_credited_date, updated_at
		FROM streaks WHERE user_id = $1
	`), userID).Scan(&state.Current, &state.Best, &state.LastCreditedDay, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StreakState{}, false, nil
	}
	if err != nil {
		return models.StreakState{}, false, fmt.Errorf("get streak: %w", err)
	}
	return state, true, nil
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
