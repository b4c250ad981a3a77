package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Seeyko/tomandrieu.com-sub000/internal/availability"
)

// ErrNotFound marks a lookup that matched no row.
var ErrNotFound = errors.New("not found")

// RulesByDay returns the active availability rules for a weekday, ordered
// by start time. Implements availability.RuleSource.
func (a *App) RulesByDay(ctx context.Context, dayOfWeek int) ([]availability.Rule, error) {
	q := `SELECT id, day_of_week, start_time, end_time, timezone, active, created_at, updated_at
	      FROM availability_rules
	      WHERE day_of_week=$1 AND active=true
	      ORDER BY start_time`
	rows, err := a.DB.Query(ctx, q, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (a *App) ListRules(ctx context.Context) ([]availability.Rule, error) {
	q := `SELECT id, day_of_week, start_time, end_time, timezone, active, created_at, updated_at
	      FROM availability_rules
	      ORDER BY day_of_week, start_time`
	rows, err := a.DB.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows pgx.Rows) ([]availability.Rule, error) {
	var out []availability.Rule
	for rows.Next() {
		var r availability.Rule
		if err := rows.Scan(&r.ID, &r.DayOfWeek, &r.StartTime, &r.EndTime,
			&r.Timezone, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (a *App) InsertRule(ctx context.Context, r *availability.Rule) error {
	now := time.Now().UTC()
	q := `INSERT INTO availability_rules
	      (day_of_week, start_time, end_time, timezone, active, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`
	err := a.DB.QueryRow(ctx, q, r.DayOfWeek, r.StartTime, r.EndTime, r.Timezone, r.Active, now, now).Scan(&r.ID)
	if err != nil {
		return err
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

func (a *App) UpdateRule(ctx context.Context, r *availability.Rule) error {
	now := time.Now().UTC()
	q := `UPDATE availability_rules
	      SET day_of_week=$1, start_time=$2, end_time=$3, timezone=$4, active=$5, updated_at=$6
	      WHERE id=$7 RETURNING id`
	err := a.DB.QueryRow(ctx, q, r.DayOfWeek, r.StartTime, r.EndTime, r.Timezone, r.Active, now, r.ID).Scan(&r.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	r.UpdatedAt = now
	return nil
}

func (a *App) DeleteRule(ctx context.Context, id int) error {
	res, err := a.DB.Exec(ctx, `DELETE FROM availability_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BlocksForDay implements availability.BlockSource.
func (a *App) BlocksForDay(ctx context.Context, date string) ([]availability.BlockedDate, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, nil
	}
	q := `SELECT id, date, start_time, end_time, reason, created_at
	      FROM blocked_dates WHERE date=$1 ORDER BY id`
	rows, err := a.DB.Query(ctx, q, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBlocks(rows)
}

func (a *App) ListBlockedDates(ctx context.Context) ([]availability.BlockedDate, error) {
	q := `SELECT id, date, start_time, end_time, reason, created_at
	      FROM blocked_dates ORDER BY date, id`
	rows, err := a.DB.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBlocks(rows)
}

func scanBlocks(rows pgx.Rows) ([]availability.BlockedDate, error) {
	var out []availability.BlockedDate
	for rows.Next() {
		var b availability.BlockedDate
		var date time.Time
		var start, end *string
		if err := rows.Scan(&b.ID, &date, &start, &end, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Date = date.Format("2006-01-02")
		if start != nil {
			b.StartTime = *start
		}
		if end != nil {
			b.EndTime = *end
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (a *App) InsertBlockedDate(ctx context.Context, b *availability.BlockedDate) error {
	var start, end *string
	if b.StartTime != "" {
		start = &b.StartTime
	}
	if b.EndTime != "" {
		end = &b.EndTime
	}
	day, err := time.Parse("2006-01-02", b.Date)
	if err != nil {
		return fmt.Errorf("invalid blocked date %q: %w", b.Date, err)
	}
	now := time.Now().UTC()
	q := `INSERT INTO blocked_dates (date, start_time, end_time, reason, created_at)
	      VALUES ($1,$2,$3,$4,$5) RETURNING id`
	if err := a.DB.QueryRow(ctx, q, day, start, end, b.Reason, now).Scan(&b.ID); err != nil {
		return err
	}
	b.CreatedAt = now
	return nil
}

func (a *App) DeleteBlockedDate(ctx context.Context, id int) error {
	res, err := a.DB.Exec(ctx, `DELETE FROM blocked_dates WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BookingsOverlappingDay implements availability.BookingSource: every
// pending or confirmed booking touching the day, plus busy events from a
// connected external calendar expressed as synthetic confirmed bookings.
// The merge happens here so the engine never sees calendar wire formats.
func (a *App) BookingsOverlappingDay(ctx context.Context, dayStart, dayEnd time.Time) ([]availability.Booking, error) {
	q := `SELECT id, name, email, start_at_utc, end_at_utc, status, notes, created_at
	      FROM bookings
	      WHERE status IN ('pending','confirmed') AND start_at_utc < $2 AND end_at_utc > $1
	      ORDER BY start_at_utc`
	rows, err := a.DB.Query(ctx, q, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out, err := scanBookings(rows)
	if err != nil {
		return nil, err
	}

	busy, err := a.calendarBusy(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("calendar busy fetch: %w", err)
	}
	return append(out, busy...), nil
}

func (a *App) ListBookings(ctx context.Context, from, to time.Time, status string, ranged bool) ([]availability.Booking, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch {
	case ranged && status != "":
		q := `SELECT id, name, email, start_at_utc, end_at_utc, status, notes, created_at
		      FROM bookings
		      WHERE start_at_utc >= $1 AND start_at_utc < $2 AND status=$3
		      ORDER BY start_at_utc`
		rows, err = a.DB.Query(ctx, q, from, to, status)
	case ranged:
		q := `SELECT id, name, email, start_at_utc, end_at_utc, status, notes, created_at
		      FROM bookings
		      WHERE start_at_utc >= $1 AND start_at_utc < $2
		      ORDER BY start_at_utc`
		rows, err = a.DB.Query(ctx, q, from, to)
	case status != "":
		q := `SELECT id, name, email, start_at_utc, end_at_utc, status, notes, created_at
		      FROM bookings WHERE status=$1 ORDER BY start_at_utc`
		rows, err = a.DB.Query(ctx, q, status)
	default:
		q := `SELECT id, name, email, start_at_utc, end_at_utc, status, notes, created_at
		      FROM bookings ORDER BY start_at_utc`
		rows, err = a.DB.Query(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func scanBookings(rows pgx.Rows) ([]availability.Booking, error) {
	var out []availability.Booking
	for rows.Next() {
		var b availability.Booking
		if err := rows.Scan(&b.ID, &b.Name, &b.Email, &b.StartAt, &b.EndAt,
			&b.Status, &b.Notes, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Policy implements availability.PolicySource. A missing settings row is
// not an error: defaults apply, field by field.
func (a *App) Policy(ctx context.Context) (availability.Policy, error) {
	q := `SELECT min_notice_hours, buffer_minutes, max_advance_days, allowed_durations
	      FROM booking_settings ORDER BY id LIMIT 1`
	var p availability.Policy
	var durations []int32
	err := a.DB.QueryRow(ctx, q).Scan(&p.MinNoticeHours, &p.BufferMinutes, &p.MaxAdvanceDays, &durations)
	if errors.Is(err, pgx.ErrNoRows) {
		return availability.DefaultPolicy(), nil
	}
	if err != nil {
		return availability.Policy{}, err
	}
	for _, d := range durations {
		p.AllowedDurations = append(p.AllowedDurations, int(d))
	}
	return withPolicyDefaults(p), nil
}

func withPolicyDefaults(p availability.Policy) availability.Policy {
	def := availability.DefaultPolicy()
	if p.MinNoticeHours <= 0 {
		p.MinNoticeHours = def.MinNoticeHours
	}
	if p.BufferMinutes < 0 {
		p.BufferMinutes = def.BufferMinutes
	}
	if p.MaxAdvanceDays <= 0 {
		p.MaxAdvanceDays = def.MaxAdvanceDays
	}
	if len(p.AllowedDurations) == 0 {
		p.AllowedDurations = def.AllowedDurations
	}
	return p
}

func (a *App) UpsertPolicy(ctx context.Context, p availability.Policy) (availability.Policy, error) {
	p = withPolicyDefaults(p)
	durations := make([]int32, 0, len(p.AllowedDurations))
	for _, d := range p.AllowedDurations {
		durations = append(durations, int32(d))
	}
	q := `INSERT INTO booking_settings (id, min_notice_hours, buffer_minutes, max_advance_days, allowed_durations, updated_at)
	      VALUES (1, $1, $2, $3, $4, now())
	      ON CONFLICT (id) DO UPDATE
	      SET min_notice_hours=$1, buffer_minutes=$2, max_advance_days=$3, allowed_durations=$4, updated_at=now()`
	_, err := a.DB.Exec(ctx, q, p.MinNoticeHours, p.BufferMinutes, p.MaxAdvanceDays, durations)
	if err != nil {
		return availability.Policy{}, err
	}
	return p, nil
}
