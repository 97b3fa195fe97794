package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/database"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// CalendarRepository implements repository.CalendarRepository.
type CalendarRepository struct {
	db database.DBTX
}

// Create inserts a calendar.
func (r *CalendarRepository) Create(ctx context.Context, c *model.Calendar) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO calendars (id, title, calculate_total_from) VALUES ($1, $2, $3)`,
		c.ID, c.Title, statesToStrings(c.CalculateTotalFrom),
	)
	if err != nil {
		return apperrors.Storage("insert calendar", err)
	}
	return nil
}

// GetByID returns a calendar or ErrNotFound.
func (r *CalendarRepository) GetByID(ctx context.Context, id string) (*model.Calendar, error) {
	var (
		c      model.Calendar
		states []string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, title, calculate_total_from FROM calendars WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &states)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("calendar", id)
		}
		return nil, apperrors.Storage("get calendar", err)
	}
	c.CalculateTotalFrom = stringsToStates(states)
	return &c, nil
}

// EventRepository implements repository.EventRepository.
type EventRepository struct {
	db database.DBTX
}

const eventColumns = `
	e.id, e.alias, e.title, e.calendar_id, e.published, e.start_date,
	e.bookable, e.booking_start_date, e.booking_end_date,
	e.booking_max, e.min_members, e.max_escorts_per_member,
	e.max_quantity_per_registration, e.max_items_per_cart,
	e.waiting_list_enabled, e.waiting_list_limit, e.booking_state,
	e.allow_duplicate_email, e.enable_unsubscription, e.unsubscribe_limit_days,
	e.unsubscribe_limit_at, e.enable_booking_notification, e.booking_notifications,
	e.enable_unsubscribe_notification, e.unsubscribe_notifications,
	e.created_at, e.updated_at,
	c.id, c.title, c.calculate_total_from`

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.EventConfig) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (
			id, alias, title, calendar_id, published, start_date,
			bookable, booking_start_date, booking_end_date,
			booking_max, min_members, max_escorts_per_member,
			max_quantity_per_registration, max_items_per_cart,
			waiting_list_enabled, waiting_list_limit, booking_state,
			allow_duplicate_email, enable_unsubscription, unsubscribe_limit_days,
			unsubscribe_limit_at, enable_booking_notification, booking_notifications,
			enable_unsubscribe_notification, unsubscribe_notifications,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`,
		e.ID, e.Alias, e.Title, e.CalendarID, e.Published, nullTime(e.StartDate),
		e.Bookable, nullTime(e.BookingStartDate), nullTime(e.BookingEndDate),
		e.BookingMax, e.MinMembers, e.MaxEscortsPerMember,
		e.MaxQuantityPerRegistration, e.MaxItemsPerCart,
		e.WaitingList.Enabled, e.WaitingList.Limit, string(e.BookingState),
		e.AllowDuplicateEmail, e.EnableUnsubscription, e.UnsubscribeLimitDays,
		nullTime(e.UnsubscribeLimitAt), e.EnableBookingNotification, nonNil(e.BookingNotifications),
		e.EnableUnsubscribeNotification, nonNil(e.UnsubscribeNotifications),
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return apperrors.Storage("insert event", err)
	}
	return nil
}

// List returns all events ordered by start date.
func (r *EventRepository) List(ctx context.Context) ([]model.EventConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events e LEFT JOIN calendars c ON c.id = e.calendar_id
		 ORDER BY e.start_date ASC NULLS LAST, e.id ASC`,
	)
	if err != nil {
		return nil, apperrors.Storage("list events", err)
	}
	defer rows.Close()

	var events []model.EventConfig
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, apperrors.Storage("scan event", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("list events", err)
	}
	return events, nil
}

// GetByID returns a single event with its calendar, or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.EventConfig, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+`
		 FROM events e LEFT JOIN calendars c ON c.id = e.calendar_id
		 WHERE e.id = $1`, id,
	)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("event", id)
		}
		return nil, apperrors.Storage("get event", err)
	}
	return e, nil
}

// Lock acquires an exclusive row-level lock on the event.
//
// SELECT … FOR UPDATE blocks every other transaction asking for the same
// lock until this one commits or rolls back, so concurrent admit-then-insert
// sequences for one event run one at a time.
func (r *EventRepository) Lock(ctx context.Context, id string) error {
	var locked string
	err := r.db.QueryRow(ctx,
		`SELECT id FROM events WHERE id = $1 FOR UPDATE`, id,
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("event", id)
		}
		return apperrors.Storage("lock event row", err)
	}
	return nil
}

func scanEvent(row rowScanner) (*model.EventConfig, error) {
	var (
		e                                   model.EventConfig
		startDate, bookingStart, bookingEnd *time.Time
		unsubscribeLimitAt                  *time.Time
		bookingState                        string
		calID, calTitle                     *string
		calStates                           []string
	)
	err := row.Scan(
		&e.ID, &e.Alias, &e.Title, &e.CalendarID, &e.Published, &startDate,
		&e.Bookable, &bookingStart, &bookingEnd,
		&e.BookingMax, &e.MinMembers, &e.MaxEscortsPerMember,
		&e.MaxQuantityPerRegistration, &e.MaxItemsPerCart,
		&e.WaitingList.Enabled, &e.WaitingList.Limit, &bookingState,
		&e.AllowDuplicateEmail, &e.EnableUnsubscription, &e.UnsubscribeLimitDays,
		&unsubscribeLimitAt, &e.EnableBookingNotification, &e.BookingNotifications,
		&e.EnableUnsubscribeNotification, &e.UnsubscribeNotifications,
		&e.CreatedAt, &e.UpdatedAt,
		&calID, &calTitle, &calStates,
	)
	if err != nil {
		return nil, err
	}
	e.StartDate = fromNullTime(startDate)
	e.BookingStartDate = fromNullTime(bookingStart)
	e.BookingEndDate = fromNullTime(bookingEnd)
	e.UnsubscribeLimitAt = fromNullTime(unsubscribeLimitAt)
	e.BookingState = model.BookingState(bookingState)
	if calID != nil {
		e.Calendar = &model.Calendar{ID: *calID, CalculateTotalFrom: stringsToStates(calStates)}
		if calTitle != nil {
			e.Calendar.Title = *calTitle
		}
	}
	return &e, nil
}

func statesToStrings(states []model.BookingState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func stringsToStates(raw []string) []model.BookingState {
	out := make([]model.BookingState, len(raw))
	for i, s := range raw {
		out[i] = model.BookingState(s)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
