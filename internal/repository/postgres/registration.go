package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/database"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// RegistrationRepository implements repository.RegistrationRepository.
type RegistrationRepository struct {
	db database.DBTX
}

const registrationColumns = `
	id, uuid, event_id, first_name, last_name, email, quantity, escorts,
	booking_state, booking_type, member_id, form_data, checkout_completed,
	cart_uuid, order_uuid, date_added, confirmed_on, unsubscribed_on, updated_at`

// SumQuantity returns the summed quantity of matching registrations, 0 when
// none match.
func (r *RegistrationRepository) SumQuantity(ctx context.Context, eventID string, states []model.BookingState, onlyCompleted bool) (int, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM registrations
		WHERE event_id = $1 AND booking_state = ANY($2)`
	if onlyCompleted {
		query += ` AND checkout_completed = TRUE`
	}

	var total int64
	if err := r.db.QueryRow(ctx, query, eventID, statesToStrings(states)).Scan(&total); err != nil {
		return 0, apperrors.Storage("sum registrations", err)
	}
	return int(total), nil
}

// Create inserts a registration and sets its numeric ID.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	formData, err := marshalFormData(reg.FormData)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx,
		`INSERT INTO registrations (
			uuid, event_id, first_name, last_name, email, quantity, escorts,
			booking_state, booking_type, member_id, form_data, checkout_completed,
			cart_uuid, order_uuid, date_added, confirmed_on, unsubscribed_on, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`,
		reg.UUID, reg.EventID, reg.FirstName, reg.LastName, reg.Email, reg.Quantity, reg.Escorts,
		string(reg.BookingState), string(reg.BookingType), reg.MemberID, formData, reg.CheckoutCompleted,
		reg.CartUUID, reg.OrderUUID, reg.DateAdded, reg.ConfirmedOn, reg.UnsubscribedOn, reg.UpdatedAt,
	).Scan(&reg.ID)
	if err != nil {
		return apperrors.Storage("insert registration", err)
	}
	return nil
}

// Update writes every mutable column of reg, matched by UUID.
func (r *RegistrationRepository) Update(ctx context.Context, reg *model.Registration) error {
	formData, err := marshalFormData(reg.FormData)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE registrations SET
			first_name = $2, last_name = $3, email = $4, quantity = $5, escorts = $6,
			booking_state = $7, booking_type = $8, member_id = $9, form_data = $10,
			checkout_completed = $11, cart_uuid = $12, order_uuid = $13,
			date_added = $14, confirmed_on = $15, unsubscribed_on = $16, updated_at = $17
		WHERE uuid = $1`,
		reg.UUID, reg.FirstName, reg.LastName, reg.Email, reg.Quantity, reg.Escorts,
		string(reg.BookingState), string(reg.BookingType), reg.MemberID, formData,
		reg.CheckoutCompleted, reg.CartUUID, reg.OrderUUID,
		reg.DateAdded, reg.ConfirmedOn, reg.UnsubscribedOn, reg.UpdatedAt,
	)
	if err != nil {
		return apperrors.Storage("update registration", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.RegistrationNotFound(reg.UUID)
	}
	return nil
}

// GetByUUID returns a registration or ErrRegistrationNotFound.
func (r *RegistrationRepository) GetByUUID(ctx context.Context, uuid string) (*model.Registration, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE uuid = $1`, uuid)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.RegistrationNotFound(uuid)
		}
		return nil, apperrors.Storage("get registration", err)
	}
	return reg, nil
}

// DeleteByUUID removes a registration. Deleting a missing row is not an error.
func (r *RegistrationRepository) DeleteByUUID(ctx context.Context, uuid string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM registrations WHERE uuid = $1`, uuid); err != nil {
		return apperrors.Storage("delete registration", err)
	}
	return nil
}

// EmailExists reports whether any registration of the event uses email.
// The comparison is case-insensitive and ignores surrounding whitespace.
func (r *RegistrationRepository) EmailExists(ctx context.Context, eventID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM registrations WHERE event_id = $1 AND LOWER(TRIM(email)) = LOWER(TRIM($2)))`,
		eventID, email,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Storage("check duplicate email", err)
	}
	return exists, nil
}

// ListByEvent returns all registrations for an event, oldest first.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1
		 ORDER BY date_added ASC, id ASC`, eventID)
	if err != nil {
		return nil, apperrors.Storage("list registrations", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, apperrors.Storage("scan registration", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("list registrations", err)
	}
	return regs, nil
}

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg                       model.Registration
		state, bookingType        string
		formData                  []byte
		confirmedOn, unsubscribed *time.Time
	)
	err := row.Scan(
		&reg.ID, &reg.UUID, &reg.EventID, &reg.FirstName, &reg.LastName, &reg.Email,
		&reg.Quantity, &reg.Escorts, &state, &bookingType, &reg.MemberID, &formData,
		&reg.CheckoutCompleted, &reg.CartUUID, &reg.OrderUUID, &reg.DateAdded,
		&confirmedOn, &unsubscribed, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.BookingState = model.BookingState(state)
	reg.BookingType = model.BookingType(bookingType)
	reg.ConfirmedOn = confirmedOn
	reg.UnsubscribedOn = unsubscribed
	if len(formData) > 0 {
		if err := json.Unmarshal(formData, &reg.FormData); err != nil {
			return nil, fmt.Errorf("decode form data: %w", err)
		}
	}
	return &reg, nil
}

func marshalFormData(data map[string]string) ([]byte, error) {
	if data == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode form data: %w", err)
	}
	return b, nil
}
