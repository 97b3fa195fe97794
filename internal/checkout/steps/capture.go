package steps

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/checkout"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
)

// Form fields with a meaning of their own. Every other submitted field is
// kept as free-form registration data.
const (
	FieldFirstName = "firstname"
	FieldLastName  = "lastname"
	FieldEmail     = "email"
	FieldQuantity  = "quantity"
	FieldEscorts   = "escorts"

	// FieldFormSubmit names the submitted form; FieldRemove carries the
	// registration to drop from the cart.
	FieldFormSubmit = "FORM_SUBMIT"
	FieldRemove     = "registration_uuid"
	FormRemove      = "remove_registration"
)

// Candidate is one line item of a submission before it is persisted.
type Candidate struct {
	FirstName string `validate:"required,max=255"`
	LastName  string `validate:"required,max=255"`
	Email     string `validate:"required,email,max=255"`
	Quantity  int
	Escorts   int
	Fields    map[string]string

	rawQuantity string
	rawEscorts  string
}

// Submission is the batch handed to submit validators. Validators may
// rewrite candidates in place.
type Submission struct {
	Event      *model.EventConfig
	Request    *checkout.Request
	Store      repository.Store
	Candidates []Candidate
}

// Seats sums the quantities of all candidates.
func (s *Submission) Seats() int {
	var n int
	for _, c := range s.Candidates {
		n += c.Quantity
	}
	return n
}

// SubmitValidator rejects a submission by returning an error.
type SubmitValidator func(ctx context.Context, sub *Submission) error

// DefaultValidators returns the built-in validators in the order they run.
func DefaultValidators(v *validator.Validate) []SubmitValidator {
	return []SubmitValidator{
		ValidateFields(v),
		ValidateEmail,
		ValidateEscorts,
		ValidateQuantity,
	}
}

var duplicateSuffix = regexp.MustCompile(`^(.+)_duplicate_([0-9]+)$`)

// splitFieldsets turns a flat form into one field set per line item. Fields
// named "<field>_duplicate_<n>" belong to the n-th duplicated set; plain
// fields form the first set.
func splitFieldsets(form map[string]string) []map[string]string {
	base := make(map[string]string)
	dups := make(map[int]map[string]string)
	for key, value := range form {
		if key == FieldFormSubmit || key == FieldRemove {
			continue
		}
		m := duplicateSuffix.FindStringSubmatch(key)
		if m == nil {
			base[key] = value
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			base[key] = value
			continue
		}
		if dups[n] == nil {
			dups[n] = make(map[string]string)
		}
		dups[n][m[1]] = value
	}

	var sets []map[string]string
	if len(base) > 0 {
		sets = append(sets, base)
	}
	for _, n := range slices.Sorted(maps.Keys(dups)) {
		sets = append(sets, dups[n])
	}
	return sets
}

// candidatesFromForm builds the line items of a submission. An empty or non
// numeric quantity means one seat.
func candidatesFromForm(form map[string]string) ([]Candidate, error) {
	sets := splitFieldsets(form)
	if len(sets) == 0 {
		return nil, apperrors.InvalidInput("no registration data submitted")
	}
	out := make([]Candidate, 0, len(sets))
	for _, set := range sets {
		c := Candidate{
			FirstName:   strings.TrimSpace(set[FieldFirstName]),
			LastName:    strings.TrimSpace(set[FieldLastName]),
			Email:       strings.ToLower(strings.TrimSpace(set[FieldEmail])),
			Fields:      set,
			rawQuantity: strings.TrimSpace(set[FieldQuantity]),
			rawEscorts:  strings.TrimSpace(set[FieldEscorts]),
		}
		c.Quantity = 1
		if q, err := strconv.Atoi(c.rawQuantity); err == nil {
			c.Quantity = q
		}
		out = append(out, c)
	}
	return out, nil
}

// ValidateFields checks names and email with struct tags.
func ValidateFields(v *validator.Validate) SubmitValidator {
	return func(_ context.Context, sub *Submission) error {
		for i := range sub.Candidates {
			if err := v.Struct(&sub.Candidates[i]); err != nil {
				return apperrors.InvalidInput(fieldMessage(err))
			}
		}
		return nil
	}
}

func fieldMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid registration data"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", strings.ToLower(fe.Field()))
	case "email":
		return "please enter a valid email address"
	default:
		return fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
	}
}

// ValidateEmail normalises emails and, unless the event allows duplicates,
// rejects an email already registered for the event.
func ValidateEmail(ctx context.Context, sub *Submission) error {
	seen := make(map[string]bool)
	for i := range sub.Candidates {
		email := strings.ToLower(strings.TrimSpace(sub.Candidates[i].Email))
		sub.Candidates[i].Email = email
		if email == "" || sub.Event.AllowDuplicateEmail {
			continue
		}
		if seen[email] {
			return apperrors.InvalidInput(fmt.Sprintf("%s is listed more than once", email))
		}
		seen[email] = true
		exists, err := sub.Store.Registrations().EmailExists(ctx, sub.Event.ID, email)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.InvalidInput(fmt.Sprintf("%s has already subscribed to this event", email))
		}
	}
	return nil
}

// ValidateEscorts bounds escorts to 0..maxEscortsPerMember.
func ValidateEscorts(_ context.Context, sub *Submission) error {
	for i := range sub.Candidates {
		c := &sub.Candidates[i]
		if c.rawEscorts == "" {
			c.Escorts = 0
			continue
		}
		n, err := strconv.Atoi(c.rawEscorts)
		if err != nil || n < 0 {
			return apperrors.InvalidInput("escorts: please enter a positive integer")
		}
		if n > sub.Event.MaxEscortsPerMember {
			return apperrors.InvalidInput(fmt.Sprintf("at most %d escorts are possible", sub.Event.MaxEscortsPerMember))
		}
		c.Escorts = n
	}
	return nil
}

// ValidateQuantity enforces 1 <= quantity <= maxQuantityPerRegistration.
func ValidateQuantity(_ context.Context, sub *Submission) error {
	limit := sub.Event.MaxQuantity()
	for _, c := range sub.Candidates {
		if c.rawQuantity != "" {
			if n, err := strconv.Atoi(c.rawQuantity); err != nil || n < 1 {
				return apperrors.InvalidInput("quantity: please enter a positive integer")
			}
		}
		if c.Quantity < 1 {
			return apperrors.InvalidInput("quantity: please enter a positive integer")
		}
		if c.Quantity > limit {
			if limit == 1 {
				return apperrors.InvalidInput("at most 1 seat per registration is possible")
			}
			return apperrors.InvalidInput(fmt.Sprintf("at most %d seats per registration are possible", limit))
		}
	}
	return nil
}
