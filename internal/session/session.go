// Package session stores the typed checkout bag of a browsing session.
package session

import (
	"context"

	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// Store persists checkout sessions keyed by an opaque session id.
//
// Flash values live apart from the session bag: Destroy drops the bag but
// keeps pending flashes so a completion page can still read them once.
type Store interface {
	// Load returns the bag for id, or an empty bag when none exists.
	Load(ctx context.Context, id string) (model.Session, error)
	Save(ctx context.Context, id string, s model.Session) error
	Destroy(ctx context.Context, id string) error

	SetFlash(ctx context.Context, id, key string, value []byte) error
	// TakeFlash returns and removes a flash value; nil when absent.
	TakeFlash(ctx context.Context, id, key string) ([]byte, error)
}

// Flash keys.
const (
	FlashCheckoutCompleted = "checkout_completed"
	FlashMessage           = "message"
)
