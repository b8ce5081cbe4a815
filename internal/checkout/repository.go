package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-gateway/internal/storage"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

// Repository persists checkout sessions in the state store.
type Repository interface {
	Find(ctx context.Context, clientID, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
}

type repository struct {
	store storage.Store
	ttl   time.Duration
}

// NewRepository builds a session repository whose entries expire after ttl of inactivity.
func NewRepository(store storage.Store, ttl time.Duration) (Repository, error) {
	if store == nil {
		return nil, fmt.Errorf("state store required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &repository{store: store, ttl: ttl}, nil
}

func (r *repository) Find(ctx context.Context, clientID, id string) (*Session, error) {
	var session Session
	if err := storage.GetJSON(ctx, r.store, storage.CheckoutKey(clientID, id), &session); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	return &session, nil
}

func (r *repository) Save(ctx context.Context, session *Session) error {
	if err := storage.SetJSON(ctx, r.store, storage.CheckoutKey(session.ClientID, session.ID), session, r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist checkout session")
	}
	return nil
}
