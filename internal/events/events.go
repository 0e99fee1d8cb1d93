// Package events delivers committed ledger events to external subscribers.
package events

import (
	"context"
	"errors"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
)

// Publisher delivers a ledger event.
type Publisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

// Multi fans the event out to every publisher.
type Multi []Publisher

// Publish delivers the event to all the publishers, even when some of them
// fail, and returns the joined errors.
func (m Multi) Publish(ctx context.Context, event domain.LedgerEvent) error {
	var errs []error

	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
