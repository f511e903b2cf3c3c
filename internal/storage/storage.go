package storage

import (
	"context"

	"ccauth/internal/model"
)

// Storage defines a sink for decoded events.
type Storage interface {
	PutDecodedEvents(ctx context.Context, events []model.DecodedEvent) error
}
