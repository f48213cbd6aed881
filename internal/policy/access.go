package policy

import (
	"context"

	murmur_errors "murmur-chat/pkg/errors"

	"github.com/google/uuid"
)

// BlockReader consumes the block-list owned by the identity service.
type BlockReader interface {
	HasBlocked(ctx context.Context, owner, target uuid.UUID) (bool, error)
}

// Guard gates message sends. Both the durable and the live path must pass
// through it; neither may bypass the other's check.
type Guard struct {
	blocks BlockReader
}

func NewGuard(blocks BlockReader) *Guard {
	return &Guard{blocks: blocks}
}

// CanSend returns ErrForbidden when the receiver's block list contains the
// sender. Pure check, no side effects.
func (g *Guard) CanSend(ctx context.Context, senderID, receiverID uuid.UUID) error {
	if g.blocks == nil {
		return murmur_errors.ErrForbidden
	}
	blocked, err := g.blocks.HasBlocked(ctx, receiverID, senderID)
	if err != nil {
		return err
	}
	if blocked {
		return murmur_errors.ErrForbidden
	}
	return nil
}
