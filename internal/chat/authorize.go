package chat

import "context"

// Membership answers the room membership predicates. Implementations return
// ErrNotFound when the group or session does not exist.
type Membership interface {
	IsGroupMember(ctx context.Context, groupID, userID uint) (bool, error)
	IsSessionParticipantOrOrganizer(ctx context.Context, sessionID, userID uint) (bool, error)
}

// Authorize evaluates the membership predicate of t for userID. It is called
// on every join and every send; membership is never cached.
func Authorize(ctx context.Context, m Membership, t Target, userID uint) error {
	var (
		ok  bool
		err error
	)
	switch t.Kind {
	case KindGroup:
		ok, err = m.IsGroupMember(ctx, t.ID, userID)
	case KindSession:
		ok, err = m.IsSessionParticipantOrOrganizer(ctx, t.ID, userID)
	default:
		return invalid("unknown room kind")
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}
