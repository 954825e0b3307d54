package game

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrIllegalMove is recoverable. Boards surface it as a penalty reward in TakeAction.
	ErrIllegalMove = errors.New("illegal move")
	// ErrConfiguration aborts construction: unknown registry names, degenerate bounds, uninitialized models.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvariant is a logic error, such as an action outside the known action set.
	ErrInvariant = errors.New("invariant violation")
	// ErrSerialization is returned by every save/load path.
	ErrSerialization = errors.New("serialization failure")
)

type moveError struct {
	PlayerMove
	reason string
}

func (err moveError) Error() string {
	return fmt.Sprintf("Unable to make %v: %s", err.PlayerMove, err.reason)
}

func (err moveError) Unwrap() error { return ErrIllegalMove }

// IllegalMove builds an error describing why m could not be made. It matches ErrIllegalMove.
func IllegalMove(m PlayerMove, reason string) error {
	return errors.WithStack(moveError{PlayerMove: m, reason: reason})
}
