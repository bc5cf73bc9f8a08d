package identity

import (
	"context"
	"errors"
)

// ErrMalformedID marks a user uid that is not a well-formed identifier. The
// caller distinguishes this from a lookup miss: malformed ids close the
// connection with 4001, missing ids with 4004.
var ErrMalformedID = errors.New("malformed user uid")

// Oracle answers whether a user identity exists.
type Oracle interface {
	Exists(ctx context.Context, userUID string) (bool, error)
}
