package action

import (
	"context"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/access"
)

// Session identifies the authenticated caller, as extracted from the JWT and
// the backing session row. Nil means no valid session.
type Session struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	Email     string
}

// ContextResolver supplies the per-request user-context snapshot.
type ContextResolver interface {
	ResolveForSession(ctx context.Context, userID, sessionID uuid.UUID) (*access.UserContext, error)
}

// Options configures the precondition pipeline of a wrapped action.
type Options struct {
	// RequireInternal re-checks IsInternal after context resolution.
	RequireInternal bool
	// Unauthenticated and Forbidden override the default typed failures.
	Unauthenticated func() *Error
	Forbidden       func() *Error
}

// Func is the business-logic shape wrapped by the guard.
type Func[I, O any] func(ctx context.Context, actor *access.UserContext, in I) (O, error)

// Wrap builds the guarded entry point: resolve the caller's context, enforce
// the privilege precondition, then delegate. Failures come back as typed
// results; nothing is thrown past this boundary and no global state is
// touched, so wrapped actions are reentrant per request.
func Wrap[I, O any](resolver ContextResolver, opts Options, fn Func[I, O]) func(ctx context.Context, sess *Session, in I) Result[O] {
	return func(ctx context.Context, sess *Session, in I) Result[O] {
		if sess == nil {
			if opts.Unauthenticated != nil {
				return Fail[O](opts.Unauthenticated())
			}
			return FailKind[O](KindUnauthenticated)
		}

		actor, err := resolver.ResolveForSession(ctx, sess.UserID, sess.SessionID)
		if err != nil {
			if KindOf(err) == KindNotFound {
				// The user behind the session no longer exists.
				if opts.Unauthenticated != nil {
					return Fail[O](opts.Unauthenticated())
				}
				return FailKind[O](KindUnauthenticated)
			}
			return Fail[O](err)
		}

		if opts.RequireInternal && !actor.IsInternal {
			if opts.Forbidden != nil {
				return Fail[O](opts.Forbidden())
			}
			return FailKind[O](KindForbidden)
		}

		out, err := fn(ctx, actor, in)
		if err != nil {
			return Fail[O](err)
		}
		return OK(out)
	}
}
