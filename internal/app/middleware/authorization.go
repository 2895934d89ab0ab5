package middleware

import (
	"context"
	"errors"
	"strings"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/queries"
)

var ErrUnauthenticated = errors.New("middleware: authentication required")

// ActorMessage is implemented by commands and queries issued on behalf of a user.
type ActorMessage interface {
	ActorID() string
}

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RequireActor rejects actor messages that carry no actor id.
type RequireActor struct{}

func (RequireActor) Authorize(_ context.Context, message any) error {
	actor, ok := message.(ActorMessage)
	if !ok {
		return nil
	}
	if strings.TrimSpace(actor.ActorID()) == "" {
		return ErrUnauthenticated
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
