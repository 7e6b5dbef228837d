package appcontext

import "context"

type actorKey struct{}

// Actor identifies who performs an operation. Populated by auth middleware
// from JWT claims, or set to a system actor by background jobs.
type Actor struct {
	ID    string
	Name  string
	Roles []string
}

// SystemActor is used by seed scripts and scheduled jobs.
var SystemActor = Actor{ID: "system", Name: "system"}

// WithActor stores the acting user in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the acting user, or false if none is set.
func ActorFrom(ctx context.Context) (Actor, bool) {
	v, ok := ctx.Value(actorKey{}).(Actor)
	return v, ok
}

// ActorID returns the acting user's id or empty string.
func ActorID(ctx context.Context) string {
	if a, ok := ActorFrom(ctx); ok {
		return a.ID
	}
	return ""
}

// HasRole reports whether the actor carries the given role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
