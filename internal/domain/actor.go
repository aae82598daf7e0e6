package domain

// ActorType differentiates human callers from background jobs.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// Actor identifies who requested a mutation.
type Actor struct {
	Type ActorType
	ID   string
}

// UserActor builds an actor for an authenticated caller.
func UserActor(id string) Actor {
	return Actor{Type: ActorTypeUser, ID: id}
}

// SystemActor is used by sweeps and other scheduled mutations.
func SystemActor(job string) Actor {
	return Actor{Type: ActorTypeSystem, ID: job}
}
