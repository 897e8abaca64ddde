package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/google/uuid"
)

// Actor is an authenticated principal together with the location scope of
// its account. Users have no scope.
type Actor struct {
	models.Principal
	Name     string
	City     string
	State    string
	District string
}

// InCity reports whether city matches the actor's city, ignoring case
func (a Actor) InCity(city string) bool {
	return a.City != "" && strings.EqualFold(strings.TrimSpace(a.City), strings.TrimSpace(city))
}

// InScope reports whether city and state both match the actor's scope
func (a Actor) InScope(city, state string) bool {
	return a.InCity(city) && strings.EqualFold(strings.TrimSpace(a.State), strings.TrimSpace(state))
}

// Is reports whether the actor is the account with id, in role r
func (a Actor) Is(r models.Role, id *uuid.UUID) bool {
	return a.Role == r && id != nil && *id == a.ID
}

// ActorResolver loads the scope of a principal
type ActorResolver struct {
	users       store.UserStore
	admins      store.AdminStore
	departments store.DepartmentStore
}

// NewActorResolver creates a resolver
func NewActorResolver(users store.UserStore, admins store.AdminStore, departments store.DepartmentStore) *ActorResolver {
	return &ActorResolver{users: users, admins: admins, departments: departments}
}

// Resolve returns the actor for p. A principal whose account no longer
// exists is unauthorized.
func (r *ActorResolver) Resolve(ctx context.Context, p models.Principal) (*Actor, error) {
	actor := &Actor{Principal: p}
	switch p.Role {
	case models.RoleUser:
		u, err := r.users.GetUser(ctx, p.ID)
		if err != nil {
			return nil, accountErr(err)
		}
		actor.Name = u.Name
	case models.RoleAdmin:
		a, err := r.admins.GetAdmin(ctx, p.ID)
		if err != nil {
			return nil, accountErr(err)
		}
		actor.Name, actor.City, actor.State = a.Name, a.AssignedCity, a.AssignedState
	case models.RoleDepartment:
		d, err := r.departments.GetDepartment(ctx, p.ID)
		if err != nil {
			return nil, accountErr(err)
		}
		actor.Name, actor.City, actor.State, actor.District = d.Name, d.AssignedCity, d.AssignedState, d.AssignedDistrict
	default:
		return nil, newError(ErrUnauthorized, "Unknown role")
	}
	return actor, nil
}

func accountErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return newError(ErrUnauthorized, "Account not found")
	}
	return fmt.Errorf("load account: %w", err)
}
