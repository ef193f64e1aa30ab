// Package identity carries the actor descriptor supplied by the authentication
// gateway. Nothing here authenticates; headers are trusted as given.
package identity

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"kmerzone/internal/core/server"

	"github.com/gofiber/fiber/v2"
)

// Headers set by the gateway in front of this service.
const (
	HeaderActorID      = "X-Actor-ID"
	HeaderActorRole    = "X-Actor-Role"
	HeaderActorName    = "X-Actor-Name"
	HeaderActorPremium = "X-Actor-Premium"
)

const localsKey = "actor"

// Role is the display role of an actor.
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleSeller        Role = "seller"
	RoleDepotAgent    Role = "depot-agent"
	RoleDeliveryAgent Role = "delivery-agent"
	RoleAdmin         Role = "admin"
	// RoleSystem is used for changes the service makes on its own behalf.
	RoleSystem Role = "system"
)

var (
	// ErrMissingActor is returned when the gateway headers are absent.
	ErrMissingActor = errors.New("actor identity is required")
	// ErrUnknownRole is returned for a role outside the closed set.
	ErrUnknownRole = errors.New("unknown actor role")
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleDepotAgent, RoleDeliveryAgent, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Actor identifies who triggered an operation.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role"`
	// Premium marks loyalty-programme customers. It is not persisted with audit entries.
	Premium bool `json:"-"`
}

// System is the actor used for automated changes.
var System = Actor{ID: "system", Name: "kmerzone", Role: RoleSystem}

// Label is the display form stored in logs, e.g. "seller:Boutique Akwa".
func (a Actor) Label() string {
	name := a.Name
	if name == "" {
		name = a.ID
	}
	return string(a.Role) + ":" + name
}

// Vendor is the vendor name a seller acts for: its display name, or its id when unnamed.
func (a Actor) Vendor() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// FromHeaders builds an Actor from the gateway headers.
func FromHeaders(get func(string) string) (Actor, error) {
	a := Actor{
		ID:   strings.TrimSpace(get(HeaderActorID)),
		Name: strings.TrimSpace(get(HeaderActorName)),
		Role: Role(strings.ToLower(strings.TrimSpace(get(HeaderActorRole)))),
	}
	if a.ID == "" || a.Role == "" {
		return Actor{}, ErrMissingActor
	}
	if !a.Role.Valid() || a.Role == RoleSystem {
		return Actor{}, ErrUnknownRole
	}
	if p := get(HeaderActorPremium); p != "" {
		a.Premium, _ = strconv.ParseBool(p)
	}
	return a, nil
}

// Middleware resolves the actor for every request and stores it in Locals.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := FromHeaders(func(k string) string { return c.Get(k) })
		if err != nil {
			return server.Fail(c, fiber.StatusUnauthorized, err.Error())
		}
		c.Locals(localsKey, actor)
		return c.Next()
	}
}

// FromCtx returns the actor stored by Middleware.
func FromCtx(c *fiber.Ctx) (Actor, bool) {
	a, ok := c.Locals(localsKey).(Actor)
	return a, ok
}

// RequireRole rejects requests whose actor holds none of roles.
func RequireRole(roles ...Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := FromCtx(c)
		if !ok {
			return server.Fail(c, fiber.StatusUnauthorized, ErrMissingActor.Error())
		}
		if !slices.Contains(roles, actor.Role) {
			return server.Fail(c, fiber.StatusForbidden, "role "+string(actor.Role)+" may not perform this action")
		}
		return c.Next()
	}
}
