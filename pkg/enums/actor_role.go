package enums

// ActorRole is carried in access tokens.
type ActorRole string

const (
	ActorRoleClient  ActorRole = "client"
	ActorRoleBooster ActorRole = "booster"
	ActorRoleAdmin   ActorRole = "admin"
)

var validActorRoles = set[ActorRole]{ActorRoleClient, ActorRoleBooster, ActorRoleAdmin}

func (r ActorRole) IsValid() bool {
	return validActorRoles.has(r)
}

func ParseActorRole(value string) (ActorRole, error) {
	return validActorRoles.parse(value, "actor role")
}
