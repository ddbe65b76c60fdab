package rules

import "strings"

// Logical roles a rule can ask about without naming concrete classes.
const (
	RoleBuilder     = "builder"
	RoleHealer      = "healer"
	RoleInfiltrator = "infiltrator"
	RoleHeavy       = "heavy"
	RoleSkirmisher  = "skirmisher"
	RoleEscort      = "escort"
)

// classRoles is the static registry of class names to the roles they fill.
var classRoles = map[string][]string{
	"scout":    {RoleSkirmisher},
	"sniper":   {RoleSkirmisher},
	"soldier":  {RoleHeavy},
	"demoman":  {RoleHeavy},
	"medic":    {RoleHealer},
	"hwguy":    {RoleHeavy},
	"pyro":     {RoleHeavy, RoleSkirmisher},
	"spy":      {RoleInfiltrator},
	"engineer": {RoleBuilder},
	"civilian": {RoleEscort},
}

// RolesOf returns the roles filled by a class, matched case-insensitively.
func RolesOf(class string) []string {
	return classRoles[strings.ToLower(class)]
}

func classHasRole(class, role string) bool {
	for _, r := range RolesOf(class) {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
