package nav

import (
	"fmt"
	"strings"
)

// AreaID identifies a nav area. Zero is reserved as the invalid sentinel and
// doubles as the "no parent" marker during path reconstruction.
type AreaID uint32

const InvalidAreaID AreaID = 0

// AreaAttr is a bitset of traversal hints painted onto a nav area.
type AreaAttr uint8

const AttrNone AreaAttr = 0

const (
	AttrCrouch AreaAttr = 1 << iota
	AttrJump
	AttrStop
	AttrDanger
	AttrBlocked
)

var attrNames = []struct {
	attr AreaAttr
	name string
}{
	{AttrCrouch, "crouch"},
	{AttrJump, "jump"},
	{AttrStop, "stop"},
	{AttrDanger, "danger"},
	{AttrBlocked, "blocked"},
}

func (a AreaAttr) Has(flag AreaAttr) bool { return a&flag != 0 }

func (a AreaAttr) String() string {
	if a == AttrNone {
		return "none"
	}
	var parts []string
	for _, n := range attrNames {
		if a.Has(n.attr) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseAttr maps a single attribute name (case-insensitive) to its flag.
func ParseAttr(name string) (AreaAttr, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "none" || name == "" {
		return AttrNone, nil
	}
	for _, n := range attrNames {
		if n.name == name {
			return n.attr, nil
		}
	}
	return AttrNone, fmt.Errorf("unknown area attribute %q", name)
}

// ConnType describes how a bot crosses a connection.
type ConnType uint8

const (
	ConnWalk ConnType = iota
	ConnJumpOneWay
	ConnJumpTwoWay
	ConnCrouchWalk
	ConnElevatorWait
	ConnElevatorRide
	ConnTeleporterEntrance
	ConnTeleporterExit
	ConnCustomNavAbility
)

var connTypeNames = [...]string{
	ConnWalk:               "walk",
	ConnJumpOneWay:         "jump_oneway",
	ConnJumpTwoWay:         "jump_twoway",
	ConnCrouchWalk:         "crouch_walk",
	ConnElevatorWait:       "elevator_wait",
	ConnElevatorRide:       "elevator_ride",
	ConnTeleporterEntrance: "teleporter_entrance",
	ConnTeleporterExit:     "teleporter_exit",
	ConnCustomNavAbility:   "custom_nav_ability",
}

func (c ConnType) String() string {
	if int(c) < len(connTypeNames) {
		return connTypeNames[c]
	}
	return fmt.Sprintf("conn(%d)", uint8(c))
}

func (c ConnType) MarshalText() ([]byte, error) {
	if int(c) >= len(connTypeNames) {
		return nil, fmt.Errorf("unknown connection type %d", uint8(c))
	}
	return []byte(connTypeNames[c]), nil
}

func (c *ConnType) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	if name == "" {
		*c = ConnWalk
		return nil
	}
	for i, n := range connTypeNames {
		if n == name {
			*c = ConnType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown connection type %q", name)
}

// Connection is a directed edge owned by its source area. A two-way link is
// two independent records, one per endpoint.
type Connection struct {
	To             AreaID
	Type           ConnType
	CostMultiplier float64
	// FromPoint and ToPoint are only meaningful when Explicit is set;
	// otherwise the area centers stand in.
	FromPoint Vec3
	ToPoint   Vec3
	Explicit  bool
}

// Area is a convex walkable region, the unit of pathfinding.
type Area struct {
	ID          AreaID
	Center      Vec3
	Attrs       AreaAttr
	Blocked     bool
	Connections []Connection
}

// IsBlocked reports whether the area is closed either by a runtime block or
// by its painted attribute.
func (a *Area) IsBlocked() bool {
	return a.Blocked || a.Attrs.Has(AttrBlocked)
}
