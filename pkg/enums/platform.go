package enums

import (
	"slices"
	"strconv"
	"strings"
)

// Platform is the game membership platform a profile belongs to.
type Platform string

const (
	PlatformXbox      Platform = "XBOX"
	PlatformPSN       Platform = "PSN"
	PlatformSteam     Platform = "STEAM"
	PlatformBattleNet Platform = "BATTLENET"
)

// validPlatforms is ordered by the membership code the game API assigns.
var validPlatforms = set[Platform]{
	PlatformXbox,
	PlatformPSN,
	PlatformSteam,
	PlatformBattleNet,
}

func (p Platform) String() string {
	return string(p)
}

func (p Platform) IsValid() bool {
	return p.MembershipCode() > 0
}

// MembershipCode returns the numeric membership type, or 0 when unknown.
func (p Platform) MembershipCode() int {
	return slices.Index(validPlatforms, p) + 1
}

// ParsePlatform accepts either the name or the numeric membership code.
func ParsePlatform(value string) (Platform, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if code, err := strconv.Atoi(trimmed); err == nil && code >= 1 && code <= len(validPlatforms) {
		return validPlatforms[code-1], nil
	}
	return validPlatforms.parse(trimmed, "platform")
}
