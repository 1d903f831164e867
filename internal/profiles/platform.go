package profiles

import (
	"sort"

	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
)

// ResolvePlatform returns the platform shared by the profiles. When profiles
// span several platforms the one with the smallest membership code is chosen
// and every distinct platform is returned so the caller can report it.
func ResolvePlatform(profiles []models.GameProfile) (enums.Platform, []enums.Platform, error) {
	seen := map[enums.Platform]struct{}{}
	var distinct []enums.Platform
	for _, p := range profiles {
		if _, ok := seen[p.Platform]; ok {
			continue
		}
		seen[p.Platform] = struct{}{}
		distinct = append(distinct, p.Platform)
	}
	if len(distinct) == 0 {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no game profile to resolve platform from")
	}
	sort.Slice(distinct, func(i, j int) bool {
		return distinct[i].MembershipCode() < distinct[j].MembershipCode()
	})
	return distinct[0], distinct, nil
}
