package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nstehr/saltbot/saltbot-core/model"
)

// Profile names, one per agent version.
const (
	ProfileMineMinerals = "mine-minerals"
	ProfileBuildOrder   = "build-order"
	ProfileMacro        = "macro"
)

// Profile parameterizes one agent version. The compiler turns it into the
// rule set the engine runs.
type Profile struct {
	Name string `json:"name" yaml:"name"`
	// Scheduled enables the macro/build/micro round-robin. Without it the
	// agent stays in the build phase for the whole episode.
	Scheduled bool `json:"scheduled" yaml:"scheduled"`
	// Gateway extends the build order past the pylon.
	Gateway bool `json:"gateway" yaml:"gateway"`
	// Macro enables supply-aware probe and pylon production.
	Macro            bool        `json:"macro" yaml:"macro"`
	CountMax         int         `json:"count_max" yaml:"count_max"`
	ReserveThreshold int         `json:"reserve_threshold" yaml:"reserve_threshold"`
	PylonOffset      model.Point `json:"pylon_offset" yaml:"pylon_offset"`
	GatewayOffset    model.Point `json:"gateway_offset" yaml:"gateway_offset"`
	PlacementSpread  int         `json:"placement_spread" yaml:"placement_spread"`
	// DetectOwner is the ownership code name used to find the base on the
	// minimap.
	DetectOwner string `json:"detect_owner" yaml:"detect_owner"`
	Seed        uint64 `json:"seed" yaml:"seed"`
}

// DefaultProfile returns the most complete agent version.
func DefaultProfile() Profile {
	p, _ := ProfileByName(ProfileMacro)
	return p
}

// ProfileByName returns a built-in profile.
func ProfileByName(name string) (Profile, error) {
	base := Profile{
		CountMax:         DefaultCountMax,
		ReserveThreshold: 5,
		PylonOffset:      model.Point{X: 0, Y: 20},
		GatewayOffset:    model.Point{X: 10, Y: 5},
		PlacementSpread:  32,
		DetectOwner:      model.OwnerSelf,
		Seed:             1,
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProfileMineMinerals:
		base.Name = ProfileMineMinerals
	case ProfileBuildOrder:
		base.Name = ProfileBuildOrder
		base.Scheduled = true
		base.Gateway = true
	case ProfileMacro, "":
		base.Name = ProfileMacro
		base.Scheduled = true
		base.Gateway = true
		base.Macro = true
	default:
		return Profile{}, fmt.Errorf("unknown profile %q (have %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return base, nil
}

// ProfileNames lists the built-in profiles.
func ProfileNames() []string {
	return []string{ProfileMineMinerals, ProfileBuildOrder, ProfileMacro}
}

// Validate clamps parameters to their valid ranges.
func (p *Profile) Validate() {
	p.CountMax = clampInt(p.CountMax, 1, 1000)
	p.ReserveThreshold = clampInt(p.ReserveThreshold, 0, 200)
	p.PlacementSpread = clampInt(p.PlacementSpread, 0, 64)
	if !slices.Contains([]string{model.OwnerSelf, model.OwnerNeutral, model.OwnerHostile}, p.DetectOwner) {
		p.DetectOwner = model.OwnerSelf
	}
}

// clampInt restricts v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
