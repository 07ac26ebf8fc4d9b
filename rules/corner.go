package rules

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/nstehr/saltbot/saltbot-core/model"
)

var (
	// ErrNoMatch means a feature-layer query found no cells of the sought
	// value. The step yields a no-op and the scheduler window retries.
	ErrNoMatch = errors.New("no matching cells")
	// ErrIllegalAction means a rule produced a call the host does not
	// currently accept.
	ErrIllegalAction = errors.New("action not available")
)

// DetectCorner classifies the base as top-left when the mean row of owner's
// minimap cells is at or above the horizontal midline.
func DetectCorner(minimap model.Layer, owner int) (topLeft bool, err error) {
	mean, ok := minimap.MeanRow(owner)
	if !ok {
		return false, fmt.Errorf("detect corner: owner %d: %w", owner, ErrNoMatch)
	}
	return mean <= float64(minimap.Rows)/2, nil
}

// Transform applies offset toward the map interior: added for a top-left
// base, subtracted otherwise. Transforming with one orientation and then the
// other returns the original point.
func Transform(p, offset model.Point, topLeft bool) model.Point {
	if !topLeft {
		return model.Point{X: p.X - offset.X, Y: p.Y - offset.Y}
	}
	return p.Add(offset)
}

// placementOffset draws a random supply-structure offset in
// [-spread, spread] per axis with negative draws floored to zero, so the
// result never lands up or left of the anchor. draw selects the stream.
func placementOffset(seed, draw uint64, spread int) model.Point {
	if spread <= 0 {
		return model.Point{}
	}
	r := rand.New(rand.NewPCG(seed, draw))
	dx := r.IntN(2*spread+1) - spread
	dy := r.IntN(2*spread+1) - spread
	return model.Point{X: max(0, dx), Y: max(0, dy)}
}
