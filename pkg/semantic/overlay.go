package semantic

import "slices"

// Overlay is a Model that serves one unit from a fresh analysis and every
// other unit from its base. Building one costs a single unit analysis, so
// the coordinator can refresh the model after each plugin that changes text.
type Overlay struct {
	base Model
	info *UnitInfo
}

// NewOverlay layers info over base. Layering over an overlay of the same
// unit replaces it instead of stacking.
func NewOverlay(base Model, info *UnitInfo) *Overlay {
	if o, ok := base.(*Overlay); ok && o.info.ID == info.ID {
		base = o.base
	}
	return &Overlay{base: base, info: info}
}

// Base returns the model the overlay reads through to.
func (o *Overlay) Base() Model { return o.base }

// Overridden returns the unit analysis served by the overlay.
func (o *Overlay) Overridden() *UnitInfo { return o.info }

// Unit implements Model.
func (o *Overlay) Unit(id string) (*UnitInfo, bool) {
	if id == o.info.ID {
		return o.info, true
	}
	if o.base == nil {
		return nil, false
	}
	return o.base.Unit(id)
}

// ResolveModule implements Model.
func (o *Overlay) ResolveModule(from, spec string) (string, bool) {
	return resolveModule(from, spec, func(id string) bool {
		_, ok := o.Unit(id)
		return ok
	})
}

// IDs implements Model.
func (o *Overlay) IDs() []string {
	var ids []string
	if o.base != nil {
		ids = o.base.IDs()
	}
	if !slices.Contains(ids, o.info.ID) {
		ids = append(ids, o.info.ID)
	}
	return ids
}
