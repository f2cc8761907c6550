/*
snapshot.go - Immutable record set the engine evaluates over

PURPOSE:
  Every engine operation takes a Snapshot: the persisted records as they
  were at evaluation time. The engine never mutates a Snapshot and never
  reaches past it for more data, which is what makes resolution a pure
  function of (actor, date, snapshot).

LOOKUPS:
  Snapshot carries defensive lookup helpers. Reference data may have been
  deleted since a historical record was written; lookups therefore return
  ok flags or fall back to documented defaults (checkpoint catalogs) so
  compliance history stays inspectable as master data evolves.

SEE ALSO:
  - engine.go: the resolution operations consuming a Snapshot
  - naming.go: display-name helpers layered on these lookups
*/
package compliance

// Snapshot bundles the record slices an evaluation reads. Callers assemble
// it from persistence and must not mutate it while the engine runs.
type Snapshot struct {
	Assignments   []Assignment
	Readings      []Reading
	FormResponses []FormResponse
	Holidays      []Holiday
	Exceptions    []FacilityException

	Users             []User
	Facilities        []Facility
	FacilityTypes     []FacilityType
	Refrigerators     []Refrigerator
	RefrigeratorTypes []RefrigeratorType
	CookingMethods    []CookingMethod
	Menus             []Menu
	Forms             []FormTemplate
}

// =============================================================================
// REFERENCE LOOKUPS
// =============================================================================

func (s *Snapshot) UserByID(id string) (User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

func (s *Snapshot) FacilityByID(id string) (Facility, bool) {
	for _, f := range s.Facilities {
		if f.ID == id {
			return f, true
		}
	}
	return Facility{}, false
}

func (s *Snapshot) RefrigeratorByID(id string) (Refrigerator, bool) {
	for _, f := range s.Refrigerators {
		if f.ID == id {
			return f, true
		}
	}
	return Refrigerator{}, false
}

func (s *Snapshot) MenuByID(id string) (Menu, bool) {
	for _, m := range s.Menus {
		if m.ID == id {
			return m, true
		}
	}
	return Menu{}, false
}

func (s *Snapshot) FormByID(id string) (FormTemplate, bool) {
	for _, f := range s.Forms {
		if f.ID == id {
			return f, true
		}
	}
	return FormTemplate{}, false
}

// FacilityRefrigerators returns every fridge physically linked to the
// facility. These carry the implicit daily obligation.
func (s *Snapshot) FacilityRefrigerators(facilityID string) []Refrigerator {
	var out []Refrigerator
	for _, f := range s.Refrigerators {
		if f.FacilityID == facilityID {
			out = append(out, f)
		}
	}
	return out
}

// ActorFor resolves the evaluation subject for a user: their facility and
// the facility's type. Missing links simply leave fields empty, which the
// target resolver treats as "never in scope".
func (s *Snapshot) ActorFor(userID string) Actor {
	actor := Actor{UserID: userID}
	u, ok := s.UserByID(userID)
	if !ok || u.FacilityID == "" {
		return actor
	}
	actor.FacilityID = u.FacilityID
	if fac, ok := s.FacilityByID(u.FacilityID); ok {
		actor.FacilityTypeID = fac.TypeID
	}
	return actor
}

// =============================================================================
// CHECKPOINT RESOLUTION - With documented default bands
// =============================================================================

// FridgeCheckpoints returns the tolerance bands for a fridge via its type
// name. A fridge without a type, or a type without checkpoints, falls back
// to the default fridge band so monitoring never silently disappears.
func (s *Snapshot) FridgeCheckpoints(fridge Refrigerator) []Band {
	for _, t := range s.RefrigeratorTypes {
		if t.Name == fridge.TypeName && len(t.Checkpoints) > 0 {
			return normalizeBands(t.Checkpoints, DefaultFridgeBand)
		}
	}
	return []Band{DefaultFridgeBand}
}

// MenuCheckpoints returns the tolerance bands for menus cooked at the
// facility, via its cooking method. Falls back to the default cooking band.
func (s *Snapshot) MenuCheckpoints(facilityID string) []Band {
	fac, ok := s.FacilityByID(facilityID)
	if ok && fac.CookingMethodID != "" {
		for _, m := range s.CookingMethods {
			if m.ID == fac.CookingMethodID && len(m.Checkpoints) > 0 {
				return normalizeBands(m.Checkpoints, DefaultMenuBand)
			}
		}
	}
	return []Band{DefaultMenuBand}
}

// BandFor resolves the band a committed reading should be judged against.
func (s *Snapshot) BandFor(kind TargetKind, targetID, facilityID, checkpointName string) Band {
	var bands []Band
	switch kind {
	case KindRefrigerator:
		if fridge, ok := s.RefrigeratorByID(targetID); ok {
			bands = s.FridgeCheckpoints(fridge)
		} else {
			bands = []Band{DefaultFridgeBand}
		}
	case KindMenu:
		bands = s.MenuCheckpoints(facilityID)
	}
	for _, b := range bands {
		if b.Name == checkpointName {
			return b
		}
	}
	if kind == KindMenu {
		return DefaultMenuBand
	}
	return DefaultFridgeBand
}
