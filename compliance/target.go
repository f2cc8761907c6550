package compliance

// =============================================================================
// TARGET RESOLVER - Is an actor in an assignment's scope?
// =============================================================================

// Actor is the subject of a task resolution: a user together with the
// facility they are stationed at and that facility's type. Actors without a
// facility never match facility or facility-type scopes.
type Actor struct {
	UserID         string
	FacilityID     string
	FacilityTypeID string
}

// InScope reports whether the actor is covered by the assignment's scope.
// A facilityType scope applies transitively to every user stationed at a
// facility of that type.
func InScope(a Assignment, actor Actor) bool {
	switch a.TargetType {
	case TargetUser:
		return actor.UserID != "" && a.TargetID == actor.UserID
	case TargetFacility:
		return actor.FacilityID != "" && a.TargetID == actor.FacilityID
	case TargetFacilityType:
		return actor.FacilityTypeID != "" && a.TargetID == actor.FacilityTypeID
	default:
		return false
	}
}
