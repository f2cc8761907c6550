package compliance

import "fmt"

// =============================================================================
// AUDIT NAMING HELPERS - Defensive display names for reports and alerts
// =============================================================================
// Reference data is deleted over time while readings and responses live
// forever. Audits of deleted entities must stay viewable, so every lookup
// here substitutes a placeholder instead of failing.

func deletedLabel(id string) string {
	return fmt.Sprintf("ID: %s (deleted)", id)
}

// FacilityName resolves a facility's display name.
func FacilityName(snap *Snapshot, id string) string {
	if fac, ok := snap.FacilityByID(id); ok {
		return fac.Name
	}
	return deletedLabel(id)
}

// UserName resolves a user's display name.
func UserName(snap *Snapshot, id string) string {
	if u, ok := snap.UserByID(id); ok {
		return u.Name
	}
	return deletedLabel(id)
}

// MenuName resolves a menu's display name.
func MenuName(snap *Snapshot, id string) string {
	if m, ok := snap.MenuByID(id); ok {
		return m.Name
	}
	return deletedLabel(id)
}

// FridgeName resolves a refrigerator's display name.
func FridgeName(snap *Snapshot, id string) string {
	if f, ok := snap.RefrigeratorByID(id); ok {
		return f.Name
	}
	return deletedLabel(id)
}

// FormTitle resolves a checklist template's title.
func FormTitle(snap *Snapshot, id string) string {
	if f, ok := snap.FormByID(id); ok {
		return f.Title
	}
	return deletedLabel(id)
}

// TargetName resolves the display name for a reading target.
func TargetName(snap *Snapshot, kind TargetKind, id string) string {
	switch kind {
	case KindRefrigerator:
		return FridgeName(snap, id)
	case KindMenu:
		return MenuName(snap, id)
	default:
		return deletedLabel(id)
	}
}

// ResourceName resolves the display name for an assignment resource.
func ResourceName(snap *Snapshot, rt ResourceType, id string) string {
	switch rt {
	case ResourceForm:
		return FormTitle(snap, id)
	case ResourceMenu:
		return MenuName(snap, id)
	default:
		return deletedLabel(id)
	}
}
