// Package catalog centralizes the collection naming convention. Every place
// that derives a collection name from a catalog goes through Name so the
// suffix convention lives in exactly one spot.
package catalog

import "fmt"

// Role selects which of a catalog's collections a name refers to.
type Role int

// Collection roles of a catalog.
const (
	// Primary is the alert collection itself.
	Primary Role = iota
	// Auxiliary is the sibling history/crossmatch collection.
	Auxiliary
	// Cutouts is the sibling image-blob collection.
	Cutouts
)

// FiltersCollection stores user-submitted filter definitions.
const FiltersCollection = "filters"

// Name returns the collection name for a catalog in the given role.
func Name(catalog string, role Role) string {
	switch role {
	case Auxiliary:
		return fmt.Sprintf("%s_aux", catalog)
	case Cutouts:
		return fmt.Sprintf("%s_cutouts", catalog)
	default:
		return fmt.Sprintf("%s_alerts", catalog)
	}
}
