package service

import (
	"strings"

	"credentialwatch/internal/registry"
)

// locationPurpose is the registry's marker for a practice location address.
const locationPurpose = "LOCATION"

// SelectAddress picks the address used for the provider's location string.
// Tie-break rule: prefer the first address whose purpose is LOCATION, else
// the first address in registry order. Registry order is not stable across
// calls, which is why the purpose check comes first.
func SelectAddress(addresses []registry.Address) *registry.Address {
	if len(addresses) == 0 {
		return nil
	}
	for i := range addresses {
		if strings.EqualFold(addresses[i].Purpose, locationPurpose) {
			return &addresses[i]
		}
	}
	return &addresses[0]
}

// LocationOf renders an address as the "City, State" location string stored
// on the provider. Returns "" for a nil address.
func LocationOf(addr *registry.Address) string {
	if addr == nil {
		return ""
	}
	switch {
	case addr.City != "" && addr.State != "":
		return addr.City + ", " + addr.State
	case addr.City != "":
		return addr.City
	default:
		return addr.State
	}
}

// PrimarySpecialty returns the description of the taxonomy flagged primary.
// When none is flagged, the specialty is left unset rather than guessed from
// an arbitrary entry.
func PrimarySpecialty(taxonomies []registry.Taxonomy) string {
	for _, t := range taxonomies {
		if t.Primary {
			return t.Desc
		}
	}
	return ""
}
