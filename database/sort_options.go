package database

const (
	SortDateDesc = "desc"
	SortDateAsc  = "asc"
	SortRandom   = "random"
)

const DefaultSortOrder = SortRandom

// IsValidSortOrder checks if a string is a valid sort order constant
func IsValidSortOrder(order string) bool {
	switch order {
	case SortDateDesc, SortDateAsc, SortRandom:
		return true
	default:
		return false
	}
}

const (
	// PlatformFilterAll disables platform filtering
	PlatformFilterAll = "all"
	// PlatformFilterNone matches rows whose platform is null, empty or the
	// literal "Unknown"
	PlatformFilterNone = "none"
)
