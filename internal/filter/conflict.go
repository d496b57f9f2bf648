package filter

import "strings"

// equipConflicts lists regions that occupy other regions without
// sharing their name.
var equipConflicts = map[string][]string{
	"glasses":    {"face", "lenses"},
	"whole_head": {"hat", "face", "glasses"},
}

// HasConflict reports whether two equip region sets collide. Identical
// regions conflict, and the conflict table is checked both ways.
func HasConflict(regions1, regions2 []string) bool {
	for _, region1 := range regions1 {
		region1 = strings.ToLower(region1)
		for _, region2 := range regions2 {
			region2 = strings.ToLower(region2)

			if region1 == region2 {
				return true
			}

			for _, occupied := range equipConflicts[region1] {
				if occupied == region2 {
					return true
				}
			}
			for _, occupied := range equipConflicts[region2] {
				if occupied == region1 {
					return true
				}
			}
		}
	}
	return false
}
