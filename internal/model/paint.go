package model

// Paint is a paint can definition. Team paints carry a distinct blu
// color, plain paints reuse the red one.
type Paint struct {
	ID   int
	Name string
	Red  int
	Blu  int
}

// Tint returns the normalized paint color for the given team.
func (p *Paint) Tint(team Team) Tint {
	if team == TeamBlu {
		return ColorToTint(p.Blu)
	}
	return ColorToTint(p.Red)
}

// IsTeamColored reports whether the paint has a distinct blu variant.
func (p *Paint) IsTeamColored() bool {
	return p.Red != p.Blu
}

// PaintList holds every paint can, keyed by its red color value. The
// color value doubles as the paint id carried in presets.
var PaintList = map[int]*Paint{}

func init() {
	plain := func(color int, name string) {
		PaintList[color] = &Paint{ID: color, Name: name, Red: color, Blu: color}
	}
	teamed := func(red, blu int, name string) {
		PaintList[red] = &Paint{ID: red, Name: name, Red: red, Blu: blu}
	}

	plain(7511618, "Indubitably Green")
	plain(4345659, "Zepheniah's Greed")
	plain(5322826, "Noble Hatter's Violet")
	plain(14204632, "Color No. 216-190-216")
	plain(8208497, "A Deep Commitment to Purple")
	plain(13595446, "Mann Co. Orange")
	plain(10843461, "Muskelmannbraun")
	plain(12955537, "Peculiarly Drab Tincture")
	plain(6901050, "Radigan Conagher Brown")
	plain(8154199, "Ye Olde Rustic Colour")
	plain(15185211, "Australium Gold")
	plain(8289918, "Aged Moustache Grey")
	plain(15132390, "An Extraordinary Abundance of Tinge")
	plain(1315860, "A Distinctive Lack of Hue")
	plain(16738740, "Pink as Hell")
	plain(3100495, "A Color Similar to Slate")
	plain(8421376, "Drably Olive")
	plain(3329330, "The Bitter Taste of Defeat and Lime")
	plain(15787660, "The Color of a Gentlemann's Business Pants")
	plain(15308410, "Dark Salmon Injustice")
	plain(12377523, "A Mann's Mint")
	plain(2960676, "After Eight")

	teamed(12073019, 5801378, "Team Spirit")
	teamed(4732984, 3686984, "Operator's Overalls")
	teamed(11049612, 8626083, "Waterlogged Lab Coat")
	teamed(3874595, 1581885, "Balaclavas Are Forever")
	teamed(6637376, 2636109, "An Air of Debonair")
	teamed(8400928, 2452877, "The Value of Teamwork")
	teamed(12807213, 12091445, "Cream Spirit")
}

// GetPaint resolves a paint id, or false for unknown ids.
func GetPaint(id int) (*Paint, bool) {
	p, ok := PaintList[id]
	return p, ok
}
