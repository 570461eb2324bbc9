package habit

// Palette is the set of card colours.
type Palette struct {
	Skipped            string
	Completed          string
	Incomplete         string
	LastWeekIncomplete string
}

// CardColor picks the habit name colour. Falling behind last week wins over
// completing this week, which wins over the default.
func CardColor(p Palette, weeklyGoal, weekTicks int, lastWeekComplete bool) string {
	switch {
	case weeklyGoal > 0 && !lastWeekComplete:
		return p.LastWeekIncomplete
	case weeklyGoal > 0 && weekTicks >= weeklyGoal:
		return p.Completed
	default:
		return p.Incomplete
	}
}
