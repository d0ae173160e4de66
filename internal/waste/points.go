package waste

// Point awards for the gamification system.
const (
	PointsCorrectDisposal = 50

	bonusHighConfidence = 10
	bonusRecyclable     = 20
	bonusDifficult      = 30

	highConfidenceThreshold = 0.9
)

// CalculatePoints derives points earned for a scan. Bonuses are additive
// and independent; no cap is applied.
func CalculatePoints(confidence float64, recyclable bool, category Category) int {
	points := PointsCorrectDisposal
	if confidence >= highConfidenceThreshold {
		points += bonusHighConfidence
	}
	if recyclable {
		points += bonusRecyclable
	}
	if category == CategoryHazardous || category == CategoryEWaste {
		points += bonusDifficult
	}
	return points
}

// levelThresholds maps level to the minimum total points required, in
// ascending order.
var levelThresholds = []struct {
	Level  int
	Points int
}{
	{1, 0},
	{2, 200},
	{3, 500},
	{4, 1000},
	{5, 2000},
	{6, 5000},
	{7, 10000},
}

// LevelForPoints returns the level a points total corresponds to and, when
// a higher level exists, the points still missing to reach it.
func LevelForPoints(totalPoints int) (level int, nextLevelPoints int, hasNext bool) {
	level = 1
	for i, t := range levelThresholds {
		if totalPoints >= t.Points {
			level = t.Level
			if i+1 < len(levelThresholds) {
				nextLevelPoints = levelThresholds[i+1].Points - totalPoints
				hasNext = true
			} else {
				nextLevelPoints = 0
				hasNext = false
			}
		}
	}
	return level, nextLevelPoints, hasNext
}
