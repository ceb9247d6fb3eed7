package laundry

type Level struct {
	Level     int    `json:"level"`
	Name      string `json:"name"`
	MinPoints int64  `json:"minPoints"`
}

// пороги уровней по возрастанию
var levels = []Level{
	{1, "Bronze", 0},
	{2, "Silver", 500},
	{3, "Gold", 1500},
	{4, "Platinum", 3500},
	{5, "Diamond", 7500},
}

func Levels() []Level {
	return append([]Level(nil), levels...)
}

// Уровень по сумме заработанных баллов
func LevelFor(totalPoints int64) (level Level, pointsToNext int64) {
	level = levels[0]
	i := 0
	for n, l := range levels {
		if totalPoints >= l.MinPoints {
			level = l
			i = n
		}
	}
	if i+1 < len(levels) {
		pointsToNext = levels[i+1].MinPoints - totalPoints
	}
	return level, pointsToNext
}
