package pipeline

const defaultSplit = 0.8

// Split keeps row order: the first ratio of rows train, the rest test.
// A ratio outside (0, 1) falls back to 0.8.
func Split(X [][]float64, y []float64, ratio float64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	split := splitIndex(len(X), ratio)
	for i := range X {
		if i < split {
			trainX = append(trainX, X[i])
			trainY = append(trainY, y[i])
		} else {
			testX = append(testX, X[i])
			testY = append(testY, y[i])
		}
	}
	return trainX, trainY, testX, testY
}

// splitIndex is the number of leading rows that go to training.
func splitIndex(rows int, ratio float64) int {
	if ratio <= 0 || ratio >= 1 {
		ratio = defaultSplit
	}
	return int(float64(rows) * ratio)
}
