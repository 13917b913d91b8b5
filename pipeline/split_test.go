package pipeline

import "testing"

func TestSplit(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}, {5}}
	y := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		name      string
		ratio     float64
		wantTrain int
		wantTest  int
	}{
		{name: "explicit ratio", ratio: 0.6, wantTrain: 3, wantTest: 2},
		{name: "zero falls back", ratio: 0, wantTrain: 4, wantTest: 1},
		{name: "one falls back", ratio: 1, wantTrain: 4, wantTest: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trainX, trainY, testX, testY := Split(X, y, tt.ratio)
			if len(trainX) != tt.wantTrain || len(trainY) != tt.wantTrain {
				t.Fatalf("train size = %d, want %d", len(trainX), tt.wantTrain)
			}
			if len(testX) != tt.wantTest || len(testY) != tt.wantTest {
				t.Fatalf("test size = %d, want %d", len(testX), tt.wantTest)
			}
			if trainY[0] != 1 || testY[len(testY)-1] != 5 {
				t.Fatalf("split must keep row order")
			}
		})
	}
}
