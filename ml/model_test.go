package ml

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
)

func TestDecisionTreeFitPredict(t *testing.T) {
	X := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	y := []float64{0, 0, 1, 1}

	model := NewDecisionTree(Parameters{"max_depth": IntValue(2)})
	if err := model.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predictions, err := model.Predict([][]float64{{0.15, 0.15}, {0.85, 0.85}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(predictions, []float64{0, 1}) {
		t.Fatalf("unexpected predictions: %v", predictions)
	}
}

func TestDecisionTreeDeepTree(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}}
	y := []float64{0, 0, 1, 1, 0, 0, 1, 1}
	model := NewDecisionTree(Parameters{"max_depth": IntValue(4)})
	if err := model.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predictions, err := model.Predict(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	accuracy, _ := Accuracy{}.Evaluate(y, predictions)
	if accuracy != 1 {
		t.Fatalf("expected a perfect fit on training data, got %v (%v)", accuracy, predictions)
	}
}

func TestLinearRegressionFitPredict(t *testing.T) {
	X := [][]float64{{1, 0}, {2, 1}, {3, 0}, {4, 1}, {5, 3}}
	y := make([]float64, len(X))
	for i, row := range X {
		y[i] = 2*row[0] - 3*row[1] + 1
	}

	model := NewLinearRegression(nil)
	if err := model.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predictions, err := model.Predict([][]float64{{10, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(predictions[0]-15) > 1e-6 {
		t.Fatalf("expected 15, got %v", predictions[0])
	}

	params := model.GetParams()
	intercept, _ := params["intercept"].AsFloat()
	if math.Abs(intercept-1) > 1e-6 {
		t.Fatalf("expected intercept 1, got %v", intercept)
	}
}

func TestLinearRegressionWithoutIntercept(t *testing.T) {
	model := NewLinearRegression(Parameters{"fit_intercept": BoolValue(false)})
	if err := model.Fit([][]float64{{1}, {2}, {3}}, []float64{3, 6, 9}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predictions, err := model.Predict([][]float64{{4}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(predictions[0]-12) > 1e-9 {
		t.Fatalf("expected 12, got %v", predictions[0])
	}
}

func TestLinearRegressionRankDeficientDesign(t *testing.T) {
	// The last two columns always sum to the intercept column.
	X := [][]float64{
		{1, 1, 0}, {2, 0, 1}, {3, 1, 0}, {4, 0, 1}, {5, 1, 0}, {6, 0, 1},
	}
	y := make([]float64, len(X))
	for i, row := range X {
		y[i] = 2*row[0] + 3*row[1] + 1
	}

	model := NewLinearRegression(nil)
	if err := model.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predictions, err := model.Predict([][]float64{{10, 1, 0}, {10, 0, 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(predictions[0]-24) > 1e-6 || math.Abs(predictions[1]-21) > 1e-6 {
		t.Fatalf("expected [24 21], got %v", predictions)
	}
}

func TestLinearRegressionZeroDesign(t *testing.T) {
	model := NewLinearRegression(Parameters{"fit_intercept": BoolValue(false)})
	if err := model.Fit([][]float64{{0}, {0}}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for an all-zero design")
	}
}

func TestModelPredictBeforeFit(t *testing.T) {
	for _, name := range ModelNames {
		model, err := NewModel(name, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := model.Predict([][]float64{{1}}); !errors.Is(err, ErrNotFitted) {
			t.Fatalf("%s: expected ErrNotFitted, got %v", name, err)
		}
	}
}

func TestModelFitValidation(t *testing.T) {
	for _, name := range ModelNames {
		model, _ := NewModel(name, nil)
		if err := model.Fit(nil, nil); err == nil {
			t.Fatalf("%s: expected error for empty input", name)
		}
		if err := model.Fit([][]float64{{1}, {2}}, []float64{1}); !errors.Is(err, ErrShapeMismatch) {
			t.Fatalf("%s: expected ErrShapeMismatch, got %v", name, err)
		}
		if err := model.Fit([][]float64{{1, 2}, {2}}, []float64{1, 0}); !errors.Is(err, ErrShapeMismatch) {
			t.Fatalf("%s: expected ErrShapeMismatch for ragged rows, got %v", name, err)
		}
	}
}

func TestLinearRegressionPredictShapeMismatch(t *testing.T) {
	model := NewLinearRegression(nil)
	if err := model.Fit([][]float64{{1}, {2}, {3}}, []float64{2, 4, 6}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := model.Predict([][]float64{{1, 2}}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestModelSaveLoadRoundTrip(t *testing.T) {
	original := NewLinearRegression(Parameters{"w": FloatValue(1.0)})
	artifact, err := original.Save("models/lr", "1.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Type != "model" || artifact.Metadata["model_type"] != "linear_regression" {
		t.Fatalf("unexpected artifact: %+v", artifact)
	}
	if !reflect.DeepEqual(artifact.Tags, []string{"model", "ml"}) {
		t.Fatalf("unexpected tags: %v", artifact.Tags)
	}
	if artifact.AssetPath != "models/lr" || artifact.Version != "1.0" {
		t.Fatalf("unexpected location: %s %s", artifact.AssetPath, artifact.Version)
	}

	original.SetParams(Parameters{"w": FloatValue(2.0)})

	restored := NewLinearRegression(nil)
	if err := restored.Load(artifact); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, _ := restored.GetParams()["w"].AsFloat()
	if w != 1.0 {
		t.Fatalf("artifact payload changed after save: w=%v", w)
	}
	want := Parameters{"w": FloatValue(1.0), "fit_intercept": BoolValue(true)}
	if !reflect.DeepEqual(restored.GetParams(), want) {
		t.Fatalf("restored = %+v, want %+v", restored.GetParams(), want)
	}
}

func TestLoadedModelPredictsLikeOriginal(t *testing.T) {
	X := [][]float64{{0.1, 0.2}, {0.2, 0.1}, {0.9, 0.8}, {0.8, 0.9}}
	y := []float64{0, 0, 1, 1}
	original := NewDecisionTree(nil)
	if err := original.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	artifact, err := original.Save("models/dt", "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadModel(artifact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := original.Predict(X)
	got, err := loaded.Predict(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("loaded predictions %v, want %v", got, want)
	}
}

func TestModelLoadRejectsOtherArtifacts(t *testing.T) {
	dataset, _ := NewArtifact("datasets/d", "1", []byte("{}"), "dataset")
	if err := NewDecisionTree(nil).Load(dataset); !errors.Is(err, ErrArtifactType) {
		t.Fatalf("expected ErrArtifactType, got %v", err)
	}

	lr, _ := NewLinearRegression(nil).Save("models/lr", "1")
	if err := NewDecisionTree(nil).Load(lr); !errors.Is(err, ErrArtifactType) {
		t.Fatalf("expected ErrArtifactType for variant mismatch, got %v", err)
	}

	broken, _ := NewArtifact("models/x", "1", []byte("garbage"), "model")
	if err := NewDecisionTree(nil).Load(broken); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGetParamsReturnsCopy(t *testing.T) {
	model := NewLinearRegression(Parameters{"coefficients": FloatsValue([]float64{1, 2})})
	params := model.GetParams()
	params["coefficients"].Floats[0] = 42
	params["extra"] = IntValue(1)

	fresh := model.GetParams()
	if fresh["coefficients"].Floats[0] != 1 {
		t.Fatal("GetParams exposed internal slices")
	}
	if _, ok := fresh["extra"]; ok {
		t.Fatal("GetParams exposed the internal map")
	}
}

func TestNewModelUnknown(t *testing.T) {
	if _, err := NewModel("svm", nil); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
	if _, err := ModelKind("svm"); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
	artifact, _ := NewArtifact("models/x", "1", []byte("{}"), "model", WithMetadata(map[string]any{"model_type": "svm"}))
	if _, err := LoadModel(artifact); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestConcurrentSaveSeesConsistentSnapshots(t *testing.T) {
	model := NewLinearRegression(nil)
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{3, 5, 7, 9}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = model.Fit(X, y)
		}()
		go func() {
			defer wg.Done()
			artifact, err := model.Save("models/lr", "1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if _, err := DecodeParameters(artifact.Data); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
}
