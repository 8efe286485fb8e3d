package models

// Classifier is a binary probabilistic model. Fit may receive an optional
// validation set (nil slices disable early stopping).
type Classifier interface {
	Fit(X [][]float64, y []int, Xval [][]float64, yval []int) error
	Predict(X [][]float64) []int
	PredictProba(X [][]float64) []float64
	BestIteration() int
	Name() string
}
