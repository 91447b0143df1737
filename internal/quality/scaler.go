package quality

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes each column to zero mean and unit variance.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-column mean and population standard deviation.
// Constant columns get a scale of 1.
func FitScaler(x [][]float64) (*Scaler, error) {
	if len(x) == 0 {
		return nil, errors.New("cannot fit scaler on empty matrix")
	}
	width := len(x[0])
	s := &Scaler{
		Mean:  make([]float64, width),
		Scale: make([]float64, width),
	}

	col := make([]float64, len(x))
	for j := 0; j < width; j++ {
		for i, row := range x {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Width returns the number of columns the scaler was fit on.
func (s *Scaler) Width() int {
	return len(s.Mean)
}

// Transform returns a scaled copy of one row.
func (s *Scaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformAll scales every row of x.
func (s *Scaler) TransformAll(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = s.Transform(row)
	}
	return out
}

func (s *Scaler) validate(width int) error {
	if len(s.Mean) != width || len(s.Scale) != width {
		return fmt.Errorf("scaler width %d/%d, expected %d", len(s.Mean), len(s.Scale), width)
	}
	for j, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("scaler column %d has zero scale", j)
		}
	}
	return nil
}
