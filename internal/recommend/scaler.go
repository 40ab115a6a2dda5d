package recommend

import "math"

// scaler standardizes each feature dimension to zero mean and unit variance.
// A dimension with no variance is only centered.
type scaler struct {
	mean  FeatureVector
	scale FeatureVector
	ready bool
}

// fit computes per-dimension mean and population standard deviation.
func (s *scaler) fit(vectors []FeatureVector) {
	if len(vectors) == 0 {
		return
	}

	n := float64(len(vectors))
	var mean, variance FeatureVector

	for _, v := range vectors {
		for d := range v {
			mean[d] += v[d]
		}
	}
	for d := range mean {
		mean[d] /= n
	}

	for _, v := range vectors {
		for d := range v {
			diff := v[d] - mean[d]
			variance[d] += diff * diff
		}
	}

	var scale FeatureVector
	for d := range variance {
		std := math.Sqrt(variance[d] / n)
		if std == 0 {
			std = 1
		}
		scale[d] = std
	}

	s.mean = mean
	s.scale = scale
	s.ready = true
}

func (s *scaler) transform(v FeatureVector) FeatureVector {
	var out FeatureVector
	for d := range v {
		out[d] = (v[d] - s.mean[d]) / s.scale[d]
	}
	return out
}
