package feature

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Set maps features to their generated data keyed by the string representation of the
// feature
type Set struct {
	set map[string]Data
}

func NewSet() *Set {
	return &Set{set: make(map[string]Data)}
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.set)
}

// Set stores the data of a feature replacing any previous value
func (s *Set) Set(f Feature, data []float64) *Set {
	s.set[f.String()] = Data{F: f, Data: data}
	return s
}

func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	d, exists := s.set[f.String()]
	return d.Data, exists
}

// Update copies every feature of other into the set
func (s *Set) Update(other *Set) *Set {
	if other == nil {
		return s
	}
	for label, d := range other.set {
		s.set[label] = d
	}
	return s
}

// Filter returns a new set with only the features of the given type
func (s *Set) Filter(ftype FeatureType) *Set {
	out := NewSet()
	if s == nil {
		return out
	}
	for label, d := range s.set {
		if d.F.Type() == ftype {
			out.set[label] = d
		}
	}
	return out
}

// Labels returns all tracked features sorted by their string representation
func (s *Set) Labels() *Labels {
	if s == nil {
		return NewLabels(nil)
	}
	labels := make([]Feature, 0, len(s.set))
	for _, d := range s.set {
		labels = append(labels, d.F)
	}
	sort.Slice(labels, func(i, j int) bool {
		return labels[i].String() < labels[j].String()
	})
	return NewLabels(labels)
}

// Matrix builds an m x n design matrix with columns ordered by labels. Features absent from
// the set produce zero columns.
func (s *Set) Matrix(labels *Labels, m int) *mat.Dense {
	n := labels.Len()
	if m == 0 || n == 0 {
		return nil
	}
	x := mat.NewDense(m, n, nil)
	for j, label := range labels.Labels() {
		data, exists := s.Get(label)
		if !exists {
			continue
		}
		x.SetCol(j, data)
	}
	return x
}
