package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// sample returns the series of family name whose labels include every
// name/value pair in pairs.
func sample(reg prometheus.Gatherer, name string, pairs ...string) (*dto.Metric, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	fam := findMetricFamily(families, name)
	if fam == nil {
		return nil, fmt.Errorf("family %s not registered", name)
	}
	for _, metric := range fam.GetMetric() {
		if hasLabels(metric.GetLabel(), pairs) {
			return metric, nil
		}
	}
	return nil, fmt.Errorf("family %s has no series %v", name, pairs)
}

func findMetricFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, fam := range families {
		if fam.GetName() == name {
			return fam
		}
	}
	return nil
}

func hasLabels(labels []*dto.LabelPair, pairs []string) bool {
	for i := 0; i+1 < len(pairs); i += 2 {
		if !matchesLabel(labels, pairs[i], pairs[i+1]) {
			return false
		}
	}
	return true
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
