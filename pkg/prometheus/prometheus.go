// Copyright 2023 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package prometheus contains Prometheus-compliant metric data structures and
// utilities. It can export data in Prometheus data format, documented at:
// https://prometheus.io/docs/instrumenting/exposition_formats/
package prometheus

import (
	"fmt"
	"io"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
	"gvisor.dev/ukernel/pkg/metric"
)

// ExportOptions contains options that affect metric export.
type ExportOptions struct {
	// ExporterPrefix is prepended to all metric names.
	ExporterPrefix string

	// ExtraLabels is added to every exported sample, e.g. the workload name.
	ExtraLabels map[string]string
}

// MetricName converts a metric path such as "/sched/blocks" into a
// Prometheus-compatible name such as "sched_blocks".
func MetricName(path string) string {
	name := strings.Trim(path, "/")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// Families converts metric snapshots into counter metric families.
func Families(snaps []metric.Snapshot, options ExportOptions) []*dto.MetricFamily {
	families := make([]*dto.MetricFamily, 0, len(snaps))
	for _, s := range snaps {
		f := &dto.MetricFamily{
			Name: proto.String(options.ExporterPrefix + MetricName(s.Name)),
			Type: dto.MetricType_COUNTER.Enum(),
		}
		if s.Description != "" {
			f.Help = proto.String(s.Description)
		}
		for _, sample := range s.Samples {
			f.Metric = append(f.Metric, &dto.Metric{
				Label:   labelPairs(sample.Labels, options.ExtraLabels),
				Counter: &dto.Counter{Value: proto.Float64(float64(sample.Value))},
			})
		}
		families = append(families, f)
	}
	return families
}

func labelPairs(labels ...map[string]string) []*dto.LabelPair {
	merged := make(map[string]string)
	for _, l := range labels {
		for k, v := range l {
			merged[k] = v
		}
	}
	names := make([]string, 0, len(merged))
	for k := range merged {
		names = append(names, k)
	}
	sort.Strings(names)
	pairs := make([]*dto.LabelPair, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, &dto.LabelPair{Name: proto.String(k), Value: proto.String(merged[k])})
	}
	return pairs
}

// Write writes every registered metric to w in the Prometheus text format.
// It returns the number of bytes written.
func Write(w io.Writer, options ExportOptions) (int, error) {
	total := 0
	for _, f := range Families(metric.Values(), options) {
		n, err := expfmt.MetricFamilyToText(w, f)
		total += n
		if err != nil {
			return total, fmt.Errorf("writing metric %q: %w", f.GetName(), err)
		}
	}
	return total, nil
}
