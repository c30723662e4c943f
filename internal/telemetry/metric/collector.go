package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/zonemesh-go/internal/federation/view"
)

// ViewSource returns the current membership view, or nil if none is known.
type ViewSource func() *view.View

// Collector reports per-zone membership derived from the current view at
// scrape time.
type Collector struct {
	source ViewSource

	zoneMembers *prometheus.Desc
	controllers *prometheus.Desc
	unzoned     *prometheus.Desc
}

// NewCollector creates a collector reading views from source.
func NewCollector(source ViewSource) *Collector {
	return &Collector{
		source: source,
		zoneMembers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "zone", "members"),
			"Members of each zone in the current view.",
			[]string{"zone"}, nil,
		),
		controllers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "view", "controllers"),
			"Controllers present in the current view.",
			nil, nil,
		),
		unzoned: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "view", "unzoned_members"),
			"Members whose name does not carry a zone.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.zoneMembers
	ch <- c.controllers
	ch <- c.unzoned
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	v := c.source()

	zones := make(map[string]int)
	controllers, unzoned := 0, 0
	for _, m := range v.Members() {
		switch {
		case m.Identity.IsController():
			controllers++
		case m.Identity.ZoneName() == "":
			unzoned++
		default:
			zones[m.Identity.ZoneName()]++
		}
	}

	for z, n := range zones {
		ch <- prometheus.MustNewConstMetric(c.zoneMembers, prometheus.GaugeValue, float64(n), z)
	}
	ch <- prometheus.MustNewConstMetric(c.controllers, prometheus.GaugeValue, float64(controllers))
	ch <- prometheus.MustNewConstMetric(c.unzoned, prometheus.GaugeValue, float64(unzoned))
}
