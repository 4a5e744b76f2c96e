package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for booking flows.
type SchedulingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	autoScheduleTotal *prometheus.CounterVec
	slotQueryLatency  prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "burnout",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"outcome"}),
		autoScheduleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "burnout",
			Subsystem: "scheduling",
			Name:      "auto_schedule_total",
			Help:      "Total auto-scheduling runs by outcome",
		}, []string{"outcome"}),
		slotQueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "burnout",
			Subsystem: "scheduling",
			Name:      "slot_query_latency_seconds",
			Help:      "Latency of availability queries",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.autoScheduleTotal, m.slotQueryLatency)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveAutoSchedule(outcome string) {
	if m == nil {
		return
	}
	m.autoScheduleTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSlotQueryLatency(seconds float64) {
	if m == nil {
		return
	}
	m.slotQueryLatency.Observe(seconds)
}
