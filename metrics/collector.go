// Package metrics exports logger counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lixenwraith/rtlog"
)

// Source is anything reporting logger statistics; *rtlog.Logger satisfies it.
type Source interface {
	Stats() rtlog.Stats
}

// Collector reads a Source on every scrape. Counters are exported as the
// logger reports them, so resets on the logger show up as counter resets.
type Collector struct {
	src Source

	accepted       *prometheus.Desc
	rateLimited    *prometheus.Desc
	fallbackWrites *prometheus.Desc
	lockTimeouts   *prometheus.Desc

	poolInUse     *prometheus.Desc
	poolFallbacks *prometheus.Desc

	subscriberDropped     *prometheus.Desc
	subscriberPanics      *prometheus.Desc
	subscriberForcedStops *prometheus.Desc

	sinkDroppedMessages *prometheus.Desc
	sinkDroppedBytes    *prometheus.Desc
	sinkPartialWrites   *prometheus.Desc
	sinkLockContention  *prometheus.Desc
	sinkBufferFull      *prometheus.Desc

	uptime *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for src. constLabels are attached to every
// metric, e.g. to tell several loggers apart.
func NewCollector(src Source, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("rtlog", "", name), help, nil, constLabels)
	}
	return &Collector{
		src: src,

		accepted:       desc("accepted_total", "Messages that passed the level filter and the rate limit"),
		rateLimited:    desc("rate_limited_total", "Messages refused by the rate limiter"),
		fallbackWrites: desc("native_writes_total", "Messages sent to the native facility for lack of a buffer"),
		lockTimeouts:   desc("lock_timeouts_total", "Bounded lock waits that were given up"),

		poolInUse:     desc("pool_buffers_in_use", "Pool slots currently handed out"),
		poolFallbacks: desc("pool_fallbacks_total", "Buffers allocated outside the pool"),

		subscriberDropped:     desc("subscriber_dropped_total", "Notifications dropped on a full queue or lock timeout"),
		subscriberPanics:      desc("subscriber_panics_total", "Subscriber callbacks that panicked"),
		subscriberForcedStops: desc("subscriber_forced_stops_total", "Subscriber tasks abandoned on stop"),

		sinkDroppedMessages: desc("sink_dropped_messages_total", "Messages non-blocking sinks discarded"),
		sinkDroppedBytes:    desc("sink_dropped_bytes_total", "Bytes non-blocking sinks discarded"),
		sinkPartialWrites:   desc("sink_partial_writes_total", "Messages only partly written by sinks"),
		sinkLockContention:  desc("sink_lock_contention_total", "Sink writes skipped because the device lock was busy"),
		sinkBufferFull:      desc("sink_buffer_full_total", "Sink writes skipped because the device had too little space"),

		uptime: desc("uptime_seconds", "Time since the logger was created"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.accepted
	ch <- c.rateLimited
	ch <- c.fallbackWrites
	ch <- c.lockTimeouts
	ch <- c.poolInUse
	ch <- c.poolFallbacks
	ch <- c.subscriberDropped
	ch <- c.subscriberPanics
	ch <- c.subscriberForcedStops
	ch <- c.sinkDroppedMessages
	ch <- c.sinkDroppedBytes
	ch <- c.sinkPartialWrites
	ch <- c.sinkLockContention
	ch <- c.sinkBufferFull
	ch <- c.uptime
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.accepted, s.Accepted)
	counter(c.rateLimited, s.RateLimited)
	counter(c.fallbackWrites, s.FallbackWrites)
	counter(c.lockTimeouts, s.LockTimeouts)
	gauge(c.poolInUse, float64(s.PoolInUse))
	counter(c.poolFallbacks, s.PoolFallbacks)
	counter(c.subscriberDropped, s.SubscriberDropped)
	counter(c.subscriberPanics, s.SubscriberPanics)
	counter(c.subscriberForcedStops, s.SubscriberForcedStops)
	counter(c.sinkDroppedMessages, s.Sinks.DroppedMessages)
	counter(c.sinkDroppedBytes, s.Sinks.DroppedBytes)
	counter(c.sinkPartialWrites, s.Sinks.PartialWrites)
	counter(c.sinkLockContention, s.Sinks.LockContention)
	counter(c.sinkBufferFull, s.Sinks.BufferFull)
	gauge(c.uptime, s.Uptime.Seconds())
}
