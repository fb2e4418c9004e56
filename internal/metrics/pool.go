package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	poolTotalDesc    = prometheus.NewDesc("db_pool_total_conns", "Connections currently open in the pool", nil, nil)
	poolAcquiredDesc = prometheus.NewDesc("db_pool_acquired_conns", "Connections currently checked out of the pool", nil, nil)
	poolIdleDesc     = prometheus.NewDesc("db_pool_idle_conns", "Idle connections in the pool", nil, nil)
	poolMaxDesc      = prometheus.NewDesc("db_pool_max_conns", "Configured pool size", nil, nil)
	poolWaitDesc     = prometheus.NewDesc("db_pool_empty_acquire_total", "Acquires that had to wait for a connection", nil, nil)
)

// PoolCollector exports pgxpool statistics read on every scrape.
type PoolCollector struct {
	stats func() *pgxpool.Stat
}

// NewPoolCollector reads stats on each collection. A nil snapshot emits nothing.
func NewPoolCollector(stats func() *pgxpool.Stat) *PoolCollector {
	return &PoolCollector{stats: stats}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolTotalDesc
	ch <- poolAcquiredDesc
	ch <- poolIdleDesc
	ch <- poolMaxDesc
	ch <- poolWaitDesc
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.stats == nil {
		return
	}
	st := c.stats()
	if st == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(poolTotalDesc, prometheus.GaugeValue, float64(st.TotalConns()))
	ch <- prometheus.MustNewConstMetric(poolAcquiredDesc, prometheus.GaugeValue, float64(st.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(poolIdleDesc, prometheus.GaugeValue, float64(st.IdleConns()))
	ch <- prometheus.MustNewConstMetric(poolMaxDesc, prometheus.GaugeValue, float64(st.MaxConns()))
	ch <- prometheus.MustNewConstMetric(poolWaitDesc, prometheus.CounterValue, float64(st.EmptyAcquireCount()))
}
