// Package metrics 收集一次命令执行过程中的 Prometheus 指标。
// 命令行进程生命周期很短，不暴露 HTTP 端点，退出前按需写入 textfile（供 node_exporter 采集）。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "token_deployer"

// Metrics 汇总所有指标，使用独立 Registry，避免污染全局默认注册表
type Metrics struct {
	registry *prometheus.Registry

	RetryAttempts     *prometheus.CounterVec   // policy, result
	EndpointProbes    *prometheus.CounterVec   // endpoint, result
	RPCCallLatency    *prometheus.HistogramVec // method
	TxSubmitted       *prometheus.CounterVec   // result
	OperationsTotal   *prometheus.CounterVec   // operation, result
	OperationDuration *prometheus.HistogramVec // operation
	EventsPublished   *prometheus.CounterVec   // topic, result
}

// Default 进程级指标实例
var Default = NewMetrics(defaultNamespace)

// NewMetrics 创建并注册全部指标
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RetryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Total attempts made by the retry executor",
		}, []string{"policy", "result"}),
		EndpointProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "endpoint_probes_total",
			Help:      "Endpoint liveness probes by outcome",
		}, []string{"endpoint", "result"}),
		RPCCallLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "Latency of RPC calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		TxSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submitter",
			Name:      "transactions_total",
			Help:      "Transactions submitted by outcome",
		}, []string{"result"}),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operation",
			Name:      "runs_total",
			Help:      "Operations run by outcome",
		}, []string{"operation", "result"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "operation",
			Name:      "duration_seconds",
			Help:      "Wall time of each operation",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"operation"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mq",
			Name:      "events_published_total",
			Help:      "Distribution events published to kafka",
		}, []string{"topic", "result"}),
	}
	m.registry.MustRegister(
		m.RetryAttempts,
		m.EndpointProbes,
		m.RPCCallLatency,
		m.TxSubmitted,
		m.OperationsTotal,
		m.OperationDuration,
		m.EventsPublished,
	)
	return m
}

// Registry 返回内部注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRPC 记录一次 RPC 调用耗时
func (m *Metrics) ObserveRPC(method string, start time.Time) {
	m.RPCCallLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// ObserveOperation 记录一次命令执行结果和耗时
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// WriteTextfile 以 Prometheus 文本格式写出当前指标，path 为空时什么都不做
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
