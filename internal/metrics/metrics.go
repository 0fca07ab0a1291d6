package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docflow_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 审批工作流指标
var (
	// SubmissionsCreatedTotal 创建的提交单总数
	SubmissionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docflow_submissions_created_total",
			Help: "创建的提交单总数",
		},
	)

	// SubmissionsSubmittedTotal 送审的提交单总数
	SubmissionsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docflow_submissions_submitted_total",
			Help: "送审的提交单总数",
		},
	)

	// ApprovalDecisionsTotal 审批决定总数（按角色与结果）
	ApprovalDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_approval_decisions_total",
			Help: "审批决定总数",
		},
		[]string{"role", "decision"},
	)

	// SubmissionsTerminalTotal 进入终态的提交单总数（按终态）
	SubmissionsTerminalTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_submissions_terminal_total",
			Help: "进入终态的提交单总数",
		},
		[]string{"status"},
	)

	// PendingStepsGauge 当前待审步骤数（按角色）
	PendingStepsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docflow_pending_steps",
			Help: "当前待审步骤数",
		},
		[]string{"role"},
	)
)
