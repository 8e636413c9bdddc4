// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	// #nosec
	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// coplayNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	coplayNamespace = "coplay"

	// 以下为当前使用的通用标签名。
	sessionStateLabelName = "state"
	operationLabelName    = "operation"
	statusLabelName       = "status"
	backendLabelName      = "backend"

	StatusSuccess = "success"
	StatusFail    = "fail"
)

var (
	// buckets 为请求耗时直方图的桶划分，单位为毫秒。
	// 实际桶分布为：
	// [1 2 4 8 16 32 64 128 256 512 1024 2048 4096 8192 16384 32768 65536 1.31072e+05]
	buckets = prometheus.ExponentialBuckets(1, 2, 18)

	// NumSessions 为当前各状态下本地会话的数量。
	NumSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: coplayNamespace,
			Name:      "num_sessions",
			Help:      "number of locally tracked sessions by lifecycle state",
		}, []string{sessionStateLabelName})

	// SessionOperations 统计各生命周期操作的执行次数与结果。
	SessionOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: coplayNamespace,
			Name:      "session_operations_total",
			Help:      "number of session lifecycle operations by operation and status",
		}, []string{operationLabelName, statusLabelName})

	// BackendCallLatency 为远端服务调用耗时直方图。
	BackendCallLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: coplayNamespace,
			Name:      "backend_call_latency_ms",
			Help:      "latency of remote backend calls in milliseconds",
			Buckets:   buckets,
		}, []string{backendLabelName, operationLabelName})

	// SearchesDispatched 统计已发起的会话搜索次数。
	SearchesDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: coplayNamespace,
			Name:      "searches_dispatched_total",
			Help:      "number of session searches dispatched by backend",
		}, []string{backendLabelName})

	// LobbyNotifications 统计收到的大厅推送通知数量。
	LobbyNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: coplayNamespace,
			Name:      "lobby_notifications_total",
			Help:      "number of lobby push notifications received by kind",
		}, []string{operationLabelName})

	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标。
// 通常应在 init 函数中调用。
func Register(r prometheus.Registerer) {
	r.MustRegister(NumSessions)
	r.MustRegister(SessionOperations)
	r.MustRegister(BackendCallLatency)
	r.MustRegister(SearchesDispatched)
	r.MustRegister(LobbyNotifications)
	metricRegisterer = r
}
