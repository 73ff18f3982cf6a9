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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// serdeNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	serdeNamespace = "serde"

	codecSubsystem = "codec"

	directionLabelName = "direction"
	formatLabelName    = "format"
	statusLabelName    = "status"
	codeLabelName      = "code"

	DirectionEncode = "encode"
	DirectionDecode = "decode"

	SuccessLabel = "success"
	FailLabel    = "fail"
)

var (
	// buckets 为耗时直方图的桶划分，单位为毫秒：[0.01 0.02 0.04 ... 163.84]。
	buckets = prometheus.ExponentialBuckets(0.01, 2, 15)

	// sizeBuckets 为帧大小的桶划分，单位为字节：[64 256 1K 4K ... 16M]。
	sizeBuckets = prometheus.ExponentialBuckets(64, 4, 10)

	CodecFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serdeNamespace,
			Subsystem: codecSubsystem,
			Name:      "frames_total",
			Help:      "编解码的帧数量",
		}, []string{directionLabelName, formatLabelName, statusLabelName})

	CodecFrameBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serdeNamespace,
			Subsystem: codecSubsystem,
			Name:      "frame_bytes",
			Help:      "帧载荷经压缩与加密后的字节数",
			Buckets:   sizeBuckets,
		}, []string{directionLabelName, formatLabelName})

	CodecLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serdeNamespace,
			Subsystem: codecSubsystem,
			Name:      "latency",
			Help:      "单帧编解码耗时（毫秒）",
			Buckets:   buckets,
		}, []string{directionLabelName, formatLabelName})

	CodecErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serdeNamespace,
			Subsystem: codecSubsystem,
			Name:      "errors_total",
			Help:      "按错误码统计的编解码失败次数",
		}, []string{directionLabelName, codeLabelName})

	registerOnce     sync.Once
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

// Register 注册编解码指标，多次调用只有第一次生效。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(CodecFrames)
		r.MustRegister(CodecFrameBytes)
		r.MustRegister(CodecLatency)
		r.MustRegister(CodecErrors)
		metricRegisterer = r
	})
}
