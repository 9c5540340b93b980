// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービスとミドルウェアから利用する。
type MetricsCollector interface {
	RecordSignup()
	RecordSigninSuccess()
	RecordSigninFailure()
	RecordTokenIssued()
	RecordRateLimited()
	RecordHashLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signups       prometheus.Counter
	signinSuccess prometheus.Counter
	signinFail    prometheus.Counter
	tokensIssued  prometheus.Counter
	rateLimited   prometheus.Counter
	hashLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robobook_signup_total",
			Help: "アカウント作成成功の合計数",
		}),
		signinSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robobook_signin_success_total",
			Help: "サインイン成功の合計数",
		}),
		signinFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robobook_signin_fail_total",
			Help: "サインイン失敗の合計数",
		}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robobook_tokens_issued_total",
			Help: "発行されたトークンの合計数",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robobook_rate_limited_total",
			Help: "レート制限で拒否されたリクエストの合計数",
		}),
		hashLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "robobook_password_hash_seconds",
			Help:    "パスワードハッシュ処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.signups,
		c.signinSuccess,
		c.signinFail,
		c.tokensIssued,
		c.rateLimited,
		c.hashLatency,
	)

	return c
}

// RecordSignup はアカウント作成成功を記録する。
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordSigninSuccess はサインイン成功を記録する。
func (c *Collector) RecordSigninSuccess() {
	c.signinSuccess.Inc()
}

// RecordSigninFailure はサインイン失敗を記録する。
func (c *Collector) RecordSigninFailure() {
	c.signinFail.Inc()
}

// RecordTokenIssued はトークン発行を記録する。
func (c *Collector) RecordTokenIssued() {
	c.tokensIssued.Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// RecordHashLatency はパスワードハッシュ処理のレイテンシを記録する。
func (c *Collector) RecordHashLatency(duration time.Duration) {
	c.hashLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
