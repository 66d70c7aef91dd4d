package routers

import (
	"agg-server/internal/controller/api"
	"agg-server/internal/metrics"
	"agg-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// init 注册HTTP路由与全局过滤器
// 过滤器一律注册，开关（CORS/限流/管理员认证）在过滤器内部读取配置判断，
// 因为 init 执行时配置可能尚未加载
func init() {

	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（过滤器内部判断开关）
	beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// Prometheus 指标
	beego.Handler("/metrics", promhttp.Handler())

	// ========== 厂商回调（签名认证在控制器内完成） ==========

	// pragmatic 形态厂商：钱包回调走统一旋转编排写路径
	beego.Router("/callback/pragmatic/authenticate", &api.PragmaticController{}, "post:Authenticate")
	beego.Router("/callback/pragmatic/balance", &api.PragmaticController{}, "post:Balance")
	beego.Router("/callback/pragmatic/bet", &api.PragmaticController{}, "post:Bet")
	beego.Router("/callback/pragmatic/result", &api.PragmaticController{}, "post:Result")
	beego.Router("/callback/pragmatic/endRound", &api.PragmaticController{}, "post:EndRound")
	beego.Router("/callback/pragmatic/refund", &api.PragmaticController{}, "post:Refund")
	beego.Router("/callback/pragmatic/adjustment", &api.PragmaticController{}, "post:Adjustment")

	// ========== 运营商 API（JWT 认证 + 限流） ==========

	for _, pattern := range []string{"/api/session/*", "/api/freespin/*", "/api/round/*"} {
		beego.InsertFilter(pattern, beego.BeforeExec, middleware.OperatorAuthFilter)
		beego.InsertFilter(pattern, beego.BeforeExec, middleware.RateLimitFilter)
	}

	beego.Router("/api/session/open", &api.SessionController{}, "post:Open")
	beego.Router("/api/freespin/preset", &api.FreespinController{}, "get:Preset")
	beego.Router("/api/freespin/create", &api.FreespinController{}, "post:Create")
	beego.Router("/api/freespin/cancel", &api.FreespinController{}, "post:Cancel")
	beego.Router("/api/round/spins", &api.RoundController{}, "get:Spins")

	// ========== 管理 API（管理员认证） ==========

	beego.InsertFilter("/api/admin/*", beego.BeforeExec, middleware.AdminAuthFilter)
	beego.Router("/api/admin/sync/:aggregator", &api.SyncController{}, "post:Sync")
}
