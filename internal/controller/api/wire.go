package api

import (
	"errors"

	"agg-server/internal/aggregator"
	"agg-server/internal/common/response"
	"agg-server/internal/model"
	"agg-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// Services 控制器依赖集合，进程启动时显式组装后注入（Use），
// 控制器不自行构造服务
type Services struct {
	Session  service.SessionService
	Spin     service.SpinService
	Freespin service.FreespinService
	Sync     service.GameSyncService
	Wallet   service.WalletPort
	Store    *model.Store
}

var svc *Services

// Use 注入控制器依赖（main 组装完成后调用一次）
func Use(s *Services) { svc = s }

// writeServiceError 业务错误哨兵 -> HTTP 状态 + 业务码的统一映射
func writeServiceError(c *beego.Controller, err error, traceID string) {
	switch {
	case errors.Is(err, service.ErrDuplicateInFlight):
		response.Accepted(c, "重复请求进行中，请稍后重试", traceID)
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrRoundNotFound),
		errors.Is(err, service.ErrSpinNotFound),
		errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, service.ErrAggregatorNotFound),
		errors.Is(err, service.ErrFreespinNotFound):
		response.NotFound(c, err.Error(), traceID)
	case errors.Is(err, service.ErrRoundFinished):
		response.Conflict(c, response.CodeRoundFinished, traceID)
	case errors.Is(err, service.ErrDuplicatePlace):
		response.Conflict(c, response.CodeDuplicateKey, traceID)
	case errors.Is(err, service.ErrInsufficientBalance):
		response.Error(c, 400, response.CodeInsufficientBalance, traceID)
	case errors.Is(err, service.ErrBetLimitExceeded):
		response.Error(c, 400, response.CodeBetLimitExceeded, traceID)
	case errors.Is(err, service.ErrFreespinNotEnabled):
		response.Error(c, 400, response.CodeFreespinNotEnabled, traceID)
	case errors.Is(err, service.ErrLocaleUnsupported):
		response.Error(c, 400, response.CodeLocaleUnsupported, traceID)
	case errors.Is(err, service.ErrDeviceUnsupported):
		response.Error(c, 400, response.CodeDeviceUnsupported, traceID)
	case errors.Is(err, service.ErrInvalidAmount):
		response.BadRequest(c, err.Error(), traceID)
	case errors.Is(err, aggregator.ErrNotSupported):
		response.Error(c, 400, response.CodeNotSupported, traceID)
	case errors.Is(err, aggregator.ErrNotImplemented):
		response.Error(c, 501, response.CodeNotImplemented, traceID)
	default:
		if ue := (*aggregator.UpstreamError)(nil); errors.As(err, &ue) {
			response.ErrorWithMessage(c, 502, response.CodeUpstreamError, ue.Error(), traceID)
			return
		}
		response.InternalError(c, traceID)
	}
}
