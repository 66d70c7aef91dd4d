package middleware

import (
	"time"

	"agg-server/common/logger"
	"agg-server/internal/auth"
	"agg-server/internal/common/helper"
	"agg-server/internal/common/response"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// OperatorAuthFilter 运营商认证过滤器（JWT Token）
// 校验运营商后端调用的 JWT Token，并将运营商身份注入请求上下文
func OperatorAuthFilter(ctx *beegocontext.Context) {
	traceID := helper.GetTraceID(ctx)

	// 辅助函数：返回错误
	returnError := func(httpCode int, bizCode int, message string) {
		ctx.Output.SetStatus(httpCode)
		ctx.Output.JSON(response.APIResponse{
			Code:      bizCode,
			Message:   message,
			Data:      nil,
			TraceID:   traceID,
			Timestamp: time.Now().UnixMilli(),
		}, false, false)
	}

	// 1. 验证 JWT Token
	claims, err := auth.VerifyJWTToken(ctx)
	if err != nil {
		logger.Warn("operator authentication failed",
			zap.String("trace_id", traceID),
			zap.Error(err))

		// 根据错误类型返回不同的错误码
		switch err {
		case auth.ErrMissingToken:
			returnError(401, response.CodeUnauthorized, "缺少认证Token")
		case auth.ErrInvalidTokenFormat:
			returnError(401, response.CodeInvalidToken, "Token格式无效")
		case auth.ErrInvalidToken:
			returnError(401, response.CodeInvalidToken, "Token无效")
		case auth.ErrTokenExpired:
			returnError(401, response.CodeTokenExpired, "Token已过期")
		case auth.ErrTokenRevoked:
			returnError(401, response.CodeInvalidToken, "Token已撤销")
		default:
			returnError(401, response.CodeUnauthorized, "认证失败")
		}
		return
	}

	// 2. 刷新令牌不允许访问业务接口
	if claims.TokenType != "access" {
		logger.Warn("refresh token used on api endpoint",
			zap.String("trace_id", traceID),
			zap.Int64("operator_id", claims.OperatorID))
		returnError(403, response.CodeForbidden, "Token类型不允许")
		return
	}

	// 3. 将运营商身份存入 context
	ctx.Input.SetData("operator_id", claims.OperatorID)
	ctx.Input.SetData("operator_identity", claims.OperatorIdentity)
	ctx.Input.SetData("jwt_claims", claims)

	logger.Debug("operator authentication successful",
		zap.String("trace_id", traceID),
		zap.Int64("operator_id", claims.OperatorID),
		zap.String("operator_identity", claims.OperatorIdentity))
}
