package api

import (
	helper "agg-server/internal/common/helper"
	"agg-server/internal/common/response"
	"agg-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// SessionController 运营商侧会话接口：POST /api/session/open
type SessionController struct{ beego.Controller }

// Open 开启游戏会话并返回启动链接
func (c *SessionController) Open() {
	traceID := helper.GetTraceID(c.Ctx)

	// 这里必须要对业务参数严格校验，后续service不再重复校验
	p, ok, msg := helper.ParseAndValidateOpenSession(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	out, err := svc.Session.Open(c.Ctx.Request.Context(), service.OpenSessionInput{
		GameIdentity: p.GameIdentity,
		PlayerID:     p.PlayerId,
		Currency:     p.Currency,
		Locale:       p.Locale,
		Platform:     p.Platform,
		LobbyURL:     p.LobbyUrl,
		Demo:         p.Demo,
		TraceID:      traceID,
	})
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"token":      out.Token,
		"launch_url": out.LaunchURL,
	}, traceID)
}
