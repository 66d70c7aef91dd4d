package api

import (
	"strings"

	helper "agg-server/internal/common/helper"
	"agg-server/internal/common/response"

	beego "github.com/beego/beego/v2/server/web"
)

// SyncController 运营商侧目录同步接口：POST /api/admin/sync/:aggregator
type SyncController struct{ beego.Controller }

// Sync 触发一次目录同步并返回统计
func (c *SyncController) Sync() {
	traceID := helper.GetTraceID(c.Ctx)

	identity := strings.TrimSpace(c.Ctx.Input.Param(":aggregator"))
	if identity == "" {
		response.BadRequest(&c.Controller, "aggregator is required", traceID)
		return
	}

	report, err := svc.Sync.Sync(c.Ctx.Request.Context(), identity, traceID)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}

	response.Success(&c.Controller, report, traceID)
}
