package api

import (
	"strings"

	chelper "agg-server/common/helper"
	"agg-server/internal/common/helper"
	"agg-server/internal/common/response"
	"agg-server/internal/currency"
	"agg-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// FreespinController 运营商侧免费旋转接口：
// GET  /api/freespin/preset?game_identity=&preset_id=
// POST /api/freespin/create
// POST /api/freespin/cancel
type FreespinController struct{ beego.Controller }

// Preset 查询厂商预设
func (c *FreespinController) Preset() {
	traceID := helper.GetTraceID(c.Ctx)

	gameIdentity := strings.TrimSpace(c.Ctx.Input.Query("game_identity"))
	presetID := strings.TrimSpace(c.Ctx.Input.Query("preset_id"))
	if gameIdentity == "" {
		response.BadRequest(&c.Controller, "game_identity is required", traceID)
		return
	}

	preset, err := svc.Freespin.GetPreset(c.Ctx.Request.Context(), gameIdentity, presetID)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"preset_id":    preset.ID,
		"spin_count":   preset.SpinCount,
		"bet_per_spin": currency.FromSystem(preset.BetPerSpin, preset.Currency).String(),
		"currency":     preset.Currency,
	}, traceID)
}

// Create 创建免费旋转活动
func (c *FreespinController) Create() {
	traceID := helper.GetTraceID(c.Ctx)

	p, ok, msg := helper.ParseAndValidateFreespinCreate(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	bet, ok := chelper.ParseAmount(p.BetPerSpin)
	if !ok {
		response.BadRequest(&c.Controller, "bet_per_spin must be numeric", traceID)
		return
	}

	campaign, err := svc.Freespin.Create(c.Ctx.Request.Context(), service.CreateFreespinCmd{
		GameIdentity: p.GameIdentity,
		PlayerID:     p.PlayerId,
		Currency:     p.Currency,
		PresetID:     p.PresetId,
		SpinCount:    p.SpinCount,
		BetPerSpin:   currency.ToSystem(bet, p.Currency),
		ExpireAt:     p.ExpireAt,
		TraceID:      traceID,
	})
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"ext_id":     campaign.ExtID,
		"status":     campaign.Status,
		"spin_count": campaign.SpinCount,
	}, traceID)
}

// Cancel 取消免费旋转活动
func (c *FreespinController) Cancel() {
	traceID := helper.GetTraceID(c.Ctx)

	extID := strings.TrimSpace(c.Ctx.Input.Query("ext_id"))
	if extID == "" {
		response.BadRequest(&c.Controller, "ext_id is required", traceID)
		return
	}

	if err := svc.Freespin.Cancel(c.Ctx.Request.Context(), extID, traceID); err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{"ext_id": extID, "status": "cancelled"}, traceID)
}
