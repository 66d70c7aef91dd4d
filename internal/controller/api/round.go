package api

import (
	"strings"

	helper "agg-server/internal/common/helper"
	"agg-server/internal/common/response"
	"agg-server/internal/model"

	beego "github.com/beego/beego/v2/server/web"
)

// RoundController 提供回合账本查询接口（客服/对账/调试用）
// GET /api/round/spins?token=&ext_round_id=
// 返回该回合的全部账本行（按写入顺序）

type RoundController struct{ beego.Controller }

const maxSpinRows = 200

func (c *RoundController) Spins() {
	traceID := helper.GetTraceID(c.Ctx)

	token := strings.TrimSpace(c.Ctx.Input.Query("token"))
	extRoundID := strings.TrimSpace(c.Ctx.Input.Query("ext_round_id"))
	if token == "" || extRoundID == "" {
		response.BadRequest(&c.Controller, "token and ext_round_id are required", traceID)
		return
	}

	ctx := c.Ctx.Request.Context()

	sess, err := svc.Store.FindSessionByToken(ctx, token)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	if sess == nil {
		response.NotFound(&c.Controller, "session not found", traceID)
		return
	}

	round, err := svc.Store.FindRound(ctx, sess.ID, extRoundID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	if round == nil {
		response.NotFound(&c.Controller, "round not found", traceID)
		return
	}

	spins, err := svc.Store.ListSpins(ctx, round.ID, maxSpinRows)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	rows := make([]map[string]interface{}, 0, len(spins))
	for _, sp := range spins {
		rows = append(rows, map[string]interface{}{
			"spin_id":   sp.ID,
			"spin_type": model.SpinTypeString(sp.SpinType),
			"amount":    sp.Amount,
			"real":      sp.RealAmount,
			"bonus":     sp.BonusAmount,
			"ext_tx_id": sp.ExtTxID,
			"status":    sp.Status,
			"free_spin": sp.FreeSpinID.String,
			"ref_spin":  sp.RefSpinID.Int64,
		})
	}

	response.Success(&c.Controller, map[string]interface{}{
		"round_id":     round.ID,
		"ext_round_id": round.ExtID,
		"finished":     round.Finished == 1,
		"spins":        rows,
	}, traceID)
}
