package api

import (
	"errors"
	"fmt"
	"strings"

	"agg-server/common"
	chelper "agg-server/common/helper"
	"agg-server/internal/aggregator/pragmatic"
	helper "agg-server/internal/common/helper"
	"agg-server/internal/currency"
	"agg-server/internal/model"
	"agg-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// PragmaticController 处理签名表单厂商的回调（厂商 -> 平台方向）：
// POST /callback/pragmatic/authenticate | balance | bet | result | endRound | refund | adjustment
// 全部为表单编码，携带 hash 签名；应答为 JSON，字段参与同一套签名。
// 回调统一翻译为 SpinService 的四个写操作，账本只有这一条写路径。

type PragmaticController struct{ beego.Controller }

// 厂商侧业务错误码（应答 error 字段）
const (
	vndOK            = 0
	vndInsufficient  = 1
	vndPlayerUnknown = 2
	vndBetNotAllowed = 3
	vndBadSignature  = 4
	vndLimitExceeded = 5
	vndRetryLater    = 7
	vndInternal      = 100
)

// collectParams 收集全部表单参数（hash 除外），用于验签与审计
func (c *PragmaticController) collectParams() (params map[string]string, hash string) {
	_ = c.Ctx.Request.ParseForm()
	params = map[string]string{}
	for k, vs := range c.Ctx.Request.Form {
		if len(vs) == 0 {
			continue
		}
		if k == "hash" {
			hash = vs[0]
			continue
		}
		params[k] = vs[0]
	}
	return params, hash
}

// reply 签名应答：对字符串字段排序签名后附加 hash
func (c *PragmaticController) reply(secret string, fields map[string]string, extra map[string]interface{}) {
	out := map[string]interface{}{}
	for k, v := range fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	out["hash"] = pragmatic.Sign(fields, secret)
	c.Data["json"] = out
	_ = c.ServeJSON()
}

// replyError 错误应答（仍然签名）
func (c *PragmaticController) replyError(secret string, code int, desc string) {
	fields := map[string]string{
		"error":       fmt.Sprint(code),
		"description": desc,
	}
	c.reply(secret, fields, nil)
}

// vendorConfig 解析当前启用的 pragmatic 聚合商配置
func (c *PragmaticController) vendorConfig() (*model.AggregatorInfo, string, bool) {
	agg, err := svc.Store.FindActiveAggregatorByType(c.Ctx.Request.Context(), "pragmatic")
	if err != nil || agg == nil {
		return nil, "", false
	}
	return agg, agg.ConfigMap()["secret"], true
}

// verified 验签 + 审计前置；失败时已写应答
func (c *PragmaticController) verified(action string) (params map[string]string, agg *model.AggregatorInfo, secret string, ok bool) {
	traceID := helper.GetTraceID(c.Ctx)

	agg, secret, found := c.vendorConfig()
	if !found {
		c.Ctx.Output.SetStatus(503)
		c.Data["json"] = map[string]interface{}{"error": vndInternal, "description": "aggregator not configured"}
		_ = c.ServeJSON()
		return nil, nil, "", false
	}

	params, hash := c.collectParams()
	if !pragmatic.Verify(params, secret, hash) {
		fmt.Printf("[Callback] 签名校验失败: action=%s, trace_id=%s\n", action, traceID)
		c.audit(agg.Identity, action, params, "bad signature", traceID)
		c.replyError(secret, vndBadSignature, "Invalid hash")
		return nil, nil, "", false
	}
	return params, agg, secret, true
}

// audit 回调审计落库（失败仅记录）
func (c *PragmaticController) audit(identity, action string, params map[string]string, result, traceID string) {
	payload, _ := common.JsonMarshalToString(params)
	a := &model.CallbackAudit{
		Aggregator: identity,
		Action:     action,
		ExtRoundID: params["roundId"],
		ExtTxID:    params["reference"],
		Token:      params["token"],
		Payload:    payload,
		Result:     result,
		TraceID:    traceID,
	}
	if err := svc.Store.AuditCallback(c.Ctx.Request.Context(), a); err != nil {
		fmt.Printf("[Callback] 审计落库失败: action=%s, error=%v, trace_id=%s\n", action, err, traceID)
	}
}

// errCode 业务错误 -> 厂商错误码
func errCode(err error) (int, string) {
	switch {
	case err == nil:
		return vndOK, "Success"
	case errors.Is(err, service.ErrInsufficientBalance):
		return vndInsufficient, "Insufficient balance"
	case errors.Is(err, service.ErrSessionNotFound):
		return vndPlayerUnknown, "Player session not found"
	case errors.Is(err, service.ErrRoundFinished),
		errors.Is(err, service.ErrRoundNotFound),
		errors.Is(err, service.ErrSpinNotFound),
		errors.Is(err, service.ErrDuplicatePlace),
		errors.Is(err, service.ErrFreespinUnavailable):
		return vndBetNotAllowed, err.Error()
	case errors.Is(err, service.ErrBetLimitExceeded):
		return vndLimitExceeded, "Bet limit exceeded"
	case errors.Is(err, service.ErrDuplicateInFlight):
		return vndRetryLater, "Retry later"
	default:
		return vndInternal, "Internal error"
	}
}

// balanceFields 查询余额并组装应答字段（cash/bonus 为厂商十进制金额）
func (c *PragmaticController) balanceFields(sess *model.Session) (map[string]string, error) {
	bal, err := svc.Wallet.FindBalance(c.Ctx.Request.Context(), sess.PlayerID)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"currency": bal.Currency,
		"cash":     currency.FromSystem(bal.Real, bal.Currency).String(),
		"bonus":    currency.FromSystem(bal.Bonus, bal.Currency).String(),
	}, nil
}

// Authenticate 会话认证：厂商启动游戏后第一跳
func (c *PragmaticController) Authenticate() {
	traceID := helper.GetTraceID(c.Ctx)
	params, agg, secret, ok := c.verified("authenticate")
	if !ok {
		return
	}

	sess, err := svc.Store.FindSessionByToken(c.Ctx.Request.Context(), params["token"])
	if err != nil || sess == nil {
		c.audit(agg.Identity, "authenticate", params, "session not found", traceID)
		c.replyError(secret, vndPlayerUnknown, "Player session not found")
		return
	}

	fields, err := c.balanceFields(sess)
	if err != nil {
		c.audit(agg.Identity, "authenticate", params, "wallet error", traceID)
		c.replyError(secret, vndInternal, "Internal error")
		return
	}
	fields["userId"] = sess.PlayerID
	fields["token"] = sess.Token
	fields["error"] = "0"
	fields["description"] = "Success"

	c.audit(agg.Identity, "authenticate", params, "success", traceID)
	c.reply(secret, fields, nil)
}

// Balance 余额查询
func (c *PragmaticController) Balance() {
	traceID := helper.GetTraceID(c.Ctx)
	params, agg, secret, ok := c.verified("balance")
	if !ok {
		return
	}

	sess, err := svc.Store.FindSessionByToken(c.Ctx.Request.Context(), params["token"])
	if err != nil || sess == nil {
		c.audit(agg.Identity, "balance", params, "session not found", traceID)
		c.replyError(secret, vndPlayerUnknown, "Player session not found")
		return
	}

	fields, err := c.balanceFields(sess)
	if err != nil {
		c.audit(agg.Identity, "balance", params, "wallet error", traceID)
		c.replyError(secret, vndInternal, "Internal error")
		return
	}
	fields["error"] = "0"
	fields["description"] = "Success"

	c.audit(agg.Identity, "balance", params, "success", traceID)
	c.reply(secret, fields, nil)
}

// parseVendorAmount 厂商十进制金额 -> 系统最小单位
func parseVendorAmount(s, code string) (int64, bool) {
	d, ok := chelper.ParseAmount(s)
	if !ok {
		return 0, false
	}
	return currency.ToSystem(d, code), true
}

// Bet 下注回调 -> Place
func (c *PragmaticController) Bet() {
	traceID := helper.GetTraceID(c.Ctx)
	params, agg, secret, ok := c.verified("bet")
	if !ok {
		return
	}

	sess, err := svc.Store.FindSessionByToken(c.Ctx.Request.Context(), params["token"])
	if err != nil || sess == nil {
		c.audit(agg.Identity, "bet", params, "session not found", traceID)
		c.replyError(secret, vndPlayerUnknown, "Player session not found")
		return
	}

	amount, okAmt := parseVendorAmount(params["amount"], sess.Currency)
	if !okAmt {
		c.audit(agg.Identity, "bet", params, "bad amount", traceID)
		c.replyError(secret, vndInternal, "Invalid amount")
		return
	}

	out, err := svc.Spin.Place(c.Ctx.Request.Context(), service.PlaceInput{
		Token:         sess.Token,
		ExtRoundID:    params["roundId"],
		TransactionID: params["reference"],
		Amount:        amount,
		FreeSpinID:    params["bonusCode"],
		TraceID:       traceID,
	})
	c.settleReply(agg, secret, sess, "bet", params, out, err, traceID)
}

// Result 结算回调 -> Settle
func (c *PragmaticController) Result() {
	traceID := helper.GetTraceID(c.Ctx)
	params, agg, secret, ok := c.verified("result")
	if !ok {
		return
	}

	sess, err := svc.Store.FindSessionByToken(c.Ctx.Request.Context(), params["token"])
	if err != nil || sess == nil {
		c.audit(agg.Identity, "result", params, "session not found", traceID)
		c.replyError(secret, vndPlayerUnknown, "Player session not found")
		return
	}

	amount, okAmt := parseVendorAmount(params["amount"], sess.Currency)
	if !okAmt {
		c.audit(agg.Identity, "result", params, "bad amount", traceID)
		c.replyError(secret, vndInternal, "Invalid amount")
		return
	}

	out, err := svc.Spin.Settle(c.Ctx.Request.Context(), service.SettleInput{
		Token:         sess.Token,
		ExtRoundID:    params["roundId"],
		TransactionID: params["reference"],
		Amount:        amount,
		FreeSpinID:    params["bonusCode"],
		TraceID:       traceID,
	})
	c.settleReply(agg, secret, sess, "result", params, out, err, traceID)
}

// EndRound 回合关闭回调 -> CloseRound
func (c *PragmaticController) EndRound() {
	traceID := helper.GetTraceID(c.Ctx)
	params, agg, secret, ok := c.verified("end_round")
	if !ok {
		return
	}

	sess, err := svc.Store.FindSessionByToken(c.Ctx.Request.Context(), params["token"])
	if err != nil || sess == nil {
		c.audit(agg.Identity, "end_round", params, "session not found", traceID)
		c.replyError(secret, vndPlayerUnknown, "Player session not found")
		return
	}

	err = svc.Spin.CloseRound(c.Ctx.Request.Context(), sess.Token, params["roundId"], traceID)
	if err != nil {
		code, desc := errCode(err)
		c.audit(agg.Identity, "end_round", params, desc, traceID)
		c.replyError(secret, code, desc)
		return
	}

	fields, ferr := c.balanceFields(sess)
	if ferr != nil {
		fields = map[string]string{}
	}
	fields["error"] = "0"
	fields["description"] = "Success"

	c.audit(agg.Identity, "end_round", params, "success", traceID)
	c.reply(secret, fields, nil)
}

// Refund 退款回调 -> Rollback
func (c *PragmaticController) Refund() {
	traceID := helper.GetTraceID(c.Ctx)
	params, agg, secret, ok := c.verified("refund")
	if !ok {
		return
	}

	sess, err := svc.Store.FindSessionByToken(c.Ctx.Request.Context(), params["token"])
	if err != nil || sess == nil {
		c.audit(agg.Identity, "refund", params, "session not found", traceID)
		c.replyError(secret, vndPlayerUnknown, "Player session not found")
		return
	}

	out, err := svc.Spin.Rollback(c.Ctx.Request.Context(), service.RollbackInput{
		Token:         sess.Token,
		ExtRoundID:    params["roundId"],
		TransactionID: params["reference"],
		TraceID:       traceID,
	})
	c.settleReply(agg, secret, sess, "refund", params, out, err, traceID)
}

// Adjustment 调账回调：金额为负翻译为 Place（补扣），为正翻译为 Settle（补入）
func (c *PragmaticController) Adjustment() {
	traceID := helper.GetTraceID(c.Ctx)
	params, agg, secret, ok := c.verified("adjustment")
	if !ok {
		return
	}

	sess, err := svc.Store.FindSessionByToken(c.Ctx.Request.Context(), params["token"])
	if err != nil || sess == nil {
		c.audit(agg.Identity, "adjustment", params, "session not found", traceID)
		c.replyError(secret, vndPlayerUnknown, "Player session not found")
		return
	}

	raw := strings.TrimSpace(params["amount"])
	negative := strings.HasPrefix(raw, "-")
	amount, okAmt := parseVendorAmount(strings.TrimPrefix(raw, "-"), sess.Currency)
	if !okAmt {
		c.audit(agg.Identity, "adjustment", params, "bad amount", traceID)
		c.replyError(secret, vndInternal, "Invalid amount")
		return
	}

	var out *service.SpinOutput
	if negative {
		out, err = svc.Spin.Place(c.Ctx.Request.Context(), service.PlaceInput{
			Token:         sess.Token,
			ExtRoundID:    params["roundId"],
			TransactionID: params["reference"],
			Amount:        amount,
			TraceID:       traceID,
		})
	} else {
		out, err = svc.Spin.Settle(c.Ctx.Request.Context(), service.SettleInput{
			Token:         sess.Token,
			ExtRoundID:    params["roundId"],
			TransactionID: params["reference"],
			Amount:        amount,
			TraceID:       traceID,
		})
	}
	c.settleReply(agg, secret, sess, "adjustment", params, out, err, traceID)
}

// settleReply 资金回调的统一应答：成功附余额与交易号，失败映射厂商错误码
func (c *PragmaticController) settleReply(agg *model.AggregatorInfo, secret string, sess *model.Session,
	action string, params map[string]string, out *service.SpinOutput, err error, traceID string) {

	if err != nil {
		code, desc := errCode(err)
		c.audit(agg.Identity, action, params, desc, traceID)
		c.replyError(secret, code, desc)
		return
	}

	fields, ferr := c.balanceFields(sess)
	if ferr != nil {
		// 资金已动账，余额查询失败不应报错给厂商，降级为空余额字段
		fmt.Printf("[Callback] 应答余额查询失败: action=%s, error=%v, trace_id=%s\n", action, ferr, traceID)
		fields = map[string]string{"currency": sess.Currency}
	}
	fields["transactionId"] = fmt.Sprint(out.SpinID)
	fields["reference"] = out.TxID
	fields["error"] = "0"
	fields["description"] = "Success"

	c.audit(agg.Identity, action, params, "success", traceID)
	c.reply(secret, fields, nil)
}
