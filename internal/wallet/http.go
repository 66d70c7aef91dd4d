package wallet

import (
	"context"
	"fmt"
	"strings"

	"agg-server/common"
	"agg-server/common/helper"
	"agg-server/internal/currency"
	"agg-server/internal/metrics"
	"agg-server/internal/service"
)

// 运营商钱包/玩家服务的 HTTP 适配器。
// 钱包接口为运营商内网服务，JSON over HTTP，金额为十进制字符串；
// 本层负责 decimal 与系统最小单位的换算与错误翻译。

type Client struct {
	gateway string // 形如 http://wallet.internal:8080
	apiKey  string
}

func NewClient(gateway, apiKey string) *Client {
	return &Client{gateway: strings.TrimRight(gateway, "/"), apiKey: apiKey}
}

// 编译期断言：Client 同时满足钱包与玩家限额端口
var (
	_ service.WalletPort = (*Client)(nil)
	_ service.PlayerPort = (*Client)(nil)
)

type walletResp struct {
	Code int    `json:"code"` // 0=成功
	Msg  string `json:"msg"`
	Data struct {
		Real     string `json:"real"`
		Bonus    string `json:"bonus"`
		Currency string `json:"currency"`
		Limit    string `json:"limit"` // 空串=无限额
	} `json:"data"`
}

func (c *Client) call(ctx context.Context, op, path string, payload map[string]interface{}) (*walletResp, error) {
	body, err := common.JsonMarshal(payload)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{
		"Content-Type": "application/json",
		"X-Api-Key":    c.apiKey,
	}

	respBytes, status, err := helper.HttpDoTimeout(body, "POST", c.gateway+path, headers, helper.WalletTimeout)
	metrics.RecordWalletCall(op, err)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", op, err)
	}
	if status != 200 {
		return nil, fmt.Errorf("wallet %s: http status %d", op, status)
	}

	var resp walletResp
	if err := common.JsonUnmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("wallet %s: malformed response: %w", op, err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("wallet %s: code=%d %s", op, resp.Code, resp.Msg)
	}
	return &resp, nil
}

func (c *Client) FindBalance(ctx context.Context, playerID string) (*service.Balance, error) {
	resp, err := c.call(ctx, "find_balance", "/wallet/balance", map[string]interface{}{
		"player_id": playerID,
	})
	if err != nil {
		return nil, err
	}

	real, ok1 := helper.ParseAmount(resp.Data.Real)
	bonus, ok2 := helper.ParseAmount(resp.Data.Bonus)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("wallet find_balance: bad amounts real=%q bonus=%q", resp.Data.Real, resp.Data.Bonus)
	}
	code := resp.Data.Currency
	return &service.Balance{
		Real:     currency.ToSystem(real, code),
		Bonus:    currency.ToSystem(bonus, code),
		Currency: code,
	}, nil
}

func (c *Client) Withdraw(ctx context.Context, playerID, txID, code string, real, bonus int64) error {
	_, err := c.call(ctx, "withdraw", "/wallet/withdraw", c.movePayload(playerID, txID, code, real, bonus))
	return err
}

func (c *Client) Deposit(ctx context.Context, playerID, txID, code string, real, bonus int64) error {
	_, err := c.call(ctx, "deposit", "/wallet/deposit", c.movePayload(playerID, txID, code, real, bonus))
	return err
}

func (c *Client) Rollback(ctx context.Context, playerID, txID string) error {
	_, err := c.call(ctx, "rollback", "/wallet/rollback", map[string]interface{}{
		"player_id": playerID,
		"tx_id":     txID,
	})
	return err
}

// FindCurrentBetLimit 查询玩家当前限额；运营商未配置限额时 ok=false
func (c *Client) FindCurrentBetLimit(ctx context.Context, playerID string) (int64, bool, error) {
	resp, err := c.call(ctx, "bet_limit", "/player/bet-limit", map[string]interface{}{
		"player_id": playerID,
	})
	if err != nil {
		return 0, false, err
	}
	if resp.Data.Limit == "" {
		return 0, false, nil
	}
	limit, ok := helper.ParseAmount(resp.Data.Limit)
	if !ok {
		return 0, false, fmt.Errorf("wallet bet_limit: bad limit %q", resp.Data.Limit)
	}
	return currency.ToSystem(limit, resp.Data.Currency), true, nil
}

func (c *Client) movePayload(playerID, txID, code string, real, bonus int64) map[string]interface{} {
	return map[string]interface{}{
		"player_id": playerID,
		"tx_id":     txID,
		"currency":  code,
		"real":      amountStr(real, code),
		"bonus":     amountStr(bonus, code),
	}
}

func amountStr(minor int64, code string) string {
	return currency.FromSystem(minor, code).String()
}
