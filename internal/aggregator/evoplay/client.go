package evoplay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"agg-server/common"
	"agg-server/common/helper"
	"agg-server/internal/aggregator"
)

// 共享密钥 RPC 客户端：单一网关端点，action + secret 作为请求参数，
// 目录/启动类动作走 GET，免费旋转创建/取消走 POST JSON。
// 所有应答统一信封 {success, status, response}。

type client struct {
	gateway string
	secret  string
}

func newClient(cfg map[string]string) (*client, error) {
	c := &client{
		gateway: strings.TrimRight(cfg["gateway"], "/"),
		secret:  cfg["secret"],
	}
	if c.gateway == "" || c.secret == "" {
		return nil, fmt.Errorf("evoplay config incomplete: need gateway/secret")
	}
	return c, nil
}

// envelope 厂商统一应答信封；response 延迟解码
type envelope struct {
	Success  bool              `json:"success"`
	Status   int               `json:"status"`
	Response json.RawMessage `json:"response"`
}

// get 目录/启动类动作：action 与 secret 并入查询参数
func (c *client) get(ctx context.Context, action string, params map[string]string, dest interface{}) error {
	q := url.Values{}
	q.Set("action", action)
	q.Set("secret", c.secret)
	for k, v := range params {
		q.Set(k, v)
	}

	respBytes, status, err := helper.HttpDoTimeoutForVendor(nil, "GET", c.gateway+"?"+q.Encode(), nil, helper.VendorTimeout)
	if err != nil {
		return &aggregator.UpstreamError{Vendor: "evoplay", Action: action, Status: status, Msg: err.Error()}
	}
	return c.decode(action, status, respBytes, dest)
}

// postJSON 免费旋转创建/取消：action 与 secret 并入 JSON 正文
func (c *client) postJSON(ctx context.Context, action string, payload map[string]interface{}, dest interface{}) error {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["action"] = action
	payload["secret"] = c.secret

	body, err := common.JsonMarshal(payload)
	if err != nil {
		return err
	}

	headers := map[string]string{"Content-Type": "application/json"}
	respBytes, status, err := helper.HttpDoTimeoutForVendor(body, "POST", c.gateway, headers, helper.VendorTimeout)
	if err != nil {
		return &aggregator.UpstreamError{Vendor: "evoplay", Action: action, Status: status, Msg: err.Error()}
	}
	return c.decode(action, status, respBytes, dest)
}

// decode 拆信封：HTTP 200 且 success=true 才解码业务应答
func (c *client) decode(action string, status int, raw []byte, dest interface{}) error {
	if status != 200 {
		return &aggregator.UpstreamError{Vendor: "evoplay", Action: action, Status: status, Msg: "http status"}
	}
	var env envelope
	if err := common.JsonUnmarshal(raw, &env); err != nil {
		return &aggregator.UpstreamError{Vendor: "evoplay", Action: action, Status: status, Msg: "malformed envelope: " + err.Error()}
	}
	if !env.Success {
		return &aggregator.UpstreamError{Vendor: "evoplay", Action: action, Status: env.Status, Msg: string(env.Response)}
	}
	if dest == nil {
		return nil
	}
	if err := common.JsonUnmarshal(env.Response, dest); err != nil {
		return &aggregator.UpstreamError{Vendor: "evoplay", Action: action, Status: env.Status, Msg: "malformed response: " + err.Error()}
	}
	return nil
}
