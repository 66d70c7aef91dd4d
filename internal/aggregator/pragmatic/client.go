package pragmatic

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"agg-server/common"
	"agg-server/common/helper"
	"agg-server/internal/aggregator"
)

// 厂商网关客户端：每个端点一个独立路径，请求为表单编码 POST，
// 全部参数参与签名（hash 键自身除外）。应答为 JSON，error=="0" 表示成功。

type client struct {
	gateway     string // 形如 https://api.vendor.com/IntegrationService/v3/http
	secureLogin string // 运营商接入账号，随所有请求携带
	secret      string
}

func newClient(cfg map[string]string) (*client, error) {
	c := &client{
		gateway:     strings.TrimRight(cfg["gateway"], "/"),
		secureLogin: cfg["secure_login"],
		secret:      cfg["secret"],
	}
	if c.gateway == "" || c.secureLogin == "" || c.secret == "" {
		return nil, fmt.Errorf("pragmatic config incomplete: need gateway/secure_login/secret")
	}
	return c, nil
}

// baseResp 所有端点共有的应答头
type baseResp struct {
	Error       string `json:"error"`
	Description string `json:"description"`
}

func (r *baseResp) ok() bool { return r.Error == "0" }

// postForm 签名后以表单编码 POST；dest 指向具体端点的应答结构
func (c *client) postForm(ctx context.Context, path string, params map[string]string, dest interface{}) error {
	return c.post(ctx, path, params, nil, dest)
}

// post 通用出站：params 参与签名并表单编码；body 非空时作为 JSON 正文携带，
// 签名参数转移至查询串（免费旋转创建端点的双载荷形态）
func (c *client) post(ctx context.Context, path string, params map[string]string, body []byte, dest interface{}) error {
	if params == nil {
		params = map[string]string{}
	}
	params["secureLogin"] = c.secureLogin
	hash := Sign(params, c.secret)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("hash", hash)

	uri := c.gateway + path
	var (
		reqBody []byte
		headers map[string]string
	)
	if body != nil {
		uri += "?" + form.Encode()
		reqBody = body
		headers = map[string]string{"Content-Type": "application/json"}
	} else {
		reqBody = []byte(form.Encode())
		headers = map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	}

	respBytes, status, err := helper.HttpDoTimeoutForVendor(reqBody, "POST", uri, headers, helper.VendorTimeout)
	if err != nil {
		return &aggregator.UpstreamError{Vendor: "pragmatic", Action: path, Status: status, Msg: err.Error()}
	}
	if status != 200 {
		return &aggregator.UpstreamError{Vendor: "pragmatic", Action: path, Status: status, Msg: "http status"}
	}
	if err := common.JsonUnmarshal(respBytes, dest); err != nil {
		return &aggregator.UpstreamError{Vendor: "pragmatic", Action: path, Status: status, Msg: "malformed response: " + err.Error()}
	}
	return nil
}

// fail 将非成功应答翻译为上游错误
func (c *client) fail(path string, r baseResp) error {
	return &aggregator.UpstreamError{Vendor: "pragmatic", Action: path, Status: 200, Msg: fmt.Sprintf("error=%s %s", r.Error, r.Description)}
}
