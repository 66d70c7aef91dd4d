package helper

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// 出站 HTTP 超时常量（聚合商网关/运营商钱包）
const (
	VendorTimeout = 8 * time.Second // 聚合商网关统一超时
	WalletTimeout = 3 * time.Second // 运营商钱包接口超时
)

// 并发统计指标
var (
	activeConnections int64 // 当前活跃连接数
	totalRequests     int64 // 总请求数
)

// 全局复用连接的HTTP客户端
var (
	globalClient = &fasthttp.Client{
		ReadTimeout:                   5 * time.Second,
		WriteTimeout:                  5 * time.Second,
		MaxIdleConnDuration:           90 * time.Second, // 连接空闲时间
		MaxConnsPerHost:               50,               // 每个主机最大连接数
		MaxConnWaitTimeout:            3 * time.Second,  // 等待连接超时
		DisableHeaderNamesNormalizing: true,
	}

	// 专用于聚合商网关的客户端 - 高并发优化
	vendorClient = &fasthttp.Client{
		ReadTimeout:                   VendorTimeout,
		WriteTimeout:                  VendorTimeout,
		MaxIdleConnDuration:           60 * time.Second,
		MaxConnsPerHost:               100,
		MaxConnWaitTimeout:            1 * time.Second,
		DisableHeaderNamesNormalizing: true,
	}
)

// HttpDoTimeout 通用出站请求（钱包/内部服务）
func HttpDoTimeout(requestBody []byte, method string, requestURI string, headers map[string]string, timeout time.Duration) ([]byte, int, error) {

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	defer func() {
		fasthttp.ReleaseResponse(resp)
		fasthttp.ReleaseRequest(req)
	}()

	req.SetRequestURI(requestURI)
	req.Header.SetMethod(method)

	switch method {
	case "POST", "PUT":
		req.SetBody(requestBody)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	err := globalClient.DoTimeout(req, resp, timeout)

	var respBytes []byte
	statusCode := 0
	if err == nil {
		respBytes = append(respBytes, resp.Body()...)
		statusCode = resp.StatusCode()
	}

	return respBytes, statusCode, errors.WithStack(err)
}

// HttpDoTimeoutForVendor 聚合商网关专用出站请求，走高并发客户端并记录并发统计
func HttpDoTimeoutForVendor(requestBody []byte, method string, requestURI string, headers map[string]string, timeout time.Duration) ([]byte, int, error) {
	atomic.AddInt64(&activeConnections, 1)
	atomic.AddInt64(&totalRequests, 1)
	defer atomic.AddInt64(&activeConnections, -1)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURI)
	req.Header.SetMethod(method)

	if method == "POST" {
		req.SetBody(requestBody)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	err := vendorClient.DoTimeout(req, resp, timeout)

	var respBytes []byte
	statusCode := 0
	if err == nil {
		respBytes = append(respBytes, resp.Body()...)
		statusCode = resp.StatusCode()
	}

	return respBytes, statusCode, errors.WithStack(err)
}

// GetConcurrencyStats 获取出站并发统计
func GetConcurrencyStats() (activeConns int64, totalReqs int64) {
	return atomic.LoadInt64(&activeConnections), atomic.LoadInt64(&totalRequests)
}
