package pragmatic

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// 签名算法（请求与应答同一套）：
// 参数按键名字典序排列，拼接为 key=value 并以 & 连接，
// 末尾直接追加密钥（无分隔符），取 MD5 小写十六进制。
// 例：{secureLogin:abc, symbol:g1, currency:EUR} + "s3cr3t"
//   -> md5("currency=EUR&secureLogin=abc&symbol=g1s3cr3t")

// Sign 计算参数签名；params 中不应包含 hash 键
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	sb.WriteString(secret)

	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// Verify 校验厂商请求签名（常数时间比较没有必要：hash 不是凭证，密钥不经网络传输）
func Verify(params map[string]string, secret, hash string) bool {
	if hash == "" {
		return false
	}
	return Sign(params, secret) == strings.ToLower(hash)
}
