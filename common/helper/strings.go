package helper

import "strings"

// BuildFullURL 根据 host 和相对路径拼接完整 URL
// - 如果 path 为空，返回空字符串
// - 如果 path 已经是 http/https 开头，原样返回
// - 否则使用 host 和 path 进行拼接，避免重复斜杠
func BuildFullURL(host, path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	p := strings.TrimSpace(path)
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	h := strings.TrimRight(strings.TrimSpace(host), "/")
	p = strings.TrimLeft(p, "/")
	if h == "" {
		return p
	}
	return h + "/" + p
}

// SplitCSV 拆分逗号分隔列表并去除空白项（目录表 locales/platforms 的存储约定）
func SplitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// JoinCSV SplitCSV 的逆操作
func JoinCSV(items []string) string {
	return strings.Join(items, ",")
}

// ContainsFold 大小写不敏感的包含判断
func ContainsFold(items []string, target string) bool {
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it), strings.TrimSpace(target)) {
			return true
		}
	}
	return false
}
