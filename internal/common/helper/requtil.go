package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 金额格式校验：非负，最多三位小数（覆盖三位小数币种，预编译正则）
var moneyRe = regexp.MustCompile(`^(?:0|[1-9]\d*)(?:\.\d{1,3})?$`)

// IsMoneyFormat 判断金额格式
func IsMoneyFormat(s string) bool {
	return moneyRe.MatchString(strings.TrimSpace(s))
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// -------- OpenSession helpers --------

// OpenSessionParsed 解析后的开启会话入参（与控制器/服务层解耦）
type OpenSessionParsed struct {
	GameIdentity string `json:"game_identity"`
	PlayerId     string `json:"player_id"`
	Currency     string `json:"currency"`
	Locale       string `json:"locale"`
	Platform     string `json:"platform"`
	LobbyUrl     string `json:"lobby_url"`
	Demo         bool   `json:"demo"`
}

func ParseOpenSessionFromJSON(r io.Reader) (OpenSessionParsed, bool, string) {
	var out OpenSessionParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return OpenSessionParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseOpenSessionFromForm(ctx *beegocontext.Context) (OpenSessionParsed, bool, string) {
	var out OpenSessionParsed
	out.GameIdentity = strings.TrimSpace(ctx.Input.Query("game_identity"))
	out.PlayerId = strings.TrimSpace(ctx.Input.Query("player_id"))
	out.Currency = strings.TrimSpace(ctx.Input.Query("currency"))
	out.Locale = strings.TrimSpace(ctx.Input.Query("locale"))
	out.Platform = strings.TrimSpace(ctx.Input.Query("platform"))
	out.LobbyUrl = strings.TrimSpace(ctx.Input.Query("lobby_url"))
	out.Demo = ctx.Input.Query("demo") == "1" || strings.EqualFold(ctx.Input.Query("demo"), "true")
	return out, true, ""
}

// ValidateOpenSession 对通用字段做二次校验（适用于 JSON 与 FORM）
func ValidateOpenSession(in *OpenSessionParsed) (bool, string) {
	if in.GameIdentity == "" || in.PlayerId == "" || in.Currency == "" {
		return false, "missing required fields: game_identity/player_id/currency"
	}
	if len(in.GameIdentity) > 128 || len(in.PlayerId) > 64 || len(in.Currency) > 8 {
		return false, "invalid request"
	}
	if in.Locale == "" {
		in.Locale = "en"
	}
	if in.Platform == "" {
		in.Platform = "desktop"
	}
	if !strings.EqualFold(in.Platform, "desktop") && !strings.EqualFold(in.Platform, "mobile") {
		return false, "platform must be desktop|mobile"
	}
	return true, ""
}

// ParseAndValidateOpenSession 按 Content-Type 自动解析并做统一校验
func ParseAndValidateOpenSession(ctx *beegocontext.Context) (OpenSessionParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseOpenSessionFromJSON, ParseOpenSessionFromForm)
	if !ok {
		return OpenSessionParsed{}, false, msg
	}
	if ok, msg := ValidateOpenSession(&out); !ok {
		return OpenSessionParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Freespin helpers --------

// FreespinCreateParsed 解析后的创建免费旋转入参；金额为十进制字符串
type FreespinCreateParsed struct {
	GameIdentity string `json:"game_identity"`
	PlayerId     string `json:"player_id"`
	Currency     string `json:"currency"`
	PresetId     string `json:"preset_id"`
	SpinCount    int    `json:"spin_count"`
	BetPerSpin   string `json:"bet_per_spin"`
	ExpireAt     int64  `json:"expire_at"`
}

func ParseFreespinCreateFromJSON(r io.Reader) (FreespinCreateParsed, bool, string) {
	var out FreespinCreateParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return FreespinCreateParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseFreespinCreateFromForm(ctx *beegocontext.Context) (FreespinCreateParsed, bool, string) {
	var out FreespinCreateParsed
	out.GameIdentity = strings.TrimSpace(ctx.Input.Query("game_identity"))
	out.PlayerId = strings.TrimSpace(ctx.Input.Query("player_id"))
	out.Currency = strings.TrimSpace(ctx.Input.Query("currency"))
	out.PresetId = strings.TrimSpace(ctx.Input.Query("preset_id"))
	out.BetPerSpin = strings.TrimSpace(ctx.Input.Query("bet_per_spin"))
	if sc := strings.TrimSpace(ctx.Input.Query("spin_count")); sc != "" {
		if n, err := strconv.Atoi(sc); err == nil {
			out.SpinCount = n
		}
	}
	if ts := strings.TrimSpace(ctx.Input.Query("expire_at")); ts != "" {
		if v, err := strconv.ParseInt(ts, 10, 64); err == nil {
			out.ExpireAt = v
		}
	}
	return out, true, ""
}

func ValidateFreespinCreate(in *FreespinCreateParsed) (bool, string) {
	if in.GameIdentity == "" || in.PlayerId == "" || in.Currency == "" {
		return false, "missing required fields: game_identity/player_id/currency"
	}
	if in.SpinCount <= 0 || in.SpinCount > 10000 {
		return false, "spin_count must be 1..10000"
	}
	if in.BetPerSpin == "" || !IsMoneyFormat(in.BetPerSpin) {
		return false, "bet_per_spin must be numeric with up to 3 decimals"
	}
	return true, ""
}

func ParseAndValidateFreespinCreate(ctx *beegocontext.Context) (FreespinCreateParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseFreespinCreateFromJSON, ParseFreespinCreateFromForm)
	if !ok {
		return FreespinCreateParsed{}, false, msg
	}
	if ok, msg := ValidateFreespinCreate(&out); !ok {
		return FreespinCreateParsed{}, false, msg
	}
	return out, true, ""
}
