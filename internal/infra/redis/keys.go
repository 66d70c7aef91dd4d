package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixSpinIdemResult：spin 写路径幂等"结果缓存"Key 的前缀。
	// 作用：缓存某个厂商交易号对应的第一次成功结果（JSON），用于后续重复回调直接返回。
	PrefixSpinIdemResult = "spin:idem:result:"
	// PrefixSpinIdemLock：spin 写路径幂等"进行中锁"Key 的前缀。
	// 作用：使用 SETNX + TTL 标记厂商交易号正在处理，吸收瞬时重复回调，减轻数据库压力。
	PrefixSpinIdemLock = "spin:idem:lock:"

	// PrefixSessionToken：会话令牌缓存，回调热路径减少一次 DB 查询
	PrefixSessionToken = "session:token:"
)

// SpinIdemResultKey：构造幂等"结果缓存"的完整 Key。
// 形如：spin:idem:result:{spin_type}:{ext_tx_id}
func SpinIdemResultKey(spinType, extTxID string) string {
	return PrefixSpinIdemResult + spinType + ":" + extTxID
}

// SpinIdemLockKey：构造幂等"进行中锁"的完整 Key。
// 形如：spin:idem:lock:{spin_type}:{ext_tx_id}
func SpinIdemLockKey(spinType, extTxID string) string {
	return PrefixSpinIdemLock + spinType + ":" + extTxID
}

// SessionTokenKey：构造会话令牌缓存 Key。形如：session:token:{token}
func SessionTokenKey(token string) string { return PrefixSessionToken + token }
