package state

import "fmt"

// State 免费旋转活动状态
const (
	StateCreated   = "created"   // 已在厂商侧创建
	StateActive    = "active"    // 玩家已开始消耗
	StateCancelled = "cancelled" // 已取消(厂商确认)
	StateExpired   = "expired"   // 已过期
	StateFinished  = "finished"  // 全部旋转消耗完毕
)

// Event 活动事件
const (
	EvtActivate = "activate" // 首次出现该活动的账本行
	EvtCancel   = "cancel"
	EvtExpire   = "expire"
	EvtFinish   = "finish"
)

// NextState 根据当前状态与事件计算下一个状态，非法转换报错
func NextState(cur, evt string) (string, error) {
	switch cur {
	case StateCreated:
		switch evt {
		case EvtActivate:
			return StateActive, nil
		case EvtCancel:
			return StateCancelled, nil
		case EvtExpire:
			return StateExpired, nil
		}
	case StateActive:
		switch evt {
		case EvtFinish:
			return StateFinished, nil
		case EvtExpire:
			return StateExpired, nil
		case EvtCancel:
			return StateCancelled, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}

// Terminal 终态判定（终态后活动不再接受任何事件）
func Terminal(s string) bool {
	return s == StateCancelled || s == StateExpired || s == StateFinished
}
