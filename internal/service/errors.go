package service

import "errors"

// 业务错误哨兵：预期内的失败一律以显式错误值返回，
// 由 controller 层映射为业务码；上游/IO 失败用 %w 包裹原因上抛
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrRoundNotFound       = errors.New("round not found")
	ErrRoundFinished       = errors.New("round already finished")
	ErrSpinNotFound        = errors.New("spin not found")
	ErrDuplicatePlace      = errors.New("round already carries a place spin")
	ErrDuplicateInFlight   = errors.New("duplicate request in flight")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBetLimitExceeded    = errors.New("bet limit exceeded")
	ErrGameNotFound        = errors.New("game not found")
	ErrAggregatorNotFound  = errors.New("aggregator not found")
	ErrFreespinNotEnabled  = errors.New("free spins not enabled for game")
	ErrFreespinNotFound    = errors.New("freespin campaign not found")
	ErrFreespinUnavailable = errors.New("freespin campaign no longer active")
	ErrLocaleUnsupported   = errors.New("locale not supported by game")
	ErrDeviceUnsupported   = errors.New("platform not supported by game")
	ErrInvalidAmount       = errors.New("invalid amount")
)
