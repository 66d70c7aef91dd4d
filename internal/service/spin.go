package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	infrds "agg-server/internal/infra/redis"
	"agg-server/internal/metrics"
	"agg-server/internal/model"
	"agg-server/internal/state"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// 处理 spin 账本写路径：place / settle / rollback / closeRound。
// 并发控制完全依赖唯一约束（回合 upsert + 厂商交易号唯一键），
// 不做任何行锁；Redis 锁/结果缓存仅作为吸收瞬时重复回调的快路径。

const (
	// Redis 进行中锁 TTL：略大于厂商回调超时即可，吸收瞬时重复
	idemLockTTL = 15 * time.Second
	// 结果缓存 TTL：覆盖厂商侧"短时重试"窗口
	idemResultTTL = 2 * time.Minute
)

// PlaceInput 下注输入；金额为系统最小单位
type PlaceInput struct {
	Token         string
	ExtRoundID    string
	TransactionID string
	Amount        int64
	FreeSpinID    string // 非空即免费旋转模式，跳过钱包
	TraceID       string
}

// SettleInput 结算输入
type SettleInput struct {
	Token         string
	ExtRoundID    string
	TransactionID string
	Amount        int64
	FreeSpinID    string
	TraceID       string
}

// RollbackInput 冲正输入
type RollbackInput struct {
	Token         string
	ExtRoundID    string
	TransactionID string
	TraceID       string
}

// SpinOutput 写路径统一输出（重复请求返回首次结果）
type SpinOutput struct {
	SpinID  int64  `json:"spin_id"`
	RoundID int64  `json:"round_id"`
	Real    int64  `json:"real"`
	Bonus   int64  `json:"bonus"`
	TxID    string `json:"tx_id"`
}

type SpinService interface {
	Place(ctx context.Context, in PlaceInput) (*SpinOutput, error)
	Settle(ctx context.Context, in SettleInput) (*SpinOutput, error)
	Rollback(ctx context.Context, in RollbackInput) (*SpinOutput, error)
	CloseRound(ctx context.Context, token, extRoundID, traceID string) error
}

type spinService struct {
	ledger  Ledger
	catalog Catalog
	wallet  WalletPort
	player  PlayerPort
	events  EventPublisher
}

func NewSpinService(ledger Ledger, catalog Catalog, wallet WalletPort, player PlayerPort, events EventPublisher) SpinService {
	return &spinService{ledger: ledger, catalog: catalog, wallet: wallet, player: player, events: events}
}

// Place 下注主流程
func (s *spinService) Place(ctx context.Context, in PlaceInput) (*SpinOutput, error) {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordSpin(result, "place", start) }()

	fmt.Printf("[Spin] 收到下注请求: ext_round_id=%s, tx_id=%s, amount=%d, free_spin_id=%s, trace_id=%s\n",
		in.ExtRoundID, in.TransactionID, in.Amount, in.FreeSpinID, in.TraceID)

	if in.Amount <= 0 {
		fmt.Printf("[Spin] 下注金额必须大于0: amount=%d, trace_id=%s\n", in.Amount, in.TraceID)
		return nil, ErrInvalidAmount
	}

	// Redis 快路径 + 进行中锁
	release, cached, err := s.idemEnter(ctx, "place", in.TransactionID, in.TraceID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		result = "success"
		return cached, nil
	}
	defer release()

	sess, err := s.resolveSession(ctx, in.Token, in.TraceID)
	if err != nil {
		return nil, err
	}

	// DB 幂等回读：同交易号的 PLACE 已落库则直接返回首次结果
	if prev, err := s.ledger.FindSpinByExtTx(ctx, in.TransactionID, model.SpinPlace); err != nil {
		return nil, err
	} else if prev != nil {
		fmt.Printf("[Spin] 交易号已处理，返回首次结果: tx_id=%s, spin_id=%d, trace_id=%s\n",
			in.TransactionID, prev.ID, in.TraceID)
		result = "success"
		return s.finish(ctx, "place", in.TransactionID, spinOut(prev))
	}

	// 原子 find-or-create：并发同 key 请求收敛到同一行
	round, err := s.ledger.FindOrCreateRound(ctx, sess.ID, sess.GameID, in.ExtRoundID)
	if err != nil {
		return nil, fmt.Errorf("find-or-create round: %w", err)
	}
	if round.Finished == 1 {
		fmt.Printf("[Spin] 回合已结束，拒绝下注: round_id=%d, ext_round_id=%s, trace_id=%s\n",
			round.ID, in.ExtRoundID, in.TraceID)
		return nil, ErrRoundFinished
	}

	// 免费旋转模式：纯账本记录，real/bonus 置零，不触钱包
	if in.FreeSpinID != "" {
		if err := s.checkFreespin(ctx, in.FreeSpinID, in.TraceID); err != nil {
			return nil, err
		}
		sp := &model.Spin{
			RoundID:    sql.NullInt64{Int64: round.ID, Valid: true},
			SpinType:   model.SpinPlace,
			Amount:     in.Amount,
			Currency:   sess.Currency,
			ExtTxID:    in.TransactionID,
			FreeSpinID: sql.NullString{String: in.FreeSpinID, Valid: true},
		}
		if err := s.insertSpin(ctx, "place", sp, in.TraceID); err != nil {
			return nil, err
		}
		s.publish(ctx, "spin_placed", sp, sess, in.TraceID)
		result = "success"
		return s.finish(ctx, "place", in.TransactionID, spinOut(sp))
	}

	// 余额与限额为独立读，并发取回后合并校验
	balance, limit, hasLimit, err := s.fetchBalanceAndLimit(ctx, sess.PlayerID, in.TraceID)
	if err != nil {
		return nil, err
	}

	// 游戏关闭赠金下注时，先清零赠金分量再做校验
	variant, err := s.catalog.FindVariant(ctx, sess.GameID, sess.AggregatorID)
	if err != nil {
		return nil, err
	}
	if variant != nil && variant.BonusBetEnabled == 0 {
		balance.Bonus = 0
	}

	if hasLimit && in.Amount > limit {
		fmt.Printf("[Spin] 超过玩家限额: amount=%d, limit=%d, player_id=%s, trace_id=%s\n",
			in.Amount, limit, sess.PlayerID, in.TraceID)
		return nil, ErrBetLimitExceeded
	}
	if in.Amount > balance.Total() {
		fmt.Printf("[Spin] 余额不足: amount=%d, real=%d, bonus=%d, player_id=%s, trace_id=%s\n",
			in.Amount, balance.Real, balance.Bonus, sess.PlayerID, in.TraceID)
		return nil, ErrInsufficientBalance
	}

	// 拆分：真实资金优先，赠金补足
	real := in.Amount
	if balance.Real < real {
		real = balance.Real
	}
	bonus := in.Amount - real

	sp := &model.Spin{
		RoundID:     sql.NullInt64{Int64: round.ID, Valid: true},
		SpinType:    model.SpinPlace,
		Amount:      in.Amount,
		RealAmount:  real,
		BonusAmount: bonus,
		Currency:    sess.Currency,
		ExtTxID:     in.TransactionID,
	}
	if err := s.insertSpin(ctx, "place", sp, in.TraceID); err != nil {
		return nil, err
	}

	// 先落账本再扣款；扣款失败翻状态为 wallet_failed，账本行保留为"已尝试未确认"的记录
	if err := s.wallet.Withdraw(ctx, sess.PlayerID, strconv.FormatInt(sp.ID, 10), sess.Currency, real, bonus); err != nil {
		fmt.Printf("[Spin] 钱包扣款失败，标记补偿: spin_id=%d, error=%v, trace_id=%s\n",
			sp.ID, err, in.TraceID)
		if me := s.ledger.MarkSpinWalletFailed(ctx, sp.ID); me != nil {
			fmt.Printf("[Spin] 补偿标记失败: spin_id=%d, error=%v, trace_id=%s\n", sp.ID, me, in.TraceID)
		}
		return nil, fmt.Errorf("wallet withdraw: %w", err)
	}

	s.publish(ctx, "spin_placed", sp, sess, in.TraceID)
	result = "success"
	return s.finish(ctx, "place", in.TransactionID, spinOut(sp))
}

// Settle 结算主流程
func (s *spinService) Settle(ctx context.Context, in SettleInput) (*SpinOutput, error) {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordSpin(result, "settle", start) }()

	fmt.Printf("[Spin] 收到结算请求: ext_round_id=%s, tx_id=%s, amount=%d, free_spin_id=%s, trace_id=%s\n",
		in.ExtRoundID, in.TransactionID, in.Amount, in.FreeSpinID, in.TraceID)

	if in.Amount < 0 {
		return nil, ErrInvalidAmount
	}

	release, cached, err := s.idemEnter(ctx, "settle", in.TransactionID, in.TraceID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		result = "success"
		return cached, nil
	}
	defer release()

	sess, err := s.resolveSession(ctx, in.Token, in.TraceID)
	if err != nil {
		return nil, err
	}

	if prev, err := s.ledger.FindSpinByExtTx(ctx, in.TransactionID, model.SpinSettle); err != nil {
		return nil, err
	} else if prev != nil {
		fmt.Printf("[Spin] 交易号已处理，返回首次结果: tx_id=%s, spin_id=%d, trace_id=%s\n",
			in.TransactionID, prev.ID, in.TraceID)
		result = "success"
		return s.finish(ctx, "settle", in.TransactionID, spinOut(prev))
	}

	round, err := s.ledger.FindRound(ctx, sess.ID, in.ExtRoundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		fmt.Printf("[Spin] 结算回合不存在: ext_round_id=%s, trace_id=%s\n", in.ExtRoundID, in.TraceID)
		return nil, ErrRoundNotFound
	}
	if round.Finished == 1 {
		return nil, ErrRoundFinished
	}

	// 无匹配下注的结算视为已关闭/非法回合
	place, err := s.ledger.FindPlaceSpin(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	if place == nil {
		fmt.Printf("[Spin] 回合无下注记录，拒绝结算: round_id=%d, trace_id=%s\n", round.ID, in.TraceID)
		return nil, ErrRoundFinished
	}

	sp := &model.Spin{
		RoundID:   sql.NullInt64{Int64: round.ID, Valid: true},
		SpinType:  model.SpinSettle,
		Amount:    in.Amount,
		Currency:  sess.Currency,
		ExtTxID:   in.TransactionID,
		RefSpinID: sql.NullInt64{Int64: place.ID, Valid: true},
	}

	if in.FreeSpinID != "" {
		// 免费旋转结算同样纯账本；下注行已引用同一活动时视为有效续局
		// （活动在下注后到期不阻塞已开局的结算），首次引用则按使用时校验
		if !place.FreeSpinID.Valid || place.FreeSpinID.String != in.FreeSpinID {
			if err := s.checkFreespin(ctx, in.FreeSpinID, in.TraceID); err != nil {
				return nil, err
			}
		}
		sp.FreeSpinID = sql.NullString{String: in.FreeSpinID, Valid: true}
		if err := s.insertSpin(ctx, "settle", sp, in.TraceID); err != nil {
			return nil, err
		}
		s.publish(ctx, "spin_settled", sp, sess, in.TraceID)
		result = "success"
		return s.finish(ctx, "settle", in.TransactionID, spinOut(sp))
	}

	// 赠金参与过的下注，赢额全部记赠金；否则全部记真实资金
	// （赠金及赠金带来的赢额永不转为真实资金）
	if place.BonusAmount > 0 {
		sp.BonusAmount = in.Amount
	} else {
		sp.RealAmount = in.Amount
	}

	if err := s.insertSpin(ctx, "settle", sp, in.TraceID); err != nil {
		return nil, err
	}

	if err := s.wallet.Deposit(ctx, sess.PlayerID, strconv.FormatInt(sp.ID, 10), sess.Currency, sp.RealAmount, sp.BonusAmount); err != nil {
		fmt.Printf("[Spin] 钱包入账失败，标记补偿: spin_id=%d, error=%v, trace_id=%s\n",
			sp.ID, err, in.TraceID)
		if me := s.ledger.MarkSpinWalletFailed(ctx, sp.ID); me != nil {
			fmt.Printf("[Spin] 补偿标记失败: spin_id=%d, error=%v, trace_id=%s\n", sp.ID, me, in.TraceID)
		}
		return nil, fmt.Errorf("wallet deposit: %w", err)
	}

	s.publish(ctx, "spin_settled", sp, sess, in.TraceID)
	result = "success"
	return s.finish(ctx, "settle", in.TransactionID, spinOut(sp))
}

// Rollback 冲正：目标为该回合最后一条尚未被冲正的非 ROLLBACK 行。
// 冲正不重新推导金额，仅作账本标记 + 尽力而为的钱包补偿信号。
func (s *spinService) Rollback(ctx context.Context, in RollbackInput) (*SpinOutput, error) {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordSpin(result, "rollback", start) }()

	fmt.Printf("[Spin] 收到冲正请求: ext_round_id=%s, tx_id=%s, trace_id=%s\n",
		in.ExtRoundID, in.TransactionID, in.TraceID)

	release, cached, err := s.idemEnter(ctx, "rollback", in.TransactionID, in.TraceID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		result = "success"
		return cached, nil
	}
	defer release()

	sess, err := s.resolveSession(ctx, in.Token, in.TraceID)
	if err != nil {
		return nil, err
	}

	if prev, err := s.ledger.FindSpinByExtTx(ctx, in.TransactionID, model.SpinRollback); err != nil {
		return nil, err
	} else if prev != nil {
		result = "success"
		return s.finish(ctx, "rollback", in.TransactionID, spinOut(prev))
	}

	round, err := s.ledger.FindRound(ctx, sess.ID, in.ExtRoundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}

	target, err := s.ledger.FindRollbackTarget(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		fmt.Printf("[Spin] 无可冲正记录: round_id=%d, trace_id=%s\n", round.ID, in.TraceID)
		return nil, ErrSpinNotFound
	}

	sp := &model.Spin{
		RoundID:     sql.NullInt64{Int64: round.ID, Valid: true},
		SpinType:    model.SpinRollback,
		Amount:      target.Amount,
		RealAmount:  target.RealAmount,
		BonusAmount: target.BonusAmount,
		Currency:    sess.Currency,
		ExtTxID:     in.TransactionID,
		RefSpinID:   sql.NullInt64{Int64: target.ID, Valid: true},
		FreeSpinID:  target.FreeSpinID,
	}
	if err := s.insertSpin(ctx, "rollback", sp, in.TraceID); err != nil {
		return nil, err
	}

	if !target.FreeSpinID.Valid {
		if err := s.wallet.Rollback(ctx, sess.PlayerID, strconv.FormatInt(target.ID, 10)); err != nil {
			// 尽力而为：钱包补偿失败不推翻账本标记，留给对账
			fmt.Printf("[Spin] 钱包冲正失败: target_spin_id=%d, error=%v, trace_id=%s\n",
				target.ID, err, in.TraceID)
		}
	}

	s.publish(ctx, "spin_rolled_back", sp, sess, in.TraceID)
	result = "success"
	return s.finish(ctx, "rollback", in.TransactionID, spinOut(sp))
}

// CloseRound 关闭回合；重复关闭为幂等空操作
func (s *spinService) CloseRound(ctx context.Context, token, extRoundID, traceID string) error {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordSpin(result, "close", start) }()

	sess, err := s.resolveSession(ctx, token, traceID)
	if err != nil {
		return err
	}

	round, err := s.ledger.FindRound(ctx, sess.ID, extRoundID)
	if err != nil {
		return err
	}
	if round == nil {
		return ErrRoundNotFound
	}
	if round.Finished == 1 {
		result = "success"
		return nil
	}

	if err := s.ledger.FinishRound(ctx, round.ID); err != nil {
		return err
	}

	fmt.Printf("[Spin] 回合已关闭: round_id=%d, ext_round_id=%s, trace_id=%s\n",
		round.ID, extRoundID, traceID)
	s.publish(ctx, "round_closed", &model.Spin{RoundID: sql.NullInt64{Int64: round.ID, Valid: true}}, sess, traceID)
	result = "success"
	return nil
}

// ---- 内部辅助 ----

func (s *spinService) resolveSession(ctx context.Context, token, traceID string) (*model.Session, error) {
	sess, err := s.ledger.FindSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		fmt.Printf("[Spin] 会话不存在: token=%s, trace_id=%s\n", token, traceID)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// checkFreespin 免费旋转请求的使用时校验：本地登记的活动进入终态
// （cancelled/expired/finished）后拒绝；本地无登记的活动不拦截
// （厂商侧直建的活动以厂商为准，账本仍完整记账）
func (s *spinService) checkFreespin(ctx context.Context, extID, traceID string) error {
	campaign, err := s.catalog.FindFreespinByExtID(ctx, extID)
	if err != nil {
		return err
	}
	if campaign != nil && state.Terminal(campaign.Status) {
		fmt.Printf("[Spin] 免费旋转活动已终态，拒绝: free_spin_id=%s, status=%s, trace_id=%s\n",
			extID, campaign.Status, traceID)
		return ErrFreespinUnavailable
	}
	return nil
}

// fetchBalanceAndLimit 余额与限额并发取回，任一失败则整体失败
func (s *spinService) fetchBalanceAndLimit(ctx context.Context, playerID, traceID string) (*Balance, int64, bool, error) {
	type balRes struct {
		b   *Balance
		err error
	}
	type limRes struct {
		limit int64
		ok    bool
		err   error
	}

	balCh := make(chan balRes, 1)
	limCh := make(chan limRes, 1)

	go func() {
		b, err := s.wallet.FindBalance(ctx, playerID)
		balCh <- balRes{b: b, err: err}
	}()
	go func() {
		limit, ok, err := s.player.FindCurrentBetLimit(ctx, playerID)
		limCh <- limRes{limit: limit, ok: ok, err: err}
	}()

	bal := <-balCh
	lim := <-limCh

	if bal.err != nil {
		fmt.Printf("[Spin] 查询余额失败: player_id=%s, error=%v, trace_id=%s\n", playerID, bal.err, traceID)
		return nil, 0, false, fmt.Errorf("wallet balance: %w", bal.err)
	}
	if lim.err != nil {
		fmt.Printf("[Spin] 查询限额失败: player_id=%s, error=%v, trace_id=%s\n", playerID, lim.err, traceID)
		return nil, 0, false, fmt.Errorf("player bet limit: %w", lim.err)
	}
	return bal.b, lim.limit, lim.ok, nil
}

// insertSpin 落账本行；唯一键冲突翻译为确定性的业务错误
func (s *spinService) insertSpin(ctx context.Context, op string, sp *model.Spin, traceID string) error {
	if err := s.ledger.InsertSpin(ctx, sp); err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			// place_uniq 冲突：并发请求已为该回合写入 PLACE
			if strings.Contains(me.Message, "place_uniq") {
				fmt.Printf("[Spin] 回合已有下注记录（并发竞争落败）: ext_tx_id=%s, trace_id=%s\n",
					sp.ExtTxID, traceID)
				return ErrDuplicatePlace
			}
			// 交易号冲突：重试请求，由调用方回读首次结果
			if prev, e := s.ledger.FindSpinByExtTx(ctx, sp.ExtTxID, sp.SpinType); e == nil && prev != nil {
				*sp = *prev
				return nil
			}
		}
		fmt.Printf("[Spin] 写入账本失败: op=%s, ext_tx_id=%s, error=%v, trace_id=%s\n",
			op, sp.ExtTxID, err, traceID)
		return err
	}
	return nil
}

// publish 领域事件落 outbox（失败仅记录，不影响主流程）
func (s *spinService) publish(ctx context.Context, topic string, sp *model.Spin, sess *model.Session, traceID string) {
	payload := map[string]any{
		"event":     topic,
		"spin_id":   sp.ID,
		"round_id":  sp.RoundID.Int64,
		"player_id": sess.PlayerID,
		"amount":    sp.Amount,
		"real":      sp.RealAmount,
		"bonus":     sp.BonusAmount,
		"currency":  sp.Currency,
		"trace_id":  traceID,
	}
	bizKey := sp.ExtTxID
	if bizKey == "" {
		bizKey = strconv.FormatInt(sp.RoundID.Int64, 10)
	}
	if err := s.events.Publish(ctx, topic, bizKey, payload); err != nil {
		fmt.Printf("[Spin] 写入事件失败: topic=%s, error=%v, trace_id=%s\n", topic, err, traceID)
	}
}

// idemEnter Redis 幂等快路径：结果缓存命中直接返回；否则抢进行中锁。
// 返回的 release 用 Lua 原子释放（仅当锁值匹配）；Redis 未配置时全部降级为空操作。
func (s *spinService) idemEnter(ctx context.Context, op, extTxID, traceID string) (release func(), cached *SpinOutput, err error) {
	release = func() {}
	r := infrds.Client()
	if r == nil {
		return release, nil, nil
	}

	resultKey := infrds.SpinIdemResultKey(op, extTxID)
	if bs, _ := r.Get(ctx, resultKey).Bytes(); len(bs) > 0 {
		var out SpinOutput
		if json.Unmarshal(bs, &out) == nil {
			fmt.Printf("[Spin] Redis 缓存命中: op=%s, tx_id=%s, trace_id=%s\n", op, extTxID, traceID)
			return release, &out, nil
		}
	}

	lockKey := infrds.SpinIdemLockKey(op, extTxID)
	lockValue := uuid.New().String()
	ok, _ := r.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
	if !ok {
		// 二次检查结果缓存，仍无则判定为进行中的重复请求
		if bs, _ := r.Get(ctx, resultKey).Bytes(); len(bs) > 0 {
			var out SpinOutput
			if json.Unmarshal(bs, &out) == nil {
				return release, &out, nil
			}
		}
		fmt.Printf("[Spin] 重复请求进行中: op=%s, tx_id=%s, trace_id=%s\n", op, extTxID, traceID)
		return release, nil, ErrDuplicateInFlight
	}

	release = func() {
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		if _, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result(); err != nil {
			fmt.Printf("[Spin] 释放分布式锁失败: op=%s, tx_id=%s, error=%v, trace_id=%s\n",
				op, extTxID, err, traceID)
		}
	}
	return release, nil, nil
}

// finish 写入结果缓存并返回（降级容错）
func (s *spinService) finish(ctx context.Context, op, extTxID string, out *SpinOutput) (*SpinOutput, error) {
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.SpinIdemResultKey(op, extTxID), b, idemResultTTL).Err()
		}
	}
	return out, nil
}

func spinOut(sp *model.Spin) *SpinOutput {
	return &SpinOutput{
		SpinID:  sp.ID,
		RoundID: sp.RoundID.Int64,
		Real:    sp.RealAmount,
		Bonus:   sp.BonusAmount,
		TxID:    sp.ExtTxID,
	}
}
