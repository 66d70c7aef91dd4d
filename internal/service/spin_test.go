package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"agg-server/internal/model"
	"agg-server/internal/state"

	mysqlerr "github.com/go-sql-driver/mysql"
)

// 内存版账本/目录/钱包，模拟 MySQL 唯一约束行为（账本层唯一的并发控制手段）

type fakeLedger struct {
	sessions   map[string]*model.Session
	rounds     []*model.Round
	spins      []*model.Spin
	nextRound  int64
	nextSpin   int64
	walletFail []int64 // MarkSpinWalletFailed 记录
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{sessions: map[string]*model.Session{}, nextRound: 1, nextSpin: 1}
}

func (l *fakeLedger) addSession(sess *model.Session) { l.sessions[sess.Token] = sess }

func (l *fakeLedger) FindSessionByToken(_ context.Context, token string) (*model.Session, error) {
	return l.sessions[token], nil
}

func (l *fakeLedger) CreateSession(_ context.Context, sess *model.Session) error {
	sess.ID = int64(len(l.sessions) + 1)
	l.sessions[sess.Token] = sess
	return nil
}

func (l *fakeLedger) FindOrCreateRound(_ context.Context, sessionID, gameID int64, extID string) (*model.Round, error) {
	for _, r := range l.rounds {
		if r.SessionID == sessionID && r.ExtID == extID {
			return r, nil
		}
	}
	r := &model.Round{ID: l.nextRound, SessionID: sessionID, GameID: gameID, ExtID: extID}
	l.nextRound++
	l.rounds = append(l.rounds, r)
	return r, nil
}

func (l *fakeLedger) FindRound(_ context.Context, sessionID int64, extID string) (*model.Round, error) {
	for _, r := range l.rounds {
		if r.SessionID == sessionID && r.ExtID == extID {
			return r, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) FinishRound(_ context.Context, roundID int64) error {
	for _, r := range l.rounds {
		if r.ID == roundID {
			r.Finished = 1
		}
	}
	return nil
}

func (l *fakeLedger) InsertSpin(_ context.Context, sp *model.Spin) error {
	for _, prev := range l.spins {
		if prev.ExtTxID == sp.ExtTxID && prev.SpinType == sp.SpinType {
			return &mysqlerr.MySQLError{Number: 1062,
				Message: fmt.Sprintf("Duplicate entry '%s-%d' for key 'uniq_ext_tx'", sp.ExtTxID, sp.SpinType)}
		}
		if sp.SpinType == model.SpinPlace && prev.SpinType == model.SpinPlace &&
			prev.RoundID.Valid && sp.RoundID.Valid && prev.RoundID.Int64 == sp.RoundID.Int64 {
			return &mysqlerr.MySQLError{Number: 1062,
				Message: fmt.Sprintf("Duplicate entry '%d' for key 'place_uniq'", sp.RoundID.Int64)}
		}
	}
	sp.ID = l.nextSpin
	sp.Status = model.SpinConfirmed
	l.nextSpin++
	cp := *sp
	l.spins = append(l.spins, &cp)
	return nil
}

func (l *fakeLedger) FindSpinByExtTx(_ context.Context, extTxID string, spinType int8) (*model.Spin, error) {
	for _, sp := range l.spins {
		if sp.ExtTxID == extTxID && sp.SpinType == spinType {
			return sp, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) FindPlaceSpin(_ context.Context, roundID int64) (*model.Spin, error) {
	for _, sp := range l.spins {
		if sp.SpinType == model.SpinPlace && sp.RoundID.Valid && sp.RoundID.Int64 == roundID {
			return sp, nil
		}
	}
	return nil, nil
}

// FindRollbackTarget 回放 SQL 语义：回合内最后一条未被冲正引用的非 ROLLBACK 行
func (l *fakeLedger) FindRollbackTarget(_ context.Context, roundID int64) (*model.Spin, error) {
	referenced := map[int64]bool{}
	for _, sp := range l.spins {
		if sp.SpinType == model.SpinRollback && sp.RefSpinID.Valid {
			referenced[sp.RefSpinID.Int64] = true
		}
	}
	var target *model.Spin
	for _, sp := range l.spins {
		if sp.RoundID.Valid && sp.RoundID.Int64 == roundID &&
			sp.SpinType != model.SpinRollback && !referenced[sp.ID] {
			target = sp
		}
	}
	return target, nil
}

func (l *fakeLedger) ListSpins(_ context.Context, roundID int64, _ uint) ([]model.Spin, error) {
	var out []model.Spin
	for _, sp := range l.spins {
		if sp.RoundID.Valid && sp.RoundID.Int64 == roundID {
			out = append(out, *sp)
		}
	}
	return out, nil
}

func (l *fakeLedger) MarkSpinWalletFailed(_ context.Context, spinID int64) error {
	l.walletFail = append(l.walletFail, spinID)
	for _, sp := range l.spins {
		if sp.ID == spinID {
			sp.Status = model.SpinWalletFailed
		}
	}
	return nil
}

type fakeCatalog struct {
	aggregators map[int64]*model.AggregatorInfo
	providers   map[int64]*model.Provider
	games       map[string]*model.Game
	variants    map[int64]*model.GameVariant // keyed by game_id
	freespins   map[string]*model.FreespinCampaign
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		aggregators: map[int64]*model.AggregatorInfo{},
		providers:   map[int64]*model.Provider{},
		games:       map[string]*model.Game{},
		variants:    map[int64]*model.GameVariant{},
		freespins:   map[string]*model.FreespinCampaign{},
	}
}

func (c *fakeCatalog) FindAggregatorByIdentity(_ context.Context, identity string) (*model.AggregatorInfo, error) {
	for _, a := range c.aggregators {
		if a.Identity == identity {
			return a, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) FindAggregatorByID(_ context.Context, id int64) (*model.AggregatorInfo, error) {
	return c.aggregators[id], nil
}

func (c *fakeCatalog) FindActiveAggregatorByType(_ context.Context, aggType string) (*model.AggregatorInfo, error) {
	for _, a := range c.aggregators {
		if a.Type == aggType && a.Active == 1 {
			return a, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) FindProviderByID(_ context.Context, id int64) (*model.Provider, error) {
	return c.providers[id], nil
}

func (c *fakeCatalog) FindGameByIdentity(_ context.Context, identity string) (*model.Game, error) {
	return c.games[identity], nil
}

func (c *fakeCatalog) FindVariant(_ context.Context, gameID, _ int64) (*model.GameVariant, error) {
	return c.variants[gameID], nil
}

func (c *fakeCatalog) UpsertProvider(_ context.Context, p *model.Provider) (bool, error) {
	for _, prev := range c.providers {
		if prev.Name == p.Name && prev.AggregatorID == p.AggregatorID {
			p.ID = prev.ID
			return false, nil
		}
	}
	p.ID = int64(len(c.providers) + 1)
	c.providers[p.ID] = p
	return true, nil
}

func (c *fakeCatalog) UpsertGame(_ context.Context, g *model.Game) (bool, error) {
	if prev, ok := c.games[g.Identity]; ok {
		g.ID = prev.ID
		c.games[g.Identity] = g
		return false, nil
	}
	g.ID = int64(len(c.games) + 1)
	c.games[g.Identity] = g
	return true, nil
}

func (c *fakeCatalog) UpsertVariant(_ context.Context, v *model.GameVariant) error {
	c.variants[v.GameID] = v
	return nil
}

func (c *fakeCatalog) CreateFreespin(_ context.Context, f *model.FreespinCampaign) error {
	if _, ok := c.freespins[f.ExtID]; ok {
		return &mysqlerr.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uniq_ext_id'"}
	}
	f.ID = int64(len(c.freespins) + 1)
	c.freespins[f.ExtID] = f
	return nil
}

func (c *fakeCatalog) FindFreespinByExtID(_ context.Context, extID string) (*model.FreespinCampaign, error) {
	return c.freespins[extID], nil
}

func (c *fakeCatalog) SetFreespinStatus(_ context.Context, id int64, status string) error {
	for _, f := range c.freespins {
		if f.ID == id {
			f.Status = status
		}
	}
	return nil
}

func (c *fakeCatalog) ListDueFreespins(_ context.Context, nowMilli int64, limit int) ([]model.FreespinCampaign, error) {
	var out []model.FreespinCampaign
	for _, f := range c.freespins {
		if len(out) >= limit {
			break
		}
		if (f.Status == "created" || f.Status == "active") && f.ExpireAt > 0 && f.ExpireAt <= nowMilli {
			out = append(out, *f)
		}
	}
	return out, nil
}

type walletCall struct {
	op          string
	txID        string
	real, bonus int64
}

type fakeWallet struct {
	real, bonus  int64
	currency     string
	limit        int64
	hasLimit     bool
	failWithdraw bool
	failDeposit  bool
	calls        []walletCall
}

func (w *fakeWallet) FindBalance(_ context.Context, _ string) (*Balance, error) {
	return &Balance{Real: w.real, Bonus: w.bonus, Currency: w.currency}, nil
}

func (w *fakeWallet) Withdraw(_ context.Context, _, txID, _ string, real, bonus int64) error {
	if w.failWithdraw {
		return errors.New("wallet down")
	}
	w.calls = append(w.calls, walletCall{op: "withdraw", txID: txID, real: real, bonus: bonus})
	w.real -= real
	w.bonus -= bonus
	return nil
}

func (w *fakeWallet) Deposit(_ context.Context, _, txID, _ string, real, bonus int64) error {
	if w.failDeposit {
		return errors.New("wallet down")
	}
	w.calls = append(w.calls, walletCall{op: "deposit", txID: txID, real: real, bonus: bonus})
	w.real += real
	w.bonus += bonus
	return nil
}

func (w *fakeWallet) Rollback(_ context.Context, _, txID string) error {
	w.calls = append(w.calls, walletCall{op: "rollback", txID: txID})
	return nil
}

func (w *fakeWallet) FindCurrentBetLimit(_ context.Context, _ string) (int64, bool, error) {
	return w.limit, w.hasLimit, nil
}

type fakeEvents struct{ topics []string }

func (e *fakeEvents) Publish(_ context.Context, topic, _ string, _ any) error {
	e.topics = append(e.topics, topic)
	return nil
}

// ---- 组装 ----

func newSpinFixture() (*fakeLedger, *fakeCatalog, *fakeWallet, *fakeEvents, SpinService) {
	ledger := newFakeLedger()
	catalog := newFakeCatalog()
	wallet := &fakeWallet{real: 1000, bonus: 200, currency: "EUR"}
	events := &fakeEvents{}

	ledger.addSession(&model.Session{
		ID: 1, Token: "tok-1", GameID: 10, AggregatorID: 5,
		PlayerID: "p1", Currency: "EUR",
	})
	catalog.variants[10] = &model.GameVariant{
		GameID: 10, AggregatorID: 5, Symbol: "g1", BonusBetEnabled: 1,
		Locales: "en,de", Platforms: "desktop,mobile",
	}

	svc := NewSpinService(ledger, catalog, wallet, wallet, events)
	return ledger, catalog, wallet, events, svc
}

func TestPlaceSplitsRealThenBonus(t *testing.T) {
	_, _, wallet, events, svc := newSpinFixture()

	out, err := svc.Place(context.Background(), PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 1100,
	})
	if err != nil {
		t.Fatalf("place error: %v", err)
	}
	if out.Real != 1000 || out.Bonus != 100 {
		t.Fatalf("split mismatch: real=%d bonus=%d", out.Real, out.Bonus)
	}
	if len(wallet.calls) != 1 || wallet.calls[0].op != "withdraw" {
		t.Fatalf("expected one withdraw, got %v", wallet.calls)
	}
	if wallet.calls[0].real != 1000 || wallet.calls[0].bonus != 100 {
		t.Fatalf("withdraw amounts mismatch: %+v", wallet.calls[0])
	}
	if len(events.topics) != 1 || events.topics[0] != "spin_placed" {
		t.Fatalf("expected spin_placed event, got %v", events.topics)
	}
}

func TestPlaceInsufficientBalance(t *testing.T) {
	ledger, _, wallet, _, svc := newSpinFixture()

	_, err := svc.Place(context.Background(), PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 1300,
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(wallet.calls) != 0 {
		t.Fatalf("wallet must not be touched: %v", wallet.calls)
	}
	if len(ledger.spins) != 0 {
		t.Fatalf("no ledger row expected, got %d", len(ledger.spins))
	}
}

func TestPlaceBetLimitExceeded(t *testing.T) {
	_, _, wallet, _, svc := newSpinFixture()
	wallet.limit, wallet.hasLimit = 500, true

	_, err := svc.Place(context.Background(), PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 600,
	})
	if !errors.Is(err, ErrBetLimitExceeded) {
		t.Fatalf("expected ErrBetLimitExceeded, got %v", err)
	}
}

func TestPlaceBonusBetDisabledZeroesBonus(t *testing.T) {
	_, catalog, _, _, svc := newSpinFixture()
	catalog.variants[10].BonusBetEnabled = 0

	// 总额 1200 里 200 是赠金；赠金禁用后只有 1000 可用
	_, err := svc.Place(context.Background(), PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 1100,
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance with bonus bet disabled, got %v", err)
	}
}

func TestPlaceFreespinSkipsWallet(t *testing.T) {
	ledger, _, wallet, _, svc := newSpinFixture()

	out, err := svc.Place(context.Background(), PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100, FreeSpinID: "fs-9",
	})
	if err != nil {
		t.Fatalf("place error: %v", err)
	}
	if out.Real != 0 || out.Bonus != 0 {
		t.Fatalf("freespin place must carry zero money: %+v", out)
	}
	if len(wallet.calls) != 0 {
		t.Fatalf("wallet must not be touched in freespin mode: %v", wallet.calls)
	}
	if !ledger.spins[0].FreeSpinID.Valid || ledger.spins[0].FreeSpinID.String != "fs-9" {
		t.Fatalf("free_spin_id not recorded: %+v", ledger.spins[0])
	}
}

func TestPlaceIdempotentReplay(t *testing.T) {
	ledger, _, wallet, _, svc := newSpinFixture()

	in := PlaceInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100}
	first, err := svc.Place(context.Background(), in)
	if err != nil {
		t.Fatalf("first place: %v", err)
	}
	second, err := svc.Place(context.Background(), in)
	if err != nil {
		t.Fatalf("replay place: %v", err)
	}
	if first.SpinID != second.SpinID {
		t.Fatalf("replay must return first result: %d != %d", first.SpinID, second.SpinID)
	}
	if len(ledger.spins) != 1 {
		t.Fatalf("exactly one ledger row expected, got %d", len(ledger.spins))
	}
	if len(wallet.calls) != 1 {
		t.Fatalf("exactly one withdraw expected, got %d", len(wallet.calls))
	}
}

func TestPlaceSecondPlaceSameRoundRejected(t *testing.T) {
	_, _, _, _, svc := newSpinFixture()

	if _, err := svc.Place(context.Background(), PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100,
	}); err != nil {
		t.Fatalf("first place: %v", err)
	}
	_, err := svc.Place(context.Background(), PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx2", Amount: 100,
	})
	if !errors.Is(err, ErrDuplicatePlace) {
		t.Fatalf("expected ErrDuplicatePlace, got %v", err)
	}
}

func TestPlaceOnClosedRound(t *testing.T) {
	_, _, _, _, svc := newSpinFixture()
	ctx := context.Background()

	if _, err := svc.Place(ctx, PlaceInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := svc.CloseRound(ctx, "tok-1", "r1", ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err := svc.Place(ctx, PlaceInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx2", Amount: 100})
	if !errors.Is(err, ErrRoundFinished) {
		t.Fatalf("expected ErrRoundFinished, got %v", err)
	}
	_, err = svc.Settle(ctx, SettleInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx3", Amount: 50})
	if !errors.Is(err, ErrRoundFinished) {
		t.Fatalf("expected ErrRoundFinished on settle, got %v", err)
	}
}

func TestSettleBonusRule(t *testing.T) {
	ctx := context.Background()

	// 下注动用了赠金：赢额全部记赠金
	_, _, wallet, _, svc := newSpinFixture()
	if _, err := svc.Place(ctx, PlaceInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 1100}); err != nil {
		t.Fatalf("place: %v", err)
	}
	out, err := svc.Settle(ctx, SettleInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx2", Amount: 500})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.Real != 0 || out.Bonus != 500 {
		t.Fatalf("win after bonus bet must be all bonus: %+v", out)
	}
	last := wallet.calls[len(wallet.calls)-1]
	if last.op != "deposit" || last.real != 0 || last.bonus != 500 {
		t.Fatalf("deposit mismatch: %+v", last)
	}

	// 纯真实资金下注：赢额全部记真实资金
	_, _, _, _, svc2 := newSpinFixture()
	if _, err := svc2.Place(ctx, PlaceInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 300}); err != nil {
		t.Fatalf("place: %v", err)
	}
	out, err = svc2.Settle(ctx, SettleInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx2", Amount: 700})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.Real != 700 || out.Bonus != 0 {
		t.Fatalf("win after real bet must be all real: %+v", out)
	}
}

func TestSettleZeroWinIsValid(t *testing.T) {
	_, _, _, _, svc := newSpinFixture()
	ctx := context.Background()

	if _, err := svc.Place(ctx, PlaceInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100}); err != nil {
		t.Fatalf("place: %v", err)
	}
	out, err := svc.Settle(ctx, SettleInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx2", Amount: 0})
	if err != nil {
		t.Fatalf("zero settle must be accepted: %v", err)
	}
	if out.Real != 0 || out.Bonus != 0 {
		t.Fatalf("zero settle carries zero money: %+v", out)
	}
}

func TestSettleWithoutPlace(t *testing.T) {
	ledger, _, _, _, svc := newSpinFixture()
	ctx := context.Background()

	// 直接造一个没有下注行的回合
	if _, err := ledger.FindOrCreateRound(ctx, 1, 10, "r-empty"); err != nil {
		t.Fatalf("round: %v", err)
	}
	_, err := svc.Settle(ctx, SettleInput{Token: "tok-1", ExtRoundID: "r-empty", TransactionID: "tx1", Amount: 100})
	if !errors.Is(err, ErrRoundFinished) {
		t.Fatalf("expected ErrRoundFinished, got %v", err)
	}
}

func TestRollbackTargetsLatestUnrolledSpin(t *testing.T) {
	_, _, wallet, _, svc := newSpinFixture()
	ctx := context.Background()

	if _, err := svc.Place(ctx, PlaceInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 200}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := svc.Settle(ctx, SettleInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx2", Amount: 400}); err != nil {
		t.Fatalf("settle: %v", err)
	}

	// 第一次冲正目标是结算行
	out, err := svc.Rollback(ctx, RollbackInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "rb1"})
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if out.Real != 400 {
		t.Fatalf("rollback must copy target amounts: %+v", out)
	}
	last := wallet.calls[len(wallet.calls)-1]
	if last.op != "rollback" || last.txID != "2" {
		t.Fatalf("wallet rollback must reference target spin: %+v", last)
	}

	// 第二次冲正目标退回下注行
	out, err = svc.Rollback(ctx, RollbackInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "rb2"})
	if err != nil {
		t.Fatalf("second rollback: %v", err)
	}
	if out.Real != 200 {
		t.Fatalf("second rollback must target the place row: %+v", out)
	}
}

func TestRollbackNothingLeft(t *testing.T) {
	ledger, _, _, _, svc := newSpinFixture()
	ctx := context.Background()

	if _, err := ledger.FindOrCreateRound(ctx, 1, 10, "r1"); err != nil {
		t.Fatalf("round: %v", err)
	}
	_, err := svc.Rollback(ctx, RollbackInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "rb1"})
	if !errors.Is(err, ErrSpinNotFound) {
		t.Fatalf("expected ErrSpinNotFound, got %v", err)
	}
}

func TestRollbackFreespinSkipsWallet(t *testing.T) {
	_, _, wallet, _, svc := newSpinFixture()
	ctx := context.Background()

	if _, err := svc.Place(ctx, PlaceInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100, FreeSpinID: "fs-1"}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := svc.Rollback(ctx, RollbackInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "rb1"}); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if len(wallet.calls) != 0 {
		t.Fatalf("freespin rollback must not touch wallet: %v", wallet.calls)
	}
}

func TestPlaceFreespinTerminalCampaignRejected(t *testing.T) {
	for _, status := range []string{state.StateExpired, state.StateCancelled} {
		ledger, catalog, wallet, _, svc := newSpinFixture()
		catalog.freespins["fs-dead"] = &model.FreespinCampaign{
			ID: 1, ExtID: "fs-dead", GameID: 10, PlayerID: "p1", Status: status,
		}

		_, err := svc.Place(context.Background(), PlaceInput{
			Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100, FreeSpinID: "fs-dead",
		})
		if !errors.Is(err, ErrFreespinUnavailable) {
			t.Fatalf("status=%s: expected ErrFreespinUnavailable, got %v", status, err)
		}
		if len(ledger.spins) != 0 {
			t.Fatalf("status=%s: no ledger row expected, got %d", status, len(ledger.spins))
		}
		if len(wallet.calls) != 0 {
			t.Fatalf("status=%s: wallet must not be touched: %v", status, wallet.calls)
		}
	}
}

func TestPlaceFreespinActiveCampaignAccepted(t *testing.T) {
	_, catalog, _, _, svc := newSpinFixture()
	catalog.freespins["fs-live"] = &model.FreespinCampaign{
		ID: 1, ExtID: "fs-live", GameID: 10, PlayerID: "p1", Status: state.StateActive,
	}

	if _, err := svc.Place(context.Background(), PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100, FreeSpinID: "fs-live",
	}); err != nil {
		t.Fatalf("active campaign must be accepted: %v", err)
	}
}

func TestSettleFreespinContinuesAfterCampaignExpiry(t *testing.T) {
	_, catalog, _, _, svc := newSpinFixture()
	ctx := context.Background()
	catalog.freespins["fs-1"] = &model.FreespinCampaign{
		ID: 1, ExtID: "fs-1", GameID: 10, PlayerID: "p1", Status: state.StateActive,
	}

	if _, err := svc.Place(ctx, PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100, FreeSpinID: "fs-1",
	}); err != nil {
		t.Fatalf("place: %v", err)
	}

	// 开局后活动到期：已开局的结算不受阻塞
	catalog.freespins["fs-1"].Status = state.StateExpired
	if _, err := svc.Settle(ctx, SettleInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx2", Amount: 50, FreeSpinID: "fs-1",
	}); err != nil {
		t.Fatalf("settle of an opened round must survive campaign expiry: %v", err)
	}
}

func TestSettleFreespinFreshUseOfTerminalCampaignRejected(t *testing.T) {
	_, catalog, _, _, svc := newSpinFixture()
	ctx := context.Background()
	catalog.freespins["fs-dead"] = &model.FreespinCampaign{
		ID: 1, ExtID: "fs-dead", GameID: 10, PlayerID: "p1", Status: state.StateExpired,
	}

	// 真金下注开局后，结算首次引用已终态活动：拒绝
	if _, err := svc.Place(ctx, PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100,
	}); err != nil {
		t.Fatalf("place: %v", err)
	}
	_, err := svc.Settle(ctx, SettleInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx2", Amount: 50, FreeSpinID: "fs-dead",
	})
	if !errors.Is(err, ErrFreespinUnavailable) {
		t.Fatalf("expected ErrFreespinUnavailable, got %v", err)
	}
}

func TestPlaceWalletFailureMarksCompensation(t *testing.T) {
	ledger, _, wallet, _, svc := newSpinFixture()
	wallet.failWithdraw = true

	_, err := svc.Place(context.Background(), PlaceInput{
		Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100,
	})
	if err == nil {
		t.Fatal("expected wallet failure to surface")
	}
	if len(ledger.walletFail) != 1 {
		t.Fatalf("spin must be marked wallet_failed, got %v", ledger.walletFail)
	}
	if ledger.spins[0].Status != model.SpinWalletFailed {
		t.Fatalf("status not flipped: %+v", ledger.spins[0])
	}
}

func TestPlaceInvalidAmount(t *testing.T) {
	_, _, _, _, svc := newSpinFixture()

	for _, amount := range []int64{0, -5} {
		_, err := svc.Place(context.Background(), PlaceInput{
			Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: amount,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount=%d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestPlaceUnknownSession(t *testing.T) {
	_, _, _, _, svc := newSpinFixture()

	_, err := svc.Place(context.Background(), PlaceInput{
		Token: "no-such-token", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100,
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCloseRoundIdempotent(t *testing.T) {
	_, _, _, _, svc := newSpinFixture()
	ctx := context.Background()

	if _, err := svc.Place(ctx, PlaceInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := svc.CloseRound(ctx, "tok-1", "r1", ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := svc.CloseRound(ctx, "tok-1", "r1", ""); err != nil {
		t.Fatalf("repeat close must be a no-op: %v", err)
	}
}

func TestRollbackIdempotentReplay(t *testing.T) {
	ledger, _, _, _, svc := newSpinFixture()
	ctx := context.Background()

	if _, err := svc.Place(ctx, PlaceInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "tx1", Amount: 100}); err != nil {
		t.Fatalf("place: %v", err)
	}
	first, err := svc.Rollback(ctx, RollbackInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "rb1"})
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	second, err := svc.Rollback(ctx, RollbackInput{Token: "tok-1", ExtRoundID: "r1", TransactionID: "rb1"})
	if err != nil {
		t.Fatalf("replay rollback: %v", err)
	}
	if first.SpinID != second.SpinID {
		t.Fatalf("replay must return first result")
	}
	count := 0
	for _, sp := range ledger.spins {
		if sp.SpinType == model.SpinRollback {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("exactly one rollback row expected, got %d", count)
	}
}
