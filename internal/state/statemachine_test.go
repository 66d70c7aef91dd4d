package state

import "testing"

func TestNextState(t *testing.T) {
	cases := []struct {
		cur, evt, want string
	}{
		{StateCreated, EvtActivate, StateActive},
		{StateCreated, EvtCancel, StateCancelled},
		{StateCreated, EvtExpire, StateExpired},
		{StateActive, EvtFinish, StateFinished},
		{StateActive, EvtExpire, StateExpired},
		{StateActive, EvtCancel, StateCancelled},
	}
	for _, c := range cases {
		got, err := NextState(c.cur, c.evt)
		if err != nil {
			t.Fatalf("%s --%s-->: %v", c.cur, c.evt, err)
		}
		if got != c.want {
			t.Fatalf("%s --%s--> %s, want %s", c.cur, c.evt, got, c.want)
		}
	}
}

func TestNextStateInvalidTransitions(t *testing.T) {
	invalid := []struct{ cur, evt string }{
		{StateCreated, EvtFinish},
		{StateCancelled, EvtActivate},
		{StateExpired, EvtCancel},
		{StateFinished, EvtCancel},
		{StateFinished, EvtExpire},
	}
	for _, c := range invalid {
		if _, err := NextState(c.cur, c.evt); err == nil {
			t.Fatalf("%s --%s--> must be rejected", c.cur, c.evt)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []string{StateCancelled, StateExpired, StateFinished} {
		if !Terminal(s) {
			t.Fatalf("%s must be terminal", s)
		}
	}
	for _, s := range []string{StateCreated, StateActive} {
		if Terminal(s) {
			t.Fatalf("%s must not be terminal", s)
		}
	}
}
