package room

import "time"

type timerKind int

const (
	timerIdle timerKind = iota
	timerCountdown
	timerSpawn
	timerExpire
	timerClock
	timerRoundEnd
)

// timerFired is posted by a timer callback. The token ties it to one arming;
// a fire whose token is no longer armed is stale and dropped.
type timerFired struct {
	kind  timerKind
	token uint64
}

func (timerFired) isRoomMsg() {}

type armedTimer struct {
	token uint64
	t     *time.Timer
}

func (r *Room) arm(kind timerKind, d time.Duration) {
	r.disarm(kind)
	r.timerSeq++
	token := r.timerSeq
	t := time.AfterFunc(d, func() {
		r.Post(timerFired{kind: kind, token: token})
	})
	r.timers[kind] = armedTimer{token: token, t: t}
}

func (r *Room) disarm(kinds ...timerKind) {
	for _, kind := range kinds {
		if a, ok := r.timers[kind]; ok {
			a.t.Stop()
			delete(r.timers, kind)
		}
	}
}

func (r *Room) disarmAll() {
	for kind, a := range r.timers {
		a.t.Stop()
		delete(r.timers, kind)
	}
}

func (r *Room) fire(m timerFired) {
	a, ok := r.timers[m.kind]
	if !ok || a.token != m.token {
		return
	}
	delete(r.timers, m.kind)

	switch m.kind {
	case timerIdle:
		r.expire()
	case timerCountdown:
		r.countdownTick()
	case timerSpawn:
		r.spawn()
	case timerExpire:
		r.resolve(-1)
	case timerClock:
		r.clockTick()
	case timerRoundEnd:
		r.finishRound()
	}
}
