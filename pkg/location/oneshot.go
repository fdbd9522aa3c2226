package location

import (
	"sync"
	"time"

	"locbridge/pkg/events"
	"locbridge/pkg/model"
)

// pendingRequest is one in-flight GetCurrentPosition call. The first of
// timeout, error event or result event to call settle owns delivery.
type pendingRequest struct {
	m         *Manager
	onSuccess func(model.Position)
	onFailure func(model.Failure)
	started   time.Time

	mu      sync.Mutex
	settled bool
	timer   *time.Timer
	subs    []events.Subscription
}

func (r *pendingRequest) startTimer(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timer = r.m.afterFunc(d, r.handleTimeout)
}

// attach hands subscriptions to the request. If it already settled they are
// removed immediately.
func (r *pendingRequest) attach(subs ...events.Subscription) {
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		for _, s := range subs {
			s.Remove()
		}
		return
	}
	r.subs = append(r.subs, subs...)
	r.mu.Unlock()
}

// settle claims the request, stops the timer and removes both listeners.
// It returns false for every caller after the first.
func (r *pendingRequest) settle() bool {
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		return false
	}
	r.settled = true
	timer := r.timer
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	for _, s := range subs {
		s.Remove()
	}
	r.m.untrack(r)
	return true
}

func (r *pendingRequest) handleResult(out events.Outcome) {
	if !r.settle() {
		return
	}
	if !out.OK() {
		r.finishFailure(OutcomeFailure, out.FailureOr(msgOneShotStart))
		return
	}
	r.m.remember(*out.Position)
	r.m.record(OutcomeSuccess)
	r.m.logger.Debug("One-shot request settled", "outcome", OutcomeSuccess, "elapsed", time.Since(r.started))
	if r.onSuccess != nil {
		r.onSuccess(*out.Position)
	}
}

func (r *pendingRequest) handleError(out events.Outcome) {
	if !r.settle() {
		return
	}
	r.finishFailure(OutcomeFailure, out.FailureOr(msgOneShotError))
}

func (r *pendingRequest) handleTimeout() {
	if !r.settle() {
		return
	}
	r.finishFailure(OutcomeTimeout, model.Failure{Code: model.Timeout, Message: MsgTimeout})
}

func (r *pendingRequest) finishFailure(outcome string, f model.Failure) {
	r.m.record(outcome)
	r.m.logger.Debug("One-shot request settled", "outcome", outcome, "message", f.Message, "elapsed", time.Since(r.started))
	r.m.fail(r.onFailure, f)
}
