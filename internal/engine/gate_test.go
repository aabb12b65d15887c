package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGateConfirmYes(t *testing.T) {
	notifier := &stubNotifier{configured: true, sendOK: true}
	gate := NewGate(notifier, 500*time.Millisecond, 10*time.Millisecond, zap.NewNop().Sugar())

	// answer arrives right after the prompt goes out
	notifier.onConfirm = func(token string) { gate.Submit(token, "yes") }

	assert.True(t, gate.Confirm("buy?", "tok-1"))
}

func TestGateConfirmNo(t *testing.T) {
	notifier := &stubNotifier{configured: true, sendOK: true}
	gate := NewGate(notifier, 500*time.Millisecond, 10*time.Millisecond, zap.NewNop().Sugar())
	notifier.onConfirm = func(token string) { gate.Submit(token, "no") }

	assert.False(t, gate.Confirm("buy?", "tok-2"))
}

func TestGateConfirmTimeout(t *testing.T) {
	notifier := &stubNotifier{configured: true, sendOK: true}
	gate := NewGate(notifier, 30*time.Millisecond, 10*time.Millisecond, zap.NewNop().Sugar())

	start := time.Now()
	assert.False(t, gate.Confirm("buy?", "tok-3"))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestGateConfirmTimeoutDoesNotOvershoot(t *testing.T) {
	notifier := &stubNotifier{configured: true, sendOK: true}
	// poll is almost as long as the timeout: the last wait must be truncated
	gate := NewGate(notifier, 50*time.Millisecond, 40*time.Millisecond, zap.NewNop().Sugar())

	start := time.Now()
	assert.False(t, gate.Confirm("buy?", "tok-7"))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 75*time.Millisecond)
}

func TestGateConfirmSendFailure(t *testing.T) {
	notifier := &stubNotifier{configured: true, sendOK: false}
	gate := NewGate(notifier, time.Second, 10*time.Millisecond, zap.NewNop().Sugar())

	// when the prompt cannot be delivered there is nothing to wait for
	start := time.Now()
	assert.False(t, gate.Confirm("buy?", "tok-4"))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGateAnswerIsConsumedOnce(t *testing.T) {
	notifier := &stubNotifier{configured: true, sendOK: true}
	gate := NewGate(notifier, 40*time.Millisecond, 10*time.Millisecond, zap.NewNop().Sugar())

	gate.Submit("tok-5", "yes")
	assert.True(t, gate.Confirm("buy?", "tok-5"))
	// same token again: answer was consumed, this one times out
	assert.False(t, gate.Confirm("buy?", "tok-5"))
}

func TestGateIgnoresUnrelatedToken(t *testing.T) {
	notifier := &stubNotifier{configured: true, sendOK: true}
	gate := NewGate(notifier, 40*time.Millisecond, 10*time.Millisecond, zap.NewNop().Sugar())

	gate.Submit("other", "yes")
	assert.False(t, gate.Confirm("buy?", "tok-6"))
}
