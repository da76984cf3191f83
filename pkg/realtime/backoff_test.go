package realtime

import (
	"testing"
	"time"
)

func TestReconnectPolicyBounded(t *testing.T) {
	p := NewReconnectPolicyWithConfig(ReconnectConfig{
		Interval:    100 * time.Millisecond,
		MaxAttempts: 3,
	})

	for i := 1; i <= 3; i++ {
		delay, ok := p.NextDelay()
		if !ok {
			t.Fatalf("attempt %d: policy exhausted early", i)
		}
		if delay != 100*time.Millisecond {
			t.Errorf("attempt %d: delay = %v, want 100ms", i, delay)
		}
		if p.Attempts() != i {
			t.Errorf("attempt counter = %d, want %d", p.Attempts(), i)
		}
	}

	if _, ok := p.NextDelay(); ok {
		t.Error("policy should be exhausted after MaxAttempts")
	}
	if _, ok := p.NextDelay(); ok {
		t.Error("exhausted policy must stay exhausted")
	}
}

func TestReconnectPolicyReset(t *testing.T) {
	p := NewReconnectPolicyWithConfig(ReconnectConfig{MaxAttempts: 2})

	p.NextDelay()
	p.NextDelay()
	if _, ok := p.NextDelay(); ok {
		t.Fatal("policy should be exhausted")
	}

	p.Reset()
	if p.Attempts() != 0 {
		t.Errorf("Attempts() = %d after reset, want 0", p.Attempts())
	}
	if _, ok := p.NextDelay(); !ok {
		t.Error("reset policy should hand out delays again")
	}
}

func TestReconnectPolicyDefaults(t *testing.T) {
	p := NewReconnectPolicy()

	delay, ok := p.NextDelay()
	if !ok {
		t.Fatal("fresh policy should not be exhausted")
	}
	if delay != DefaultRetryInterval {
		t.Errorf("delay = %v, want %v", delay, DefaultRetryInterval)
	}
}
