package ptp

import "testing"

func TestTimestampFixedPoint(t *testing.T) {
	ts := Timestamp(24 << FracBits)
	if ts.Nanoseconds() != 24 {
		t.Errorf("Nanoseconds: got %d, want 24", ts.Nanoseconds())
	}
	if ts.Float() != 24.0 {
		t.Errorf("Float: got %v, want 24.0", ts.Float())
	}

	half := Timestamp(24<<FracBits | 1<<(FracBits-1))
	if half.Float() != 24.5 {
		t.Errorf("Float with fraction: got %v, want 24.5", half.Float())
	}
	if half.Nanoseconds() != 24 {
		t.Errorf("Nanoseconds truncates: got %d, want 24", half.Nanoseconds())
	}
}

func TestClockAdvancesOnePeriodPerTick(t *testing.T) {
	c := NewClock(8)
	if c.Now() != 0 {
		t.Fatalf("fresh clock not at zero: %v", c.Now())
	}
	for i := 0; i < 3; i++ {
		c.Tick()
	}
	if got := c.Now().Nanoseconds(); got != 24 {
		t.Errorf("after 3 ticks at 8ns: got %dns, want 24ns", got)
	}
}

func TestClockZeroPeriodDefaults(t *testing.T) {
	c := NewClock(0)
	if c.Period() != Timestamp(DefaultPeriodNs<<FracBits) {
		t.Errorf("default period: got %v", c.Period())
	}
}
