package timer

import (
	"testing"

	"github.com/clktmr/mobile/gba"
)

type testTimer struct {
	reload uint16
	ctrl   []Control
}

func (t *testTimer) ID() ID               { return Timer1 }
func (t *testTimer) SetReload(v uint16)   { t.reload = v }
func (t *testTimer) SetControl(c Control) { t.ctrl = append(t.ctrl, c) }

func TestSchedule(t *testing.T) {
	tim := &testTimer{}
	Schedule(tim, 0x10000-7, Freq1024)
	if tim.reload != 0xfff9 {
		t.Fatalf("expected 0xfff9, got %#04x", tim.reload)
	}
	// stopped before the reload value is written
	want := []Control{0, Control(Freq1024) | IRQEnable | Enable}
	if len(tim.ctrl) != 2 || tim.ctrl[0] != want[0] || tim.ctrl[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, tim.ctrl)
	}
	Stop(tim)
	if tim.ctrl[2] != 0 {
		t.Fatalf("expected 0, got %#04x", tim.ctrl[2])
	}
}

func TestInterrupt(t *testing.T) {
	tests := map[string]struct {
		id   ID
		want gba.InterruptFlag
	}{
		"timer0": {Timer0, gba.Timer0},
		"timer3": {Timer3, gba.Timer3},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tc.id.Interrupt(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
	if got := Freq1024.Cycles(); got != 1024 {
		t.Fatalf("expected 1024, got %d", got)
	}
}
