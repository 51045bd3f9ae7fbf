package bot

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"idle -> preflight", StateIdle, StatePreflightChecking, true},
		{"preflight -> placing", StatePreflightChecking, StateLegsPlacing, true},
		{"placing -> verifying", StateLegsPlacing, StateLegsVerifying, true},
		{"verifying -> placing (вторая нога)", StateLegsVerifying, StateLegsPlacing, true},
		{"verifying -> reconciling", StateLegsVerifying, StateReconciling, true},
		{"reconciling -> completed", StateReconciling, StateCompleted, true},
		{"completed -> idle", StateCompleted, StateIdle, true},
		{"aborted -> idle", StateAborted, StateIdle, true},

		{"preflight -> aborted", StatePreflightChecking, StateAborted, true},
		{"placing -> aborted", StateLegsPlacing, StateAborted, true},
		{"verifying -> aborted", StateLegsVerifying, StateAborted, true},
		{"reconciling -> aborted", StateReconciling, StateAborted, true},

		{"idle -> placing (пропуск preflight)", StateIdle, StateLegsPlacing, false},
		{"idle -> completed", StateIdle, StateCompleted, false},
		{"completed -> preflight", StateCompleted, StatePreflightChecking, false},
		{"aborted -> reconciling", StateAborted, StateReconciling, false},
		{"placing -> reconciling (пропуск верификации)", StateLegsPlacing, StateReconciling, false},
		{"неизвестное состояние", State("UNKNOWN"), StateIdle, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, ожидалось %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStateIsTerminal(t *testing.T) {
	terminal := []State{StateCompleted, StateAborted}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s должно быть терминальным", s)
		}
	}

	active := []State{StateIdle, StatePreflightChecking, StateLegsPlacing, StateLegsVerifying, StateReconciling}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s не должно быть терминальным", s)
		}
	}
}

// Из каждого нетерминального состояния, кроме IDLE, должен быть путь в ABORTED
func TestEveryActiveStateCanAbort(t *testing.T) {
	for from, allowed := range ValidTransitions {
		if from.IsTerminal() || from == StateIdle {
			continue
		}

		found := false
		for _, to := range allowed {
			if to == StateAborted {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Из %s нет перехода в ABORTED", from)
		}
	}
}
