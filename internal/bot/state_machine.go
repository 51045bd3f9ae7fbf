package bot

// State - состояние жизненного цикла сделки
type State string

// Состояния исполнителя сделок
const (
	StateIdle              State = "IDLE"               // ожидание возможности
	StatePreflightChecking State = "PREFLIGHT_CHECKING" // проверка балансов перед входом
	StateLegsPlacing       State = "LEGS_PLACING"       // размещение ордеров
	StateLegsVerifying     State = "LEGS_VERIFYING"     // подтверждение исполнения ног
	StateReconciling       State = "RECONCILING"        // расчёт итогов и запись результата
	StateCompleted         State = "COMPLETED"          // сделка завершена
	StateAborted           State = "ABORTED"            // сделка прервана
)

// ValidTransitions определяет допустимые переходы между состояниями
//
// Любое нетерминальное состояние может перейти в ABORTED: ошибка
// возможна на каждом шаге. Переход LEGS_VERIFYING -> LEGS_PLACING
// нужен для второй ноги при последовательном исполнении. Терминальные
// состояния возвращаются в IDLE.
var ValidTransitions = map[State][]State{
	StateIdle:              {StatePreflightChecking},
	StatePreflightChecking: {StateLegsPlacing, StateAborted},
	StateLegsPlacing:       {StateLegsVerifying, StateAborted},
	StateLegsVerifying:     {StateLegsPlacing, StateReconciling, StateAborted},
	StateReconciling:       {StateCompleted, StateAborted},
	StateCompleted:         {StateIdle},
	StateAborted:           {StateIdle},
}

// CanTransition проверяет допустимость перехода из from в to
func CanTransition(from, to State) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal возвращает true для конечных состояний сделки
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateAborted
}

// String возвращает строковое представление состояния
func (s State) String() string {
	return string(s)
}
