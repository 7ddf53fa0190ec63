package strategies

import (
	"fmt"

	"github.com/rustyeddy/cryptobot/ledger"
)

// Kind is the discriminant of a Signal.
type Kind int

const (
	Hold Kind = iota
	Enter
	Exit
)

func (k Kind) String() string {
	switch k {
	case Enter:
		return "ENTER"
	case Exit:
		return "EXIT"
	default:
		return "HOLD"
	}
}

// ExitReason says why a position should be closed. The values double as the
// reason column in the trade journal.
type ExitReason string

const (
	ExitStopLoss ExitReason = "stop_loss"
	ExitTarget   ExitReason = "take_profit"
	ExitTrailing ExitReason = "trailing_stop"
	ExitSignal   ExitReason = "signal"
	ExitManual   ExitReason = "manual"
)

// Signal is a strategy's decision for one tick.
//
// For Enter signals, Direction and Strength are set (Strength in (0, 1]
// grades how decisively the rule fired). For Exit signals, Reason is set and
// Price optionally pins the exit fill (a stop that gapped must settle at the
// stop price, not wherever the bar closed); Price 0 means fill at market.
type Signal struct {
	Kind      Kind
	Direction ledger.Direction
	Strength  float64
	Reason    ExitReason
	Price     float64
	Comment   string
}

func (s Signal) String() string {
	switch s.Kind {
	case Enter:
		return fmt.Sprintf("ENTER %s (strength %.2f): %s", s.Direction, s.Strength, s.Comment)
	case Exit:
		return fmt.Sprintf("EXIT %s: %s", s.Reason, s.Comment)
	default:
		return "HOLD"
	}
}

var hold = Signal{Kind: Hold}

func enterLong(strength float64, comment string) Signal {
	if strength <= 0 {
		strength = 0.1
	}
	if strength > 1 {
		strength = 1
	}
	return Signal{Kind: Enter, Direction: ledger.Long, Strength: strength, Comment: comment}
}

func exitAt(reason ExitReason, price float64, comment string) Signal {
	return Signal{Kind: Exit, Reason: reason, Price: price, Comment: comment}
}
