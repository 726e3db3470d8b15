package console

import (
	"errors"

	"brushless/core"
)

// Interpreter executes console commands against the motor cores. The
// command set borrows the spindle M-codes:
//
//	M3 [Pn] [Sd]  start motor n, optionally setting the manual duty first
//	M4 [Pn] Sd    set the manual duty target only
//	M5 [Pn]       stop motor n
//	M10 [Pn]      one notch faster
//	M11 [Pn]      one notch slower
//	M112          emergency stop: every output dropped
//	M114 [Pn]     report motor state
type Interpreter struct {
	respond func(string)
}

// NewInterpreter creates an interpreter; responses go through respond.
func NewInterpreter(respond func(string)) *Interpreter {
	return &Interpreter{respond: respond}
}

// Execute executes a parsed console command
func (interp *Interpreter) Execute(cmd *Command) error {
	if cmd == nil || cmd.Type == 0 {
		return nil
	}

	if cmd.Type != 'M' {
		return errors.New("unknown command letter")
	}

	switch cmd.Number {
	case 3:
		m, err := interp.motorFor(cmd)
		if err != nil {
			return err
		}
		if cmd.HasParameter('S') {
			m.SetManualDuty(uint32(cmd.GetParameter('S', 0)))
		}
		m.SpeedIncrease()

	case 4:
		m, err := interp.motorFor(cmd)
		if err != nil {
			return err
		}
		if !cmd.HasParameter('S') {
			return errors.New("M4 requires S")
		}
		m.SetManualDuty(uint32(cmd.GetParameter('S', 0)))

	case 5:
		m, err := interp.motorFor(cmd)
		if err != nil {
			return err
		}
		m.Stop()

	case 10:
		m, err := interp.motorFor(cmd)
		if err != nil {
			return err
		}
		m.SpeedIncrease()

	case 11:
		m, err := interp.motorFor(cmd)
		if err != nil {
			return err
		}
		m.SpeedDecrease()

	case 112:
		core.TryShutdown("console emergency stop")

	case 114:
		m, err := interp.motorFor(cmd)
		if err != nil {
			return err
		}
		interp.reportState(m)

	default:
		return errors.New("unknown M code")
	}

	return nil
}

func (interp *Interpreter) motorFor(cmd *Command) (*core.Motor, error) {
	oid := uint8(cmd.GetParameter('P', 0))
	m := core.GetMotor(oid)
	if m == nil {
		return nil, errors.New("no such motor")
	}
	return m, nil
}

func (interp *Interpreter) reportState(m *core.Motor) {
	if interp.respond == nil {
		return
	}
	interp.respond("motor " + utoa(uint32(m.OID)) +
		": " + m.State().String() +
		" sector=" + utoa(uint32(m.Sector())) +
		" period=" + utoa(m.Period()) +
		" duty=" + utoa(m.Duty()) + "\n")
}

// utoa converts uint32 to string without importing strconv (for embedded)
func utoa(v uint32) string {
	if v == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[pos:])
}
