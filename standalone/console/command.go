package console

// Command is one parsed console line: a letter, a code number and
// letter-keyed parameters, in the manner of machine-tool G-code.
type Command struct {
	Type       byte             // 'M'
	Number     int              // Command number (e.g. 3 for M3)
	Parameters map[byte]float64 // Parameters (P, S, ...)
	Comment    string           // Comment text
}

// HasParameter checks if a parameter exists in the command
func (cmd *Command) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// GetParameter gets a parameter value, or returns the default if not present
func (cmd *Command) GetParameter(param byte, defaultValue float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return defaultValue
}
