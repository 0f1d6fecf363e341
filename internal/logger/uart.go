package logger

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenUARTSink opens a serial port at the given baud rate and attaches it as
// a diagnostic-text sink via SetUARTSink. Pass an empty portName to skip
// (no UART configured).
func OpenUARTSink(portName string, baud int) error {
	if portName == "" {
		return nil
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return fmt.Errorf("failed to open diagnostic UART %s: %w", portName, err)
	}
	SetUARTSink(port)
	return nil
}
