package cmdutils

import "fmt"

// Check prints one completed validation or setup step.
func Check(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// Info prints a plain status line.
func Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}
