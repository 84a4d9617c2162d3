package core

// kassert halts on a violated kernel invariant. There is no recovery path:
// a failed assertion means a caller broke the timer core's contract.
func kassert(cond bool, msg string) {
	if !cond {
		DebugPrintln("[PANIC] assertion failed: " + msg)
		panic("assertion failed: " + msg)
	}
}
