//go:build debugbreak

package movement

import "runtime"

func breakpoint() { runtime.Breakpoint() }
