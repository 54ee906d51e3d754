//go:build !debugbreak

package movement

func breakpoint() {}
