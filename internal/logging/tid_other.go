//go:build !linux

package logging

func threadID() int {
	return 0
}
