package cmd

import "errors"

type exitCoder interface {
	ExitCode() int
}

// ExitCode maps a command error to the process exit status. Errors that carry
// their own code keep it, even when wrapped; anything else exits with 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}

	return 1
}
