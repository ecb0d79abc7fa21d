package main

import (
	"errors"

	"github.com/vanderheijden86/kgview/pkg/config"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitConfig = 2
	ExitDrift  = 3
)

// errDrift reports warning or critical drift against a baseline.
var errDrift = errors.New("graph drifted from the baseline")

// usageError marks bad command-line input.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrInvalid), errors.As(err, &ue):
		return ExitConfig
	case errors.Is(err, errDrift):
		return ExitDrift
	default:
		return ExitError
	}
}
