package dsp

import "errors"

var (
	errPasses     = errors.New("dsp: passes must be >= 1")
	errZeroFilter = errors.New("dsp: cannot add a nil or unconfigured filter to a chain")
)
