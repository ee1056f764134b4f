package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrClaimHeld       = errors.New("token claimed by another agent")
	ErrInsufficientCap = errors.New("insufficient capital")
	ErrSimulationFail  = errors.New("settlement simulation reverted")
	ErrAdvisorInvalid  = errors.New("advisor returned malformed output")
	ErrContextDone     = errors.New("context cancelled")
)
