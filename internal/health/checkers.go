// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"os/exec"
)

// BinaryChecker reports whether an external binary can be resolved.
type BinaryChecker struct {
	name     string
	resolve  func() (string, error)
	optional bool
}

// NewBinaryChecker checks with resolve. Missing optional binaries only degrade.
func NewBinaryChecker(name string, resolve func() (string, error), optional bool) *BinaryChecker {
	return &BinaryChecker{name: name, resolve: resolve, optional: optional}
}

// NewPathChecker checks that bin is on PATH.
func NewPathChecker(name, bin string, optional bool) *BinaryChecker {
	return NewBinaryChecker(name, func() (string, error) { return exec.LookPath(bin) }, optional)
}

func (c *BinaryChecker) Name() string { return c.name }

func (c *BinaryChecker) Check(_ context.Context) CheckResult {
	path, err := c.resolve()
	if err != nil {
		status := StatusUnhealthy
		if c.optional {
			status = StatusDegraded
		}
		return CheckResult{Status: status, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: path}
}

// FuncChecker adapts a function to a Checker.
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewFuncChecker creates a checker from fn.
func NewFuncChecker(name string, fn func(ctx context.Context) CheckResult) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string                          { return c.name }
func (c *FuncChecker) Check(ctx context.Context) CheckResult { return c.fn(ctx) }
