package executor

import (
	"context"
	"os/exec"
)

// runLocal executes the script on the local shell. Output and exit-code
// semantics match the SSH path so callers never branch on transport.
func runLocal(ctx context.Context, script string) (Result, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && ctx.Err() == nil {
			// Command ran, just exited non-zero.
			return Result{Stdout: string(output), ExitCode: exitErr.ExitCode()}, nil
		}
		return Result{Stdout: string(output), ExitCode: -1}, err
	}
	return Result{Stdout: string(output), ExitCode: 0}, nil
}
