// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// EchoExecutor answers every task with an echo of its latest message. It is
// the executor the shipped binaries run when no agent logic is wired in.
type EchoExecutor struct{}

var _ Executor = (*EchoExecutor)(nil)

// Execute implements Executor.
func (e *EchoExecutor) Execute(ctx context.Context, handle *TaskHandle) error {
	t := handle.Task()
	text := ""
	if len(t.Messages) > 0 {
		text = t.Messages[len(t.Messages)-1].TextContent()
	}

	if err := handle.ReportMessage(ctx, a2a.NewAgentTextMessage("echo: "+text)); err != nil {
		return err
	}
	return handle.ReportArtifact(ctx, a2a.NewTextArtifact("echo", text))
}
