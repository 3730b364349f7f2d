package mcptool

import (
	"fmt"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// newStdioTransport launches the MCP inventory tool server and wraps it in
// an SDK CommandTransport.
//
// The child's environment is built from scratch — never from os.Environ()
// — containing exactly the keys named in env, sourced from Config. A prior
// version of this gateway's ancestor inherited the parent process's full
// environment before applying overrides, so an operator's unrelated env var
// could shadow or leak into the tool server; constructing the slice from
// nothing closes that off entirely rather than trying to filter it after
// the fact.
func newStdioTransport(command string, args []string, env map[string]string) (*mcpsdk.CommandTransport, error) {
	if command == "" {
		return nil, fmt.Errorf("mcptool: tool server command must not be empty")
	}

	cmd := exec.Command(command, args...)
	cmd.Env = make([]string, 0, len(env))
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	return &mcpsdk.CommandTransport{Command: cmd}, nil
}
