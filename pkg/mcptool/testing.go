package mcptool

import mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

// InjectSession wires a pre-connected MCP SDK session into the Client,
// bypassing Initialize's real subprocess/transport creation. Intended for
// test infrastructure that runs an in-memory MCP server.
func (c *Client) InjectSession(sdkClient *mcpsdk.Client, session *mcpsdk.ClientSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	c.sdkClient = sdkClient
}
