// Command netbox-chat is a minimal terminal client for the gateway's
// WebSocket protocol (spec §6.5): it dials /ws/chat, sends each stdin line
// as a chat prompt, and prints every StreamChunk it receives to stdout. It
// holds no gateway logic — just the wire grammar any second client would
// implement.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/coder/websocket"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/protocol"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "gateway host:port")
	useTLS := flag.Bool("tls", false, "use wss:// instead of ws://")
	flag.Parse()

	scheme := "ws"
	if *useTLS {
		scheme = "wss"
	}
	target := (&url.URL{Scheme: scheme, Host: *addr, Path: "/ws/chat"}).String()

	ctx := context.Background()
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", target, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	done := make(chan struct{})
	go readLoop(ctx, conn, done)

	fmt.Fprintln(os.Stderr, "connected. type a message and press enter; /reset and /model <id> are supported.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		frame, err := parseLine(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		data, err := json.Marshal(frame)
		if err != nil {
			log.Fatalf("encoding frame: %v", err)
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			log.Fatalf("write: %v", err)
		}
	}

	<-done
}

// parseLine turns one line of stdin into a client frame: "/reset" resets
// the conversation, "/model <id>" switches models, anything else is a chat
// prompt.
func parseLine(line string) (protocol.ClientFrame, error) {
	switch {
	case line == "/reset":
		return protocol.ClientFrame{Type: string(protocol.ClientFrameReset)}, nil
	case strings.HasPrefix(line, "/model "):
		id := strings.TrimSpace(strings.TrimPrefix(line, "/model "))
		if id == "" {
			return protocol.ClientFrame{}, fmt.Errorf("usage: /model <id>")
		}
		return protocol.ClientFrame{Type: string(protocol.ClientFrameModelChange), Model: id}, nil
	default:
		return protocol.ClientFrame{Type: string(protocol.ClientFrameChat), Message: line}, nil
	}
}

// readLoop prints every server frame until the connection closes, then
// signals done.
func readLoop(ctx context.Context, conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "connection closed:", err)
			return
		}

		var chunk protocol.StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			fmt.Fprintln(os.Stderr, "malformed server frame:", err)
			continue
		}
		printChunk(chunk)
	}
}

func printChunk(chunk protocol.StreamChunk) {
	switch chunk.Type {
	case protocol.ChunkTypeConnected:
		var modelID any
		if model, ok := chunk.Metadata["model"].(map[string]any); ok {
			modelID = model["id"]
		}
		fmt.Printf("[connected] %s (model=%v)\n", chunk.Content, modelID)
	case protocol.ChunkTypeText:
		fmt.Print(chunk.Content)
		if chunk.Completed {
			fmt.Println()
		}
	case protocol.ChunkTypeToolUse:
		fmt.Printf("\n[tool_use] %s\n", chunk.Content)
	case protocol.ChunkTypeToolResult:
		fmt.Printf("[tool_result] %s\n", chunk.Content)
	case protocol.ChunkTypeThinking:
		fmt.Printf("[thinking] %s\n", chunk.Content)
	case protocol.ChunkTypeError:
		fmt.Printf("\n[error:%s] %v\n", chunk.Content, chunk.Metadata["detail"])
	case protocol.ChunkTypeResetComplete:
		fmt.Println("[reset_complete]")
	case protocol.ChunkTypeModelChanged:
		fmt.Printf("[model_changed] %v\n", chunk.Metadata)
	default:
		fmt.Printf("[%s] %s\n", chunk.Type, chunk.Content)
	}
}
