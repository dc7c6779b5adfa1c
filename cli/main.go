// Package main provides a terminal client for the consultant WebSocket endpoint.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/mateury/next-gen-consultant/internal/protocol"
)

// Client represents a WebSocket client.
type Client struct {
	conn *websocket.Conn
	out  io.Writer
	done chan struct{}
}

// NewClient creates a new client and connects to the server.
func NewClient(addr string, out io.Writer) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{
		conn: conn,
		out:  out,
		done: make(chan struct{}),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Done is closed when the server side goes away.
func (c *Client) Done() <-chan struct{} { return c.done }

// SendText sends a plain user message.
func (c *Client) SendText(text string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// SendAction sends a control envelope.
func (c *Client) SendAction(action string) error {
	return c.conn.WriteJSON(protocol.ControlMessage{Action: action})
}

// ReadEvents prints server events until the connection closes.
func (c *Client) ReadEvents() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Read error: %v", err)
			}
			return
		}

		var ev protocol.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}
		c.print(ev)
	}
}

func (c *Client) print(ev protocol.Event) {
	switch ev.Type {
	case protocol.TypeMessage:
		fmt.Fprintf(c.out, "\nconsultant: %s\n", ev.Content)
	case protocol.TypeStreamStart:
		fmt.Fprint(c.out, "\nconsultant: ")
	case protocol.TypeStreamChunk:
		fmt.Fprint(c.out, ev.Content)
	case protocol.TypeStreamEnd:
		fmt.Fprintln(c.out)
	case protocol.TypeError:
		fmt.Fprintf(c.out, "\n[error] %s\n", ev.Content)
	default:
		fmt.Fprintf(c.out, "\n[%s] %s\n", ev.Type, ev.Content)
	}
}

// command maps a slash command to a control action.
func command(input string) (string, bool) {
	switch input {
	case "/start":
		return protocol.ActionStart, true
	case "/end":
		return protocol.ActionEnd, true
	}
	return "", false
}

func main() {
	addr := flag.String("addr", "ws://localhost:8000/ws", "WebSocket server address")
	flag.Parse()

	log.SetFlags(log.Ltime)

	fmt.Printf("Connecting to %s...\n", *addr)

	client, err := NewClient(*addr, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	fmt.Println("Connected. Type a message and press Enter to send.")
	fmt.Println("Commands: /start new conversation, /end close conversation, /quit exit")

	go client.ReadEvents()

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return
		case <-client.Done():
			fmt.Println("\nConnection closed by server")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			input := strings.TrimSpace(line)
			if input == "" {
				continue
			}
			if input == "/quit" {
				fmt.Println("Bye!")
				return
			}

			if action, ok := command(input); ok {
				err = client.SendAction(action)
			} else {
				err = client.SendText(input)
			}
			if err != nil {
				log.Printf("Send error: %v", err)
			}
		}
	}
}
