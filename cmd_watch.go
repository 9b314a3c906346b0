package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var (
		serverURL string
		origin    string
		user      string
		rooms     []string
		ping      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect as a client and print received events",
		Long: `Open a WebSocket connection, authenticate, join rooms and print every event
the server sends. Rooms are given as <kind>:<id>.

Examples:
  relay watch --room presupuesto:42
  relay watch --url ws://relay.internal:3000/ws --user 7 --ping 10s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, serverURL, origin, user, rooms, ping)
		},
	}

	cmd.Flags().StringVarP(&serverURL, "url", "u", "ws://localhost:3000/ws", "WebSocket URL")
	cmd.Flags().StringVar(&origin, "origin", "", "Origin header to send")
	cmd.Flags().StringVar(&user, "user", "", "User id to authenticate as")
	cmd.Flags().StringSliceVarP(&rooms, "room", "r", nil, "Room to join as <kind>:<id> (repeatable)")
	cmd.Flags().DurationVar(&ping, "ping", 0, "Send ping events at this interval")

	return cmd
}

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func runWatch(ctx context.Context, serverURL, origin, user string, rooms []string, ping time.Duration) error {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", serverURL, err)
	}
	defer conn.Close()

	if user != "" {
		identity := map[string]string{"userId": user, "userName": user}
		if err := send(conn, "authenticate", identity); err != nil {
			return err
		}
	}
	for _, room := range rooms {
		kind, id, ok := strings.Cut(room, ":")
		if !ok || kind == "" || id == "" {
			return fmt.Errorf("invalid room %q, want <kind>:<id>", room)
		}
		if err := send(conn, "join:"+kind, id); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if ping > 0 {
		go func() {
			ticker := time.NewTicker(ping)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := send(conn, "ping", nil); err != nil {
						return
					}
				}
			}
		}()
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var evt wireEvent
		if err := json.Unmarshal(frame, &evt); err != nil {
			fmt.Printf("%s  (unparsed) %s\n", time.Now().Format(time.TimeOnly), frame)
			continue
		}
		fmt.Printf("%s  %-24s %s\n", time.Now().Format(time.TimeOnly), evt.Event, evt.Data)
	}
}

func send(conn *websocket.Conn, event string, data any) error {
	msg := map[string]any{"event": event}
	if data != nil {
		msg["data"] = data
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}
