package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
)

func emitCmd() *cobra.Command {
	var (
		serverURL string
		event     string
		room      string
		data      string
	)

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Emit an event through a running server",
		Long: `Send an event to connected clients through POST /emit.

Without --room the event is broadcast to every connection.

Examples:
  relay emit --event tasacion:changed --room presupuesto:42 --data '{"estado":"ok"}'
  relay emit --url http://relay.internal:3000 --event maintenance --data '"soon"'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(serverURL, event, room, data)
		},
	}

	cmd.Flags().StringVarP(&serverURL, "url", "u", "http://localhost:3000", "Server base URL")
	cmd.Flags().StringVarP(&event, "event", "e", "", "Event name")
	cmd.Flags().StringVarP(&room, "room", "r", "", "Target room (default: all connections)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON payload")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

type emitBody struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Room  string          `json:"room,omitempty"`
}

func runEmit(serverURL, event, room, data string) error {
	body := emitBody{Event: event, Room: room}
	if data != "" {
		if !json.Valid([]byte(data)) {
			return fmt.Errorf("--data is not valid JSON")
		}
		body.Data = json.RawMessage(data)
	}

	agent := fiber.Post(strings.TrimRight(serverURL, "/") + "/emit").JSON(body)
	code, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("emit request failed: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("emit rejected with status %d: %s", code, strings.TrimSpace(string(resp)))
	}

	fmt.Println(string(resp))
	return nil
}
