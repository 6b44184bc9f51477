package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alkoleft/web-transport-addin/internal/event"
	"github.com/alkoleft/web-transport-addin/internal/logging"
	"github.com/alkoleft/web-transport-addin/pkg/addin"
	"github.com/alkoleft/web-transport-addin/pkg/types"
)

var (
	serveAddr  string
	serveClass string
	serveEcho  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP listener and print delivered notifications",
	Long: `Start an http or mcp add-in instance and act as its host: every
notification is printed as it arrives. With --echo, generic requests are
answered with their own body and SSE_OPEN / MCP_MESSAGE payloads are sent
back to the session as SSE message events.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Address to listen on (ip:port)")
	serveCmd.Flags().StringVar(&serveClass, "class", addin.ClassHTTP, "Add-in class (http|mcp)")
	serveCmd.Flags().BoolVar(&serveEcho, "echo", false, "Answer every notification automatically")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveClass != addin.ClassHTTP && serveClass != addin.ClassMCP {
		return fmt.Errorf("class must be %s or %s", addin.ClassHTTP, addin.ClassMCP)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout(), noColor)
	h := addin.NewHTTP(serveClass, cfg)
	defer h.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lifecycle, err := h.Bus().Messages(ctx)
	if err != nil {
		return err
	}
	go func() {
		for msg := range lifecycle {
			p.Lifecycle(msg.Metadata.Get("type"), msg.Payload)
			msg.Ack()
		}
	}()

	queue := event.NewQueue()
	h.Init(queue)
	if !h.StartHTTP(serveAddr) {
		return errors.New(h.LastError())
	}
	p.Info("Listening on http://%s (%s)", h.Addr(), serveClass)

	for {
		n, err := queue.Next(ctx)
		if err != nil {
			break
		}
		p.Notification(n)
		if serveEcho {
			if err := echo(h, n); err != nil {
				p.Error("echo: %v", err)
			}
		}
	}

	p.Muted("Shutting down...")
	if !h.StopHTTP() {
		logging.Warn().Str("error", h.LastError()).Msg("Stop failed")
	}
	return nil
}

// echo answers n the way a trivial host would.
func echo(h *addin.HTTP, n event.Notification) error {
	switch n.Name {
	case types.EventHTTP:
		var req types.IncomingRequest
		if err := json.Unmarshal([]byte(n.Data), &req); err != nil {
			return err
		}
		hdrs := map[string]string{}
		if ct, ok := req.Headers["Content-Type"]; ok {
			hdrs["Content-Type"] = ct
		}
		hdrJSON, _ := json.Marshal(hdrs)
		if !h.SendHTTPResponse(req.ID, 200, string(hdrJSON), req.Body) {
			return errors.New(h.LastError())
		}

	case types.EventSSEOpen:
		var open types.SSEOpen
		if err := json.Unmarshal([]byte(n.Data), &open); err != nil {
			return err
		}
		if !h.SendSSE(open.ID, n.Data) {
			return errors.New(h.LastError())
		}

	case types.EventMCPMessage:
		var req types.IncomingRequest
		if err := json.Unmarshal([]byte(n.Data), &req); err != nil {
			return err
		}
		q, err := url.ParseQuery(req.Query)
		if err != nil {
			return err
		}
		if id := q.Get("sessionId"); id != "" && !h.SendSSE(id, req.Body) {
			return errors.New(h.LastError())
		}
	}
	return nil
}
