package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/alkoleft/web-transport-addin/internal/logging"
	"github.com/alkoleft/web-transport-addin/pkg/addin"
	"github.com/alkoleft/web-transport-addin/pkg/types"
)

var (
	wsHeaders  []string
	wsSend     []string
	wsTimeout  int
	wsRetry    bool
	wsAttempts uint64
)

var wsCmd = &cobra.Command{
	Use:   "ws <url>",
	Short: "Connect to a WebSocket server through the ws add-in",
	Long: `Connect to url, send every --send message in order, then print
received frames until a receive times out or the stream ends.`,
	Args: cobra.ExactArgs(1),
	RunE: runWS,
}

func init() {
	wsCmd.Flags().StringArrayVarP(&wsHeaders, "header", "H", nil, "Extra handshake header (name=value), repeatable")
	wsCmd.Flags().StringArrayVarP(&wsSend, "send", "s", nil, "Text frame to send after connecting, repeatable")
	wsCmd.Flags().IntVar(&wsTimeout, "timeout", 1000, "Receive timeout in milliseconds")
	wsCmd.Flags().BoolVar(&wsRetry, "retry", false, "Retry the connect with exponential backoff")
	wsCmd.Flags().Uint64Var(&wsAttempts, "attempts", 5, "Maximum connect retries with --retry")
}

func runWS(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	headersJSON, err := headerFlagsJSON(wsHeaders)
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout(), noColor)
	w := addin.NewWS(cfg)
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := connect(ctx, w, args[0], headersJSON); err != nil {
		return err
	}
	p.Info("Connected to %s", args[0])
	defer w.Disconnect()

	for _, text := range wsSend {
		if !w.SendMessage(text) {
			return errors.New(w.LastError())
		}
		p.Frame("→", text)
	}

	for ctx.Err() == nil {
		msg, ok := w.ReceiveMessage(wsTimeout)
		if !ok {
			p.Error("receive: %s", w.LastError())
			continue
		}
		if msg == "" {
			break
		}
		p.Frame("←", msg)
	}
	return nil
}

// connect opens the connection, retrying transient failures when --retry is set.
func connect(ctx context.Context, w *addin.WS, address, headersJSON string) error {
	op := func() error {
		if w.Connect(address, headersJSON) {
			return nil
		}
		err := w.Err()
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if !wsRetry {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0

	return backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(b, wsAttempts), ctx),
		func(err error, next time.Duration) {
			logging.Warn().Err(err).Dur("retryIn", next).Msg("Connect failed")
		},
	)
}

// retryable reports whether a connect failure may succeed on another attempt.
func retryable(err error) bool {
	return !errors.Is(err, types.ErrInvalidAddress) && !errors.Is(err, types.ErrInvalidHeadersPayload)
}

// headerFlagsJSON turns name=value flags into the add-in's header object.
func headerFlagsJSON(flags []string) (string, error) {
	if len(flags) == 0 {
		return "", nil
	}
	hdrs := make(map[string]string, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return "", fmt.Errorf("invalid header %q, want name=value", f)
		}
		hdrs[strings.TrimSpace(name)] = value
	}
	data, err := json.Marshal(hdrs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
