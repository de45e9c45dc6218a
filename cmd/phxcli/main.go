package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eshe-huli/phx/phoenix"
)

var (
	version      = "0.1.0"
	cfgPath      string
	endpointFlag string
	tokenFlag    string
	keyFlag      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "phxcli",
		Short:   "phxcli — a Phoenix Channels command-line client",
		Long:    `phxcli connects to a Phoenix server, joins channels, and pushes events over WebSocket using the phoenix client library.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default: ~/.phxcli/config.toml)")
	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "Phoenix server WebSocket URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "bearer token (overrides config)")
	rootCmd.PersistentFlags().StringVar(&keyFlag, "key", "", "ed25519 private key file for challenge signing (overrides config)")

	rootCmd.AddCommand(connectCmd())
	rootCmd.AddCommand(joinCmd())
	rootCmd.AddCommand(pushCmd())
	rootCmd.AddCommand(putCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(keygenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect to a Phoenix server and hold the socket open",
		Long:  "Dials the configured endpoint and blocks, printing open/close/error events, until interrupted.",
		RunE:  runConnect,
	}
}

func joinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <topic>",
		Short: "Join a channel and print its join reply",
		Args:  cobra.ExactArgs(1),
		RunE:  runJoin,
	}
	cmd.Flags().BoolP("wait", "w", false, "stay connected and print broadcasts after joining")
	return cmd
}

func pushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <topic> <event> <json-payload>",
		Short: "Join a channel, push one event, print the reply",
		Args:  cobra.ExactArgs(3),
		RunE:  runPush,
	}
	return cmd
}

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <topic> <event> <file>",
		Short: "Join a channel and binary-push a file's contents",
		Args:  cobra.ExactArgs(3),
		RunE:  runPut,
	}
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <topic> <event> [directories...]",
		Short: "Join a channel and push a debounced event for every file change",
		Long:  "Watches the given directories (default: current directory) for changes, computes a BLAKE3 hash per file, and pushes one event per settled change.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runWatch,
	}
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "debounce window for file changes")
	return cmd
}

func keygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen <output-file>",
		Short: "Generate an Ed25519 keypair for challenge-based authentication",
		Long:  "Writes the raw private key to <output-file> (mode 0600) and prints the hex-encoded public key to give the server.",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeygen,
	}
	return cmd
}

// ── Command Implementations ──────────────────────────────────────────

func runConnect(cmd *cobra.Command, args []string) error {
	socket, _, err := dial()
	if err != nil {
		return err
	}
	defer socket.Disconnect(phoenix.CloseNormal, "phxcli exiting")

	socket.OnOpen(func() { fmt.Println("socket: open") })
	socket.OnClose(func() { fmt.Println("socket: closed") })
	socket.OnError(func(err error) { fmt.Fprintf(os.Stderr, "socket: error: %v\n", err) })

	fmt.Println("Connected. Press Ctrl+C to disconnect.")
	<-interruptContext().Done()
	return nil
}

func runJoin(cmd *cobra.Command, args []string) error {
	topic := args[0]
	wait, _ := cmd.Flags().GetBool("wait")

	socket, cfg, err := dial()
	if err != nil {
		return err
	}
	defer socket.Disconnect(phoenix.CloseNormal, "phxcli exiting")

	ch := socket.Channel(topic, nil)
	reply, err := awaitPush(ch.Join(cfg.JoinTimeout()))
	if err != nil {
		return fmt.Errorf("join %s: %w", topic, err)
	}
	fmt.Printf("joined %s: %s\n", topic, reply.Payload)

	if !wait {
		return nil
	}

	ch.OnMessage(func(m phoenix.Message) phoenix.Message {
		fmt.Printf("%s %s: %s\n", topic, m.Event, m.Payload)
		return m
	})
	<-interruptContext().Done()
	return nil
}

func runPush(cmd *cobra.Command, args []string) error {
	topic, event, rawPayload := args[0], args[1], args[2]

	var payload any
	if err := json.Unmarshal([]byte(rawPayload), &payload); err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}

	socket, cfg, err := dial()
	if err != nil {
		return err
	}
	defer socket.Disconnect(phoenix.CloseNormal, "phxcli exiting")

	ch := socket.Channel(topic, nil)
	if _, err := awaitPush(ch.Join(cfg.JoinTimeout())); err != nil {
		return fmt.Errorf("join %s: %w", topic, err)
	}

	reply, err := awaitPush(ch.Push(event, payload, cfg.JoinTimeout()))
	if err != nil {
		return fmt.Errorf("push %s: %w", event, err)
	}
	fmt.Printf("reply: %s\n", reply.Payload)
	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	topic, event, filePath := args[0], args[1], args[2]

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	hash := blake3Hash(data)

	socket, cfg, err := dial()
	if err != nil {
		return err
	}
	defer socket.Disconnect(phoenix.CloseNormal, "phxcli exiting")

	ch := socket.Channel(topic, nil)
	if _, err := awaitPush(ch.Join(cfg.JoinTimeout())); err != nil {
		return fmt.Errorf("join %s: %w", topic, err)
	}

	reply, err := awaitPush(ch.BinaryPush(event, data, cfg.JoinTimeout()))
	if err != nil {
		return fmt.Errorf("binary push %s: %w", event, err)
	}

	fmt.Printf("uploaded %s (%s, blake3:%x) -> %s\n", filePath, humanize.Bytes(uint64(len(data))), hash[:8], reply.Payload)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	topic, event := args[0], args[1]
	dirs := args[2:]
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")

	socket, cfg, err := dial()
	if err != nil {
		return err
	}
	defer socket.Disconnect(phoenix.CloseNormal, "phxcli exiting")

	ch := socket.Channel(topic, nil)
	if _, err := awaitPush(ch.Join(cfg.JoinTimeout())); err != nil {
		return fmt.Errorf("join %s: %w", topic, err)
	}

	fmt.Printf("watching %v (debounce %v) -> %s/%s\n", dirs, debounce, topic, event)
	return watchDirs(interruptContext(), dirs, debounce, ch, event)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	outPath := args[0]
	pub, priv, err := genKeypair()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, priv, 0o600); err != nil {
		return fmt.Errorf("write key %s: %w", outPath, err)
	}
	fmt.Printf("wrote private key to %s\npublic key: %s\n", outPath, hexPublicKey(pub))
	return nil
}

func interruptContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}
