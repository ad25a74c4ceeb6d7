package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/babywise/plugin/ai/aitime"
	"github.com/hrygo/babywise/plugin/ai/offline"
	"github.com/hrygo/babywise/plugin/ai/router"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with babywise; events are kept on this device until the server accepts them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return errors.Wrap(err, "invalid configuration")
			}
			if url := viper.GetString("server"); url != "" {
				p.SyncServerURL = url
			}

			buffer, err := offline.OpenBuffer(p.SyncBufferPath)
			if err != nil {
				return err
			}
			loc := p.Location()
			remote := offline.NewHTTPRemote(p.SyncServerURL)
			syncer := offline.NewSyncer(buffer, remote, p.SyncPollInterval, offline.DefaultProbeInterval)
			client := offline.NewClient(router.NewClassifier(aitime.NewParser(loc)), buffer, remote, syncer, loc)

			ctx := cmd.Context()
			go syncer.Run(ctx)

			return runREPL(cmd, client, syncer, buffer, viper.GetString("thread"), p.DefaultLocale)
		},
	}
	cmd.Flags().String("server", "", "babywise server URL (default: BABYWISE_SYNC_SERVER_URL)")
	cmd.Flags().String("thread", "default", "conversation thread id")
	for _, name := range []string{"server", "thread"} {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	return cmd
}

// runREPL reads one message per line. Lines starting with "/" are client commands.
func runREPL(cmd *cobra.Command, client *offline.Client, syncer *offline.Syncer, buffer *offline.Buffer, threadID, lang string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprintf(out, "babywise chat (thread %s). /sync, /status, /quit\n", threadID)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/sync":
			n, err := syncer.SyncOnce(ctx)
			if err != nil {
				fmt.Fprintf(out, "synced %d, server unavailable: %v\n", n, err)
			} else {
				fmt.Fprintf(out, "synced %d\n", n)
			}
			continue
		case "/status":
			printStatus(out, syncer, buffer)
			continue
		}

		reply, err := client.Handle(ctx, threadID, line, lang)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, reply.Text)
	}
}

func printStatus(out io.Writer, syncer *offline.Syncer, buffer *offline.Buffer) {
	state := "offline"
	if syncer.Online() {
		state = "online"
	}
	fmt.Fprintf(out, "%s, %d of %d entries waiting to sync\n", state, len(buffer.Pending()), buffer.Len())
}

func viperString(key, fallback string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}
