package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/babywise/plugin/ai/aitime"
	"github.com/hrygo/babywise/plugin/ai/router"
	"github.com/hrygo/babywise/server/timezone"
)

func newClassifyCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "classify <message>",
		Short: "Print how a chat message would be classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := timezone.ParseTimezone(viperString("timezone", "Local"))
			if err != nil {
				return err
			}
			now := time.Now().In(loc)
			if at != "" {
				if now, err = time.ParseInLocation("2006-01-02 15:04", at, loc); err != nil {
					return errors.Wrap(err, `--at must look like "2026-01-27 21:00"`)
				}
			}

			message := strings.Join(args, " ")
			classifier := router.NewClassifier(aitime.NewParser(loc))
			result := classifier.ClassifyAt(message, viperString("locale", ""), now)

			out := struct {
				router.Result
				IsCommand bool          `json:"is_command"`
				Domain    router.Domain `json:"domain,omitempty"`
			}{Result: result, IsCommand: result.IsCommand()}
			if !out.IsCommand {
				out.Domain = classifier.SelectDomain(message)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", `reference time "YYYY-MM-DD HH:MM" instead of now`)
	return cmd
}
