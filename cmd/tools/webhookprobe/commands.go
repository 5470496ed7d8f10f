package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/briefing-buddy/backend/internal/analysis/reply"
	"github.com/briefing-buddy/backend/internal/model/project"
	projectservice "github.com/briefing-buddy/backend/internal/service/project"
	"github.com/briefing-buddy/backend/internal/storage"
	"github.com/briefing-buddy/backend/internal/webhook"
)

func askCmd() *cobra.Command {
	var instruction string

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one chat message and print the normalized reply",
		Long: `Send one chat message to the webhook and print the reply exactly as
the chat would display it.

Examples:
  webhookprobe ask "What changed in the Health ministry?"
  webhookprobe ask "Summarize today's briefing" --raw`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient()
			if err != nil {
				return err
			}

			res, err := client.Send(cmd.Context(), webhook.Request{
				Message:     strings.Join(args, " "),
				Instruction: instruction,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "error (%s): %v\n", webhook.Classify(err), err)
				fmt.Println(webhook.UserMessage(err))
				return nil
			}

			if showRaw {
				fmt.Printf("status: %d\nbody: %s\n\n", res.StatusCode, res.Body)
			}
			result := reply.Normalize(res.Body)
			fmt.Printf("[%s] %s\n", result.Kind, result.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "optional instruction sent with the message")
	return cmd
}

// recordingTransport 记录最后一次响应体
type recordingTransport struct {
	client *webhook.Client
	body   []byte
}

func (t *recordingTransport) Send(ctx context.Context, req webhook.Request) (*webhook.Response, error) {
	res, err := t.client.Send(ctx, req)
	if err == nil {
		t.body = res.Body
	}
	return res, err
}

func projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "Fetch and print the per-ministry project counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := loadClient()
			if err != nil {
				return err
			}

			baseline, err := project.LoadBaseline(cfg.Projects.BaselineFile)
			if err != nil {
				return err
			}

			transport := &recordingTransport{client: client}
			svc := projectservice.NewService(transport, storage.NewMemoryStore(0), baseline, projectservice.Config{
				Prompt:      cfg.Projects.Prompt,
				Instruction: cfg.Projects.Instruction,
			}, nil)

			dashboard, err := svc.Dashboard(cmd.Context())
			if err != nil {
				return err
			}

			if showRaw {
				fmt.Printf("body: %s\n\n", transport.body)
			}
			fmt.Printf("fiscal year %s, source %s, %d projects\n\n", dashboard.FiscalYear, dashboard.Source, dashboard.TotalProjects)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MINISTRY\tPROJECTS\tBUDGET\tSPENT\t%")
			for _, v := range dashboard.Views() {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", v.Name, v.ProjectCount, v.TotalBudget, v.SpentBudget, v.PercentSpent)
			}
			return w.Flush()
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the webhook endpoint answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient()
			if err != nil {
				return err
			}

			status, err := client.Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("ping failed (%s): %w", webhook.Classify(err), err)
			}
			fmt.Printf("webhook answered with status %d\n", status)
			return nil
		},
	}
}
