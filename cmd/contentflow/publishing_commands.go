package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"contentflow/internal/ipc"
)

func newWebhookCommand(ctx *commandContext) *cobra.Command {
	webhookCmd := &cobra.Command{
		Use:   "webhook",
		Short: "Show or change the Make.com webhook",
	}
	webhookCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the configured Make.com webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.WebhookGet()
				if err != nil {
					return err
				}
				if strings.TrimSpace(resp.WebhookURL) == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No webhook configured")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.WebhookURL)
				return nil
			})
		},
	})
	webhookCmd.AddCommand(&cobra.Command{
		Use:   "set <url>",
		Short: "Store the Make.com webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.WebhookSet(args[0])
				if err != nil {
					return err
				}
				message := resp.Message
				if message == "" {
					message = "Webhook saved"
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	})
	return webhookCmd
}

func newMethodsCommand(ctx *commandContext) *cobra.Command {
	var platform string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "methods",
		Short: "List posting methods for a platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PublishingMethods(platform)
				if err != nil {
					return err
				}
				if done, err := maybeJSON(cmd, asJSON, resp); done {
					return err
				}
				rows := make([][]string, 0, len(resp.Methods))
				for _, method := range resp.Methods {
					def := ""
					if method.Default {
						def = "*"
					}
					rows = append(rows, []string{method.Method, yesNo(method.Available), def, method.Breaker})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Platform: %s (LinkedIn connected: %s)\n", resp.Platform, yesNo(resp.Connected))
				fmt.Fprint(out, renderTable([]string{"Method", "Available", "Default", "Breaker"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Platform to check")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newPostCommand(ctx *commandContext) *cobra.Command {
	var req ipc.PostRequest
	cmd := &cobra.Command{
		Use:   "post <message...>",
		Short: "Publish an ad-hoc message without queueing an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Message = strings.Join(args, " ")
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Post(req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, resp.Message)
				if resp.PostURL != "" {
					fmt.Fprintln(out, resp.PostURL)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&req.Platform, "platform", "p", "", "Target platform")
	cmd.Flags().StringVarP(&req.Method, "method", "m", "", "Posting method")
	cmd.Flags().StringVar(&req.ImageURL, "image-url", "", "Image to attach")
	return cmd
}

func newConnectCommand(ctx *commandContext) *cobra.Command {
	connectCmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect publishing accounts",
	}
	connectCmd.AddCommand(&cobra.Command{
		Use:   "linkedin",
		Short: "Print the LinkedIn consent URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LinkedInAuthorize()
				if err != nil {
					return err
				}
				if resp == nil || resp.URL == "" {
					return errors.New("daemon returned no authorization URL")
				}
				out := cmd.OutOrStdout()
				if resp.Connected {
					fmt.Fprintln(out, "LinkedIn is already connected; open the URL below to reconnect.")
				}
				fmt.Fprintln(out, "Open this URL in a browser to authorize contentflow:")
				fmt.Fprintln(out, resp.URL)
				return nil
			})
		},
	})
	return connectCmd
}
