package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/magentic/llmclients/pkg/chats/message"
	"github.com/magentic/llmclients/pkg/modeladapter"
	"github.com/magentic/llmclients/pkg/providers/azureopenai"
	"github.com/spf13/cobra"
)

func newCompleteCmd(opts *rootOptions) *cobra.Command {
	var (
		deployment string
		system     string
		developer  string
		maxTokens  int
	)

	cmd := &cobra.Command{
		Use:   "complete [prompt...]",
		Short: "Send a prompt and print the reply (reads stdin when no prompt is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			log := opts.logger(cmd.ErrOrStderr())
			cache := azureopenai.NewCache(azureopenai.WithLogger(log))

			client, err := cache.GetOrCreate(cfg)
			if err != nil {
				return err
			}

			req := modeladapter.Request{
				Model:     deployment,
				MaxTokens: maxTokens,
			}
			if system != "" {
				req.Messages = append(req.Messages, message.System(system))
			}
			if developer != "" {
				req.Messages = append(req.Messages, message.Developer(developer))
			}
			req.Messages = append(req.Messages, message.User(prompt))

			return complete(ctx, cmd.OutOrStdout(), client, req, log)
		},
	}

	cmd.Flags().StringVarP(&deployment, "model", "m", "", "deployment to use (default: LLM_MODEL)")
	cmd.Flags().StringVarP(&system, "system", "s", "", "system prompt")
	cmd.Flags().StringVarP(&developer, "developer", "d", "", "developer instructions (for models that take the developer role)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum tokens in the reply (default: LLM_MAX_TOKENS)")

	return cmd
}

func complete(ctx context.Context, w io.Writer, c modeladapter.Completer, req modeladapter.Request, log *slog.Logger) error {
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}

	log.Debug("completion finished",
		"finish_reason", resp.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	_, err = fmt.Fprintln(w, resp.Text())
	return err
}

func readPrompt(r io.Reader, args []string) (string, error) {
	prompt := strings.Join(args, " ")

	if prompt == "" {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		prompt = string(data)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}

	return prompt, nil
}
