// AngelaMos | 2026
// chat.go

package main

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/license-gate/internal/relay"
)

const maxHistory = 20

func chatCmd(a *app) *cobra.Command {
	var mode, lang string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively",
		Long: "Reads one question per line. Each answered question uses one " +
			"unit of the license. Type /status to see the license, /quit to leave.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			defer a.close()

			return a.chat(cmd, relay.ParseMode(mode), relay.ParseLang(lang))
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(relay.ModeHealing), "answer mode")
	cmd.Flags().StringVar(&lang, "lang", string(relay.LangRO), "answer language (ro, en)")

	return cmd
}

func (a *app) chat(cmd *cobra.Command, mode relay.Mode, lang relay.Lang) error {
	ctx := cmd.Context()
	in := bufio.NewScanner(cmd.InOrStdin())
	var history []relay.Message

	for {
		cmd.Print("> ")
		if !in.Scan() {
			cmd.Println()
			return in.Err()
		}

		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/status":
			st := a.manager.Status(ctx, a.session)
			cmd.Printf("%s: %d questions, %d days remaining\n",
				describeStatus(st), st.QuestionsRemaining, st.DaysRemaining)
			continue
		}

		query, err := relay.NormalizeQuery(line)
		if err != nil {
			cmd.Println(err)
			continue
		}

		d, err := a.gate.OnBeforeAction(ctx, a.session)
		if err != nil {
			return err
		}
		if !d.Allowed {
			cmd.Println(denialMessage(d))
			continue
		}

		resp, err := a.completer.Complete(ctx, relay.BuildRequest(
			lang, mode, history, query,
			a.cfg.OpenAI.Temperature, a.cfg.OpenAI.MaxTokens,
		))
		if err != nil {
			cmd.Printf("The assistant is unavailable: %v\n", err)
			continue
		}

		cmd.Println(resp.Text)
		a.gate.OnAfterAction(ctx, a.session)

		if d.Grace {
			cmd.Println("(This was the last question your license covers.)")
		}

		history = append(history,
			relay.Message{Role: relay.RoleUser, Content: query},
			relay.Message{Role: relay.RoleAssistant, Content: resp.Text},
		)
		if len(history) > maxHistory {
			history = history[len(history)-maxHistory:]
		}
	}
}
