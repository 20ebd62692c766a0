package askdb

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/chat"
)

func (r *runner) newAskCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeFn, err := r.build(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := a.Pipeline.Ask(cmd.Context(), questionFromArgs(args))
			out := cmd.OutOrStdout()
			if err != nil {
				if result.SQL != "" {
					_, _ = fmt.Fprintf(out, "SQL: %s\n", result.SQL)
				}
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			_, _ = fmt.Fprintf(out, "SQL: %s\n%s\n", result.SQL, result.Text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the answer, query and rows as JSON")
	return cmd
}

func (r *runner) newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive question session",
		Args:  cobra.NoArgs,
		RunE:  r.runChat,
	}
}

func (r *runner) runChat(cmd *cobra.Command, _ []string) error {
	a, closeFn, err := r.build(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Database: %s (%s), model: %s/%s, tables: %d\n",
		a.Config.Database.Dialect, a.Config.Database.Driver, a.Pipeline.Provider(), a.Pipeline.Model(), a.Metadata.Len())
	session := chat.NewSession(a.Pipeline, chat.NewHistory(100), cmd.InOrStdin(), cmd.OutOrStdout())
	return session.Run(cmd.Context())
}

func (r *runner) newTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables described by the metadata document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeFn, err := r.build(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			chat.PrintTables(cmd.OutOrStdout(), a.Metadata.Tables())
			return nil
		},
	}
}

func (r *runner) newPromptCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "prompt <question>",
		Short: "Print the prompt that would be sent to the model, without calling it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeFn, err := r.build(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			draft, err := a.Pipeline.Prompt(questionFromArgs(args))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, draft)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), draft.Prompt)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the selected tables and prompt as JSON")
	return cmd
}

func writeJSON(cmd *cobra.Command, value any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
