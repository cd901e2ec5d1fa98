package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ds/internal/search"
	"github.com/Aman-CERP/ds/internal/ui"
)

func newSQLCmd(a *app) *cobra.Command {
	flags := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "sql <pattern> [query...]",
		Short: "Print the generated SQL without running it",
		Long: `Translate a pattern and query into Windows Search SQL and print it.

Nothing is sent to the search provider, so this works on any platform with
the native generator.`,
		Example: `  ds sql *.go
  ds sql --generator native report budget ext:xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(cmd, a, flags, args)
		},
	}

	flags.register(cmd)
	return cmd
}

// sqlDocument is the JSON form of "ds sql".
type sqlDocument struct {
	Pattern   string `json:"pattern"`
	Query     string `json:"query"`
	SQL       string `json:"sql"`
	Generator string `json:"generator"`
	Kind      string `json:"kind"`
	Where     string `json:"where"`
}

func runSQL(cmd *cobra.Command, a *app, flags *searchFlags, args []string) error {
	cfg := a.config()
	if err := flags.apply(cfg); err != nil {
		return err
	}

	engine, _, closeEngine, err := newEngine(cfg, false, 0)
	if err != nil {
		return err
	}
	defer closeEngine()

	pattern, userQuery := splitArgs(args)
	resp, err := engine.GenerateSQL(commandContext(cmd), search.Options{
		Pattern:    pattern,
		UserQuery:  userQuery,
		MaxResults: cfg.Search.MaxResults,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.Output.Format == ui.FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sqlDocument{
			Pattern:   pattern,
			Query:     userQuery,
			SQL:       resp.SQL,
			Generator: resp.Generator,
			Kind:      resp.Restriction.Kind.String(),
			Where:     resp.Restriction.Where(),
		})
	}

	_, err = fmt.Fprintln(out, resp.SQL)
	return err
}
