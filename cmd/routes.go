package cmd

import (
	"fmt"

	"github.com/go-chi/docgen"
	"github.com/spf13/cobra"

	"github.com/SergeyParamoshkin/issueblog/internal/server"
)

var flagRoutesJSON bool

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Generate router documentation",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := server.NewRouter(server.Deps{})

		if flagRoutesJSON {
			fmt.Fprintln(cmd.OutOrStdout(), docgen.JSONRoutesDoc(r))

			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
			ProjectPath: "github.com/SergeyParamoshkin/issueblog",
			Intro:       "Routes of the issueblog JSON API.",
		}))

		return nil
	},
}

func init() {
	routesCmd.Flags().BoolVar(&flagRoutesJSON, "json", false, "print JSON instead of markdown")
}
