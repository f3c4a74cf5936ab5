// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rdfcsv/internal/messages"
	"github.com/pdiddy/rdfcsv/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files or URLs...]",
	Short: "Check inputs locally without contacting the service",
	Long: `Validate applies the same checks convert runs before submitting: URL
scheme and host, file extension, size and name, language codes and naming
convention. Nothing is sent over the network.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().String("preferred-languages", "", "comma-separated language codes, e.g. en,cs")
	validateCmd.Flags().String("naming-convention", "", "column naming convention, e.g. camelCase")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more RDF files or URLs")
	}
	lang := messages.ParseLang(loadConfig().Lang)
	langs, _ := cmd.Flags().GetString("preferred-languages")
	convention, _ := cmd.Flags().GetString("naming-convention")

	reqs, closeInputs, err := buildRequests(args, requestOptions{
		PreferredLanguages: langs,
		NamingConvention:   convention,
	})
	defer closeInputs()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	invalid := 0
	for i, req := range reqs {
		result := validate.Form(req)
		if result.Valid {
			fmt.Fprintf(out, "valid:   %s\n", args[i])
			continue
		}
		invalid++
		fmt.Fprintf(out, "invalid: %s\n", args[i])
		for _, v := range result.Violations {
			fmt.Fprintf(out, "  - %s\n", messages.Violation(v, lang))
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d input(s) invalid", invalid, len(reqs))
	}
	return nil
}
