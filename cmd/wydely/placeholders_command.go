package main

import (
	"fmt"
	"os"

	"github.com/jrsteele09/wydely-client/templates"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPlaceholdersCommand() *cobra.Command {
	var (
		body       string
		bodyFile   string
		valuesFile string
		render     bool
	)

	cmd := &cobra.Command{
		Use:   "placeholders",
		Short: "List, merge or fill the [[n]] placeholders of a template body",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if bodyFile != "" {
				data, err := os.ReadFile(bodyFile)
				if err != nil {
					return err
				}
				body = string(data)
			}

			var existing []templates.Placeholder
			if valuesFile != "" {
				data, err := os.ReadFile(valuesFile)
				if err != nil && !os.IsNotExist(err) {
					return err
				}
				if err := yaml.Unmarshal(data, &existing); err != nil {
					return fmt.Errorf("parse %s: %w", valuesFile, err)
				}
			}
			merged := templates.Merge(existing, body)

			if render {
				out, err := templates.Render(body, merged)
				if err != nil {
					return err
				}
				a.printf("%s\n", out)
				return nil
			}

			if valuesFile != "" {
				data, err := yaml.Marshal(merged)
				if err != nil {
					return err
				}
				if err := os.WriteFile(valuesFile, data, 0o600); err != nil {
					return err
				}
			}
			enc := yaml.NewEncoder(a.out)
			defer enc.Close()
			return enc.Encode(merged)
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "Template body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read the template body from a file")
	cmd.Flags().StringVar(&valuesFile, "values", "", "YAML file of placeholder values, rewritten to match the body")
	cmd.Flags().BoolVar(&render, "render", false, "Print the body with placeholders filled instead")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
	return cmd
}
