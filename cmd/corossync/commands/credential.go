package commands

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"corossync/internal/credential"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	credentialPath string
	importFrom     string
	importScheme   string
)

func init() {
	credentialCmd.PersistentFlags().StringVar(&credentialPath, "credential", "", "Credential file (default from config).")

	importCmd.Flags().StringVar(&importFrom, "from", "", "Login artifact to import: a cookie export, a cookie header or a token. Use - for stdin.")
	importCmd.Flags().StringVar(&importScheme, "scheme", "", "Scheme given to a bare token: cookie-single, bearer-header or custom-header.")
	importCmd.MarkFlagRequired("from")

	credentialCmd.AddCommand(importCmd)
	credentialCmd.AddCommand(showCmd)
	rootCmd.AddCommand(credentialCmd)
}

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "The 'credential' subcommand manages the stored credential.",
}

var importCmd = &cobra.Command{
	Use:   "import --from FILE [--scheme SCHEME]",
	Short: "Parses the output of the interactive login and stores it as the credential.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var scheme credential.Scheme
		if importScheme != "" {
			parsed, err := credential.ParseScheme(importScheme)
			if err != nil {
				return err
			}
			scheme = parsed
		}

		var content []byte
		var err error
		if importFrom == "-" {
			content, err = io.ReadAll(cmd.InOrStdin())
		} else {
			content, err = os.ReadFile(importFrom)
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", importFrom, err)
		}

		runner, err := newRunner()
		if err != nil {
			return err
		}
		cred, err := runner.ImportCredential(content, scheme, credentialPath)
		if err != nil {
			return err
		}

		store, err := runner.CredentialStore(credentialPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s credential in %s\n", cred.Scheme, store.Path())
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Shows the stored credential without revealing it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner()
		if err != nil {
			return err
		}
		store, err := runner.CredentialStore(credentialPath)
		if err != nil {
			return err
		}
		cred, err := store.Load()
		if err != nil {
			return err
		}
		printCredential(cmd.OutOrStdout(), store.Path(), cred)
		return nil
	},
}

func printCredential(out io.Writer, path string, cred credential.Credential) {
	t := newTable(out)
	t.AppendRow(table.Row{"Path", path})
	t.AppendRow(table.Row{"Scheme", cred.Scheme})
	t.AppendRow(table.Row{"Captured", cred.CapturedAt.Local().Format(time.DateTime)})
	if cred.PrimaryToken != "" {
		t.AppendRow(table.Row{"Token", credential.Mask(cred.PrimaryToken)})
	}
	if len(cred.AuxiliaryAttributes) > 0 {
		names := make([]string, 0, len(cred.AuxiliaryAttributes))
		for name := range cred.AuxiliaryAttributes {
			names = append(names, name)
		}
		slices.Sort(names)
		t.AppendRow(table.Row{"Cookies", strings.Join(names, ", ")})
	}
	t.Render()
}
