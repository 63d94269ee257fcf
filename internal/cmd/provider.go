package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/verdict/internal/provider"
)

func newProviderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Inspect AI provider configuration",
	}

	var format string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the supported providers and whether a credential is available",
		Args:  cobra.NoArgs,
	}
	list.RunE = a.instrument("provider.list", func(*cobra.Command, []string) error {
		formatter, err := a.formatter(format)
		if err != nil {
			return err
		}
		return formatter.Format(a.providerRows())
	})
	list.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")

	cmd.AddCommand(list)
	return cmd
}

func (a *app) providerRows() providerListView {
	view := providerListView{Providers: make([]providerRow, 0, len(provider.Builtin))}
	for _, kind := range provider.Builtin {
		settings := a.cfg.ProviderSettings(kind)
		view.Providers = append(view.Providers, providerRow{
			Name:          kind.String(),
			DisplayName:   kind.DisplayName(),
			Model:         settings.Model,
			APIKeyEnv:     settings.APIKeyEnv,
			CredentialSet: settings.Credential() != "",
		})
	}
	return view
}
