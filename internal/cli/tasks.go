package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/services/launcher"
	"xsolla-tools/internal/services/tasks"
)

func (a *app) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <steam-app-id>...",
		Short: "Create games in the project from Steam apps",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return eachArg(args, func(arg string) error {
				appID, err := parseAppID(arg)
				if err != nil {
					return err
				}
				created, err := a.tasks.ImportFromCatalog(cmd.Context(), tasks.ImportForm{
					APIKey: a.key(), ProjectID: a.project(), AppID: appID,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", appID, created.SKU)
				return nil
			})
		},
	}
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <sku>...",
		Short: "Delete games from the project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return eachArg(args, func(sku string) error {
				return a.tasks.DeleteSKU(cmd.Context(), tasks.DeleteForm{APIKey: a.key(), ProjectID: a.project(), SKU: sku})
			})
		},
	}
}

func (a *app) recalculateCommand() *cobra.Command {
	var percent string
	cmd := &cobra.Command{
		Use:   "recalculate <bundle-sku>...",
		Short: "Set bundle prices to the discounted sum of their items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := decimal.NewFromString(percent)
			if err != nil {
				return errs.Validation("invalid discount %q", percent)
			}
			discount := pct.Div(decimal.NewFromInt(100))

			return eachArg(args, func(sku string) error {
				result, err := a.tasks.RecalculateBundle(cmd.Context(), tasks.RecalculateForm{
					APIKey: a.key(), ProjectID: a.project(), SKU: sku, Discount: discount,
				})
				if err != nil {
					return err
				}
				for _, c := range result.Prices.Currencies() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", sku, c, result.Prices[c].StringFixed(2))
				}
				for _, w := range result.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "WARNING: %s\n", w)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&percent, "discount", "0", "discount in percent, 0 to 99")
	return cmd
}

func (a *app) updatePricesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update-prices <sku> <steam-app-id>",
		Short: "Replace a game's prices with the current Steam prices",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := parseAppID(args[1])
			if err != nil {
				return err
			}
			prices, err := a.tasks.UpdatePrices(cmd.Context(), tasks.UpdatePricesForm{
				APIKey: a.key(), ProjectID: a.project(), SKU: args[0], AppID: appID,
			})
			if err != nil {
				return err
			}
			for _, c := range prices.Currencies() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c, prices[c].StringFixed(2))
			}
			return nil
		},
	}
}

func (a *app) publishCommand() *cobra.Command {
	var form tasks.PublishForm
	var visibility string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload a game build with the launcher build loader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form.Visibility = launcher.Visibility(visibility)
			return a.tasks.PublishBuild(cmd.Context(), form)
		},
	}
	cmd.Flags().StringVar(&form.LauncherKey, "launcher-key", "", "launcher API key")
	cmd.Flags().StringVar(&form.GameFolder, "game-folder", "", "folder holding the build")
	cmd.Flags().StringVar(&form.LoaderPath, "loader", "", "build loader executable (default: the last one used)")
	cmd.Flags().StringVar(&form.Description, "description", "", "build description")
	cmd.Flags().StringVar(&visibility, "visibility", "", "none, draft or published")
	_ = cmd.MarkFlagRequired("launcher-key")
	_ = cmd.MarkFlagRequired("game-folder")
	return cmd
}

func (a *app) keysCommand() *cobra.Command {
	var form tasks.KeysForm
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate redemption keys into a text file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.tasks.GenerateKeys(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d keys written to %s\n", len(keys), form.OutputPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&form.OutputPath, "output", "o", "keys.txt", "output file")
	cmd.Flags().IntVarP(&form.Count, "count", "n", 100, "number of keys")
	return cmd
}

func (a *app) qrcodeCommand() *cobra.Command {
	var form tasks.QRCodeForm
	cmd := &cobra.Command{
		Use:   "qrcode <sku>",
		Short: "Generate a QR code linking to the checkout of a SKU",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form.SKU = args[0]
			form.ProjectID = a.project()
			link, err := a.tasks.GenerateQRCode(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.SKUType, "type", "game", "SKU type: game or bundle")
	cmd.Flags().StringVarP(&form.OutputPath, "output", "o", "qrcode.png", "output PNG file")
	return cmd
}

func (a *app) exportCSVCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv <path>",
		Short: "Export game key prices of the project to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.tasks.ExportPricesCSV(cmd.Context(), tasks.CSVForm{APIKey: a.key(), ProjectID: a.project(), Path: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows written to %s\n", rows, args[0])
			return nil
		},
	}
}

func (a *app) importCSVCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-csv <path>",
		Short: "Apply game key prices from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := a.tasks.ImportPricesCSV(cmd.Context(), tasks.CSVForm{APIKey: a.key(), ProjectID: a.project(), Path: args[0]})
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows applied\n", applied)
			return err
		},
	}
}
