package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/clock"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/models"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/sites"
)

func newSitesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage sites and their configuration variants",
	}
	cmd.AddCommand(
		newSitesAddCommand(),
		newSitesPushVariantCommand(),
		newSitesClearVariantsCommand(),
		newSitesListCommand(),
	)
	return cmd
}

func newSitesAddCommand() *cobra.Command {
	var variantPath string
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Register a new site",
		Long: `Register a new site, optionally with an initial variant list read from a
YAML file. Only the first active variant of the list stays active.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, args []string) error {
			site := &models.Site{URL: args[0]}
			if variantPath != "" {
				variants, err := loadVariants(variantPath, clock.System())
				if err != nil {
					return err
				}
				site.Variants = variants
			}
			if err := app.Sites.Save(cmd.Context(), site, sites.SaveOptions{ForceInsert: true}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), site.ID.Hex())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&variantPath, "variants", "f", "", "YAML file with the initial variants")
	return cmd
}

func newSitesPushVariantCommand() *cobra.Command {
	var variantPath string
	cmd := &cobra.Command{
		Use:   "push-variant <site id or url>",
		Short: "Append variants to a site's history",
		Long: `Append the variants of a YAML file to the stored history of a site. The
combined history keeps a single active variant: the first active one.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, args []string) error {
			variants, err := loadVariants(variantPath, clock.System())
			if err != nil {
				return err
			}
			if len(variants) == 0 {
				return fmt.Errorf("variant file %s holds no variants", variantPath)
			}
			site := siteRef(args[0])
			if err := app.Sites.Update(cmd.Context(), site, sites.NewUpdate().SetVariants(variants...),
				sites.UpdateOptions{}); err != nil {
				return err
			}
			renderVariants(cmd.OutOrStdout(), site)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&variantPath, "variants", "f", "", "YAML file with the variants to append")
	_ = cmd.MarkFlagRequired("variants")
	return cmd
}

func newSitesClearVariantsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-variants <site id or url>",
		Short: "Remove every variant of a site",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, args []string) error {
			site := siteRef(args[0])
			return app.Sites.Update(cmd.Context(), site, sites.NewUpdate().SetVariants(), sites.UpdateOptions{})
		}),
	}
}

func newSitesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every site",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ []string) error {
			all, err := app.Sites.List(cmd.Context())
			if err != nil {
				return err
			}
			renderSites(cmd.OutOrStdout(), all)
			return nil
		}),
	}
}

// siteRef identifies a site by hex ID or, failing that, by URL.
func siteRef(ref string) *models.Site {
	if id, err := bson.ObjectIDFromHex(ref); err == nil {
		return &models.Site{ID: id}
	}
	return &models.Site{URL: ref}
}

func renderSites(w io.Writer, all []*models.Site) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "URL", "Variants", "Active"})
	for _, site := range all {
		active := "-"
		for i, v := range site.Variants {
			if v.IsActive {
				active = fmt.Sprint(i)
				break
			}
		}
		t.AppendRow(table.Row{site.ID.Hex(), site.URL, len(site.Variants), active})
	}
	t.Render()
}

func renderVariants(w io.Writer, site *models.Site) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(site.ID.Hex())
	t.AppendHeader(table.Row{"#", "Created", "Active"})
	for i, v := range site.Variants {
		t.AppendRow(table.Row{i, v.Created.Format("2006-01-02 15:04:05"), v.IsActive})
	}
	t.Render()
}
