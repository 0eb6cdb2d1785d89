package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inkpress/storefront/internal/catalog"
	"github.com/inkpress/storefront/internal/models"
)

func newCatalogCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and convert product catalogs",
	}

	cmd.AddCommand(newCatalogListCmd(opts))
	cmd.AddCommand(newCatalogImportCmd())

	return cmd
}

func newCatalogListCmd(opts *globalOptions) *cobra.Command {
	var (
		file     string
		category string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog products",
		Example: `  # List the built-in catalog
  storefront catalog list

  # List apparel from a Parquet export
  storefront catalog list --file products.parquet --category apparel`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = opts.cfg.CatalogFile
			}
			c := catalog.Default()
			if file != "" {
				var err error
				if c, err = catalog.LoadCatalog(file); err != nil {
					return err
				}
			}

			products := c.List()
			if category != "" {
				products = c.ByCategory(category)
			}
			return printProducts(cmd.OutOrStdout(), products)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Catalog file (default: built-in catalog)")
	cmd.Flags().StringVar(&category, "category", "", "Only list products in this category")

	return cmd
}

func printProducts(w io.Writer, products []models.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tRATING")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t$%d.%02d\t%.1f\n",
			p.ID, p.Name, p.Category, p.PriceCents/100, p.PriceCents%100, p.Rating)
	}
	return tw.Flush()
}

func newCatalogImportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "import <source>",
		Short: "Convert a catalog file to YAML or Parquet",
		Long: `Reads a catalog from YAML, JSON, JSON Lines or Parquet, validates it and
writes it out as YAML (default) or Parquet, chosen by the output extension.`,
		Example: `  # Convert a JSON export to the YAML catalog format
  storefront catalog import products.json -o catalog.yaml

  # Produce a Parquet file for analytics
  storefront catalog import catalog.yaml -o products.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.LoadCatalog(args[0])
			if err != nil {
				return err
			}
			products := c.List()

			if output == "" || output == "-" {
				return catalog.WriteYAML(cmd.OutOrStdout(), products)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()

			switch ext := strings.ToLower(filepath.Ext(output)); ext {
			case ".parquet":
				err = catalog.WriteParquet(f, products)
			case ".yaml", ".yml":
				err = catalog.WriteYAML(f, products)
			default:
				return fmt.Errorf("unsupported output format: %s (supported: .yaml, .yml, .parquet)", ext)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d products to: %s\n", len(products), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: YAML on stdout)")

	return cmd
}
