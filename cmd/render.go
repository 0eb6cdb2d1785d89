package cmd

import (
	"fmt"
	"image/color"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkpress/storefront/internal/assets"
	"github.com/inkpress/storefront/internal/export"
	"github.com/inkpress/storefront/internal/printarea"
	"github.com/inkpress/storefront/internal/render"
	"github.com/inkpress/storefront/internal/scene"
)

func newRenderCmd(opts *globalOptions) *cobra.Command {
	var (
		productID string
		areaID    string
		output    string
		preview   string
		assetDir  string
	)

	cmd := &cobra.Command{
		Use:   "render <scene.json>",
		Short: "Render a saved scene to a production PNG",
		Long: `Renders a serialized scene offline at the production resolution of a
print area, exactly as an export from the customizer would.

Image elements are resolved from the asset directory (the server's upload
directory by default).`,
		Example: `  # Render the front of the t-shirt
  storefront render design.json --product 2 --area front -o front.png

  # Also write the on-screen preview as a JPEG
  storefront render design.json --product 2 --area front -o front.png --preview front.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			logger := opts.logger

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read scene: %w", err)
			}

			areas := printarea.Default()
			if cfg.PrintAreasFile != "" {
				if areas, err = printarea.Load(cfg.PrintAreasFile); err != nil {
					return err
				}
			}
			area, err := areas.Lookup(productID, areaID)
			if err != nil {
				return err
			}

			if assetDir == "" {
				assetDir = cfg.UploadDir()
			}
			store, err := assets.NewStore(assetDir, logger)
			if err != nil {
				return err
			}
			fonts, err := render.NewFontRegistry(logger)
			if err != nil {
				return fmt.Errorf("failed to load fonts: %w", err)
			}
			renderer := render.NewRenderer(fonts, store, logger)
			pipeline := export.NewPipeline(renderer, logger)
			pipeline.PreviewQuality = cfg.PreviewQuality

			var surface *render.Surface
			if preview != "" {
				if surface, err = displaySurface(renderer, data, area); err != nil {
					return err
				}
			}

			result, err := pipeline.Export(cmd.Context(), data, area, nil)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, result.Production, 0o644); err != nil {
				return fmt.Errorf("failed to write production image: %w", err)
			}
			fmt.Printf("Production image saved to: %s (%dx%d)\n", output, result.Width, result.Height)

			if surface != nil {
				f, err := os.Create(preview)
				if err != nil {
					return fmt.Errorf("failed to create preview: %w", err)
				}
				defer f.Close()
				if err := surface.EncodeJPEG(f, pipeline.PreviewQuality, color.White); err != nil {
					return err
				}
				fmt.Printf("Preview saved to: %s (%dx%d)\n", preview, surface.Width(), surface.Height())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&productID, "product", "*", "Product id the print area belongs to")
	cmd.Flags().StringVar(&areaID, "area", "", "Print area id (default: the product's first area)")
	cmd.Flags().StringVarP(&output, "output", "o", "design.png", "Production PNG path")
	cmd.Flags().StringVar(&preview, "preview", "", "Optional preview JPEG path")
	cmd.Flags().StringVar(&assetDir, "assets", "", "Directory holding uploaded image assets")

	return cmd
}

// displaySurface renders the scene at on-screen size, as the customizer
// shows it.
func displaySurface(r *render.Renderer, data []byte, area printarea.PrintArea) (*render.Surface, error) {
	s, err := scene.Deserialize(data)
	if err != nil {
		return nil, err
	}
	surface := render.NewSurface(area.DisplayWidth(), area.DisplayHeight())
	if err := r.RenderScene(surface, s.Elements(), render.Identity()); err != nil {
		return nil, err
	}
	return surface, nil
}
