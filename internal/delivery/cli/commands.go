package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/DRSN-tech/inventory-tracker/internal/infrastructure/csvsource"
	"github.com/DRSN-tech/inventory-tracker/internal/infrastructure/report"
	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/jitter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const (
	importAttempts   = 3
	importBackoff    = 200 * time.Millisecond
	importMaxBackoff = 5 * time.Second
)

func (c *CLI) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE [FILE...]",
		Short: "Importe un ou plusieurs fichiers CSV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := c.inventory()
			if err != nil {
				return err
			}

			failed := 0
			for _, path := range args {
				res, err := importWithRetry(cmd.Context(), inv, path)
				switch {
				case err == nil:
					fmt.Fprintf(cmd.OutOrStdout(), "Importé avec succès: %s (%d produits)\n", path, res.Imported)
					c.logger.Infof("Fichier importé avec succès: %s", path)
				case errors.Is(err, e.ErrFileNotFound):
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "Erreur: Le fichier %s n'existe pas\n", path)
					c.logger.Warnf("Tentative d'import d'un fichier inexistant: %s", path)
				default:
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "Erreur lors de l'import de %s: %v\n", path, err)
					if res != nil && res.Imported > 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "  %d lignes importées avant l'erreur\n", res.Imported)
					}
					c.logger.Errorf(err, "Erreur d'import: %s", path)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d/%d fichiers non importés", failed, len(args))
			}
			return nil
		},
	}
}

// importWithRetry повторяет импорт при занятом хранилище, но только пока ни одна
// строка не зафиксирована: повтор после частичного импорта задвоил бы продукты.
func importWithRetry(ctx context.Context, inv usecase.InventoryUC, path string) (*usecase.ImportRes, error) {
	var (
		res *usecase.ImportRes
		err error
	)

	for attempt := 0; attempt < importAttempts; attempt++ {
		res, err = inv.Import(ctx, path)
		if err == nil || !errors.Is(err, e.ErrStorageBusy) || (res != nil && res.Imported > 0) {
			return res, err
		}

		if attempt == importAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return res, err
		case <-time.After(jitter.NewBackoff(importBackoff, importMaxBackoff).Next(attempt)):
		}
	}

	return res, err
}

func (c *CLI) newSearchCmd() *cobra.Command {
	var name, category, minPrice, maxPrice string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Recherche des produits selon différents critères",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			minP, err := parseOptionalPrice(minPrice)
			if err != nil {
				return e.Wrap("--min", err)
			}
			maxP, err := parseOptionalPrice(maxPrice)
			if err != nil {
				return e.Wrap("--max", err)
			}

			inv, err := c.inventory()
			if err != nil {
				return err
			}

			products, err := inv.Find(cmd.Context(), usecase.NewFindProductsReq(name, category, minP, maxP))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(products) == 0 {
				fmt.Fprintln(out, "Aucun résultat trouvé")
				return nil
			}

			fmt.Fprintln(out, "\nRésultats de la recherche:")
			fmt.Fprintln(out, strings.Repeat("=", 80))
			fmt.Fprintf(out, "%-30s %-15s %-10s %-10s\n", "Nom", "Catégorie", "Prix", "Quantité")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, p := range products {
				fmt.Fprintf(out, "%-30s %-15s %8s€ %8d\n", p.Name, categoryLabel(p.Category), p.Price.StringFixed(2), p.Quantity)
			}

			c.logger.Infof("Recherche effectuée avec succès: %d résultats", len(products))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "nom du produit (sous-chaîne, sans casse)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "catégorie exacte")
	cmd.Flags().StringVar(&minPrice, "min", "", "prix minimum")
	cmd.Flags().StringVar(&maxPrice, "max", "", "prix maximum")

	return cmd
}

func (c *CLI) newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report [OUTPUT]",
		Short: "Génère le rapport d'inventaire (sur la sortie standard sans OUTPUT)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := c.inventory()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return inv.WriteReport(cmd.Context(), cmd.OutOrStdout())
			}

			if err := inv.Report(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Rapport généré: %s\n", args[0])
			return nil
		},
	}
}

func (c *CLI) newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history PRODUCT_ID",
		Short: "Affiche l'historique des mouvements d'un produit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("identifiant invalide %q", args[0])
			}

			inv, err := c.inventory()
			if err != nil {
				return err
			}

			events, err := inv.History(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-6s %-8s %10s %10s  %s\n", "Id", "Type", "Quantité", "Prix", "Date")
			for _, ev := range events {
				fmt.Fprintf(out, "%-6d %-8s %10d %9s€  %s\n",
					ev.ID, ev.Type, ev.QuantityChange, ev.Price.StringFixed(2), ev.Timestamp.Format(time.RFC3339))
			}

			return nil
		},
	}
}

func (c *CLI) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare les stocks avec l'historique des mouvements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := c.inventory()
			if err != nil {
				return err
			}

			drifts, err := inv.Verify(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(drifts) == 0 {
				fmt.Fprintln(out, "Aucune divergence détectée")
				return nil
			}

			for _, d := range drifts {
				fmt.Fprintf(out, "#%d %s: stock %d à %s€, historique %d à %s€\n",
					d.Product.ID, d.Product.Name,
					d.Product.Quantity, d.Product.Price.StringFixed(2),
					d.Expected.Quantity, d.Expected.Price.StringFixed(2))
			}

			return fmt.Errorf("%d produits divergent de leur historique", len(drifts))
		},
	}
}

func (c *CLI) newSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample [DIR]",
		Short: "Crée des fichiers CSV d'exemple",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			paths, err := csvsource.WriteSamples(dir)
			if err != nil {
				return err
			}

			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Fichiers CSV créés avec succès!")
			return nil
		},
	}
}

func (c *CLI) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Démarre l'API HTTP et la publication des événements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return rt.Serve(ctx)
		},
	}
}

func parseOptionalPrice(s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("%w: prix %q", e.ErrInvalidFilter, s)
	}

	return &d, nil
}

func categoryLabel(category string) string {
	if category == "" {
		return report.NoCategory
	}

	return category
}
