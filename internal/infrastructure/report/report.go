// Package report выводит отчёт по складу в текстовом виде.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/shopspring/decimal"
)

// NoCategory — подпись для продуктов без категории.
const NoCategory = "Sans catégorie"

type TextRenderer struct{}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render пишет отчёт в w. Раздел по категориям опускается, если категорий нет.
func (r *TextRenderer) Render(w io.Writer, report *domain.InventoryReport) error {
	bw := bufio.NewWriter(w)

	fmt.Fprint(bw, "=== Rapport d'inventaire ===\n\n")
	fmt.Fprintf(bw, "Produits distincts: %d\n", report.Totals.Products)
	fmt.Fprintf(bw, "Quantité totale: %d\n", report.Totals.Quantity)
	fmt.Fprintf(bw, "Valeur totale: %s\n", money(report.Totals.Value))

	if len(report.Categories) > 0 {
		fmt.Fprint(bw, "\n=== Par catégorie ===\n")
		for _, c := range report.Categories {
			fmt.Fprintf(bw, "\n%s:\n", categoryLabel(c.Category))
			fmt.Fprintf(bw, "  Nombre de produits: %d\n", c.Products)
			fmt.Fprintf(bw, "  Quantité totale: %d\n", c.Quantity)
			fmt.Fprintf(bw, "  Valeur: %s\n", money(c.Value))
		}
	}

	return bw.Flush()
}

// reportFileMode — права готового отчёта; CreateTemp создаёт файл с 0600.
const reportFileMode os.FileMode = 0o644

// WriteFile записывает отчёт во временный файл рядом с path и переименовывает его,
// поэтому при ошибке частичный отчёт не остаётся.
func (r *TextRenderer) WriteFile(path string, report *domain.InventoryReport) (err error) {
	const op = "TextRenderer.WriteFile"

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return e.Wrap(op, e.Mark(e.ErrIO, err))
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = r.Render(tmp, report); err != nil {
		return e.Wrap(op, e.Mark(e.ErrIO, err))
	}
	if err = tmp.Chmod(reportFileMode); err != nil {
		return e.Wrap(op, e.Mark(e.ErrIO, err))
	}
	if err = tmp.Close(); err != nil {
		return e.Wrap(op, e.Mark(e.ErrIO, err))
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return e.Wrap(op, e.Mark(e.ErrIO, err))
	}

	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + "€"
}

func categoryLabel(category string) string {
	if category == "" {
		return NoCategory
	}

	return category
}
