package csvsource

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/DRSN-tech/inventory-tracker/pkg/e"
)

// SampleFile — демонстрационный файл импорта.
type SampleFile struct {
	Name string
	Rows [][]string
}

// SampleFiles — наборы для первого знакомства с трекером: электроника и мебель.
var SampleFiles = []SampleFile{
	{
		Name: "electronics.csv",
		Rows: [][]string{
			{"Smartphone Galaxy S21", "Électronique", "899.99", "45"},
			{"MacBook Pro 14", "Électronique", "1599.99", "20"},
			{`Écran Dell 27"`, "Électronique", "349.99", "30"},
		},
	},
	{
		Name: "furniture.csv",
		Rows: [][]string{
			{"Bureau Ergonomique", "Mobilier", "299.99", "25"},
			{"Chaise Gaming", "Mobilier", "199.99", "40"},
			{"Armoire de Bureau", "Mobilier", "449.99", "15"},
		},
	},
}

// WriteSamples создаёт демонстрационные CSV в dir и возвращает их пути.
func WriteSamples(dir string) ([]string, error) {
	const op = "csvsource.WriteSamples"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, e.Wrap(op, e.Mark(e.ErrIO, err))
	}

	paths := make([]string, 0, len(SampleFiles))
	for _, sample := range SampleFiles {
		path := filepath.Join(dir, sample.Name)
		if err := writeSample(path, sample.Rows); err != nil {
			return paths, e.Wrap(op, e.Mark(e.ErrIO, err))
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func writeSample(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(requiredColumns); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
