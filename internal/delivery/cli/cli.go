// Package cli — командная строка и интерактивная оболочка трекера инвентаря.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
	"github.com/spf13/cobra"
)

// Runtime — собранное приложение, с которым работают команды.
type Runtime interface {
	Inventory() usecase.InventoryUC
	Serve(ctx context.Context) error
	Close() error
}

// Opener открывает приложение при первом обращении команды к хранилищу.
type Opener func() (Runtime, error)

type CLI struct {
	open   Opener
	rt     Runtime
	logger logger.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func New(open Opener, logger logger.Logger, in io.Reader, out, errOut io.Writer) *CLI {
	return &CLI{
		open:   open,
		logger: logger,
		in:     in,
		out:    out,
		errOut: errOut,
	}
}

// Execute выполняет одну команду и закрывает приложение, если оно было открыто.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	err := c.execute(ctx, args)

	if c.rt != nil {
		if closeErr := c.rt.Close(); closeErr != nil {
			c.logger.Errorf(closeErr, "failed to close application")
		}
		c.rt = nil
	}

	return err
}

func (c *CLI) execute(ctx context.Context, args []string) error {
	root := c.newRootCmd()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(c.errOut, "Erreur: %v\n", err)
		return err
	}

	return nil
}

// newRootCmd строит свежее дерево команд: флаги cobra не сбрасываются между запусками.
func (c *CLI) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inventory",
		Short:         "Système de gestion d'inventaire",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.AddCommand(
		c.newImportCmd(),
		c.newSearchCmd(),
		c.newReportCmd(),
		c.newHistoryCmd(),
		c.newVerifyCmd(),
		c.newSampleCmd(),
		c.newServeCmd(),
		c.newShellCmd(),
	)

	return root
}

func (c *CLI) inventory() (usecase.InventoryUC, error) {
	rt, err := c.runtime()
	if err != nil {
		return nil, err
	}

	return rt.Inventory(), nil
}

func (c *CLI) runtime() (Runtime, error) {
	if c.rt != nil {
		return c.rt, nil
	}

	rt, err := c.open()
	if err != nil {
		return nil, err
	}
	c.rt = rt

	return rt, nil
}
