package cli

import (
	"bufio"
	"fmt"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
)

const (
	shellPrompt = "(inventaire) "
	shellIntro  = `
    ===========================================
    Système de Gestion d'Inventaire v1.0
    ===========================================
    Tapez 'help' ou '?' pour la liste des commandes
    Tapez 'quit' pour quitter
`
)

// newShellCmd — интерактивная оболочка: каждая строка разбирается как команда CLI.
// Приложение открывается один раз и живёт до выхода из оболочки.
func (c *CLI) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Ouvre le shell interactif d'inventaire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprint(out, shellIntro)
			c.logger.Infof("Système de gestion d'inventaire initialisé")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, shellPrompt)
				if !scanner.Scan() {
					fmt.Fprintln(out, "\nAu revoir!")
					return scanner.Err()
				}

				// Кавычки как в shell: search -n "Ordinateur Test".
				args, err := shellwords.Parse(scanner.Text())
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Erreur: %v\n", err)
					continue
				}
				if len(args) == 0 {
					continue
				}

				switch args[0] {
				case "quit", "exit", "EOF":
					fmt.Fprintln(out, "Au revoir!")
					return nil
				case "?":
					args[0] = "help"
				case "shell":
					fmt.Fprintln(out, "Déjà dans le shell")
					continue
				}

				if err := cmd.Context().Err(); err != nil {
					return err
				}

				// Ошибка уже напечатана; оболочка продолжает работу.
				_ = c.execute(cmd.Context(), args)
			}
		},
	}
}
