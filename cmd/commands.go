package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"aquabot/pkg/command"
	"aquabot/pkg/commands"
	"aquabot/pkg/directory"
	"aquabot/pkg/logger"
)

var tableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Padding(0, 1).
	Foreground(lipgloss.Color("230")).
	Background(lipgloss.Color("88"))

var tableNameStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("214"))

var tablePatternStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("180"))

var tableHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the bot's commands in match order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		reg, err := commandTable()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderCommands(reg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}

// commandTable builds the same binding table the bot runs with.
func commandTable() (*command.Registry, error) {
	reg := command.NewRegistry(logger.Discard())
	if err := commands.Register(reg, discardSender{}, logger.Discard()); err != nil {
		return nil, fmt.Errorf("build command table: %w", err)
	}
	return reg, nil
}

type discardSender struct{}

func (discardSender) Send(context.Context, string, directory.ChannelRef) bool { return false }

// renderCommands prints one block per binding in priority order.
func renderCommands(reg *command.Registry) string {
	var b strings.Builder
	b.WriteString(tableHeaderStyle.Render(strings.TrimSpace(command.UsageHeader)))
	b.WriteString("\n\n")

	for i, binding := range reg.Bindings() {
		name, description, _ := strings.Cut(binding.Usage, "\t")
		if name == "" {
			name = "(undocumented)"
		}

		fmt.Fprintf(&b, "%d. %s", i+1, tableNameStyle.Render(name))
		if description != "" {
			b.WriteString("  " + description)
		}
		b.WriteString("\n")
		b.WriteString("   " + tablePatternStyle.Render(binding.Pattern.String()) + "\n")
	}

	b.WriteString("\n" + tableHintStyle.Render("First matching pattern wins."))
	return b.String()
}
