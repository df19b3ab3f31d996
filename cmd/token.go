package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"aquabot/pkg/secret"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage Slack tokens in the OS keychain",
}

var tokenSetCmd = &cobra.Command{
	Use:       "set api|app",
	Short:     "Store a Slack token read from stdin",
	Long:      "Reads one line from stdin and stores it in the OS keychain. api is the bot token (xoxb-), app is the socket-mode token (xapp-).",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"api", "app"},
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := storeToken(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s in keychain\n", account)
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	rootCmd.AddCommand(tokenCmd)
}

func storeToken(kind string, in io.Reader) (string, error) {
	account, err := secret.Account(kind)
	if err != nil {
		return "", err
	}

	value, err := readLine(in)
	if err != nil {
		return "", err
	}
	if err := secret.Set(account, value); err != nil {
		return "", err
	}

	return account, nil
}

func readLine(in io.Reader) (string, error) {
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no token on stdin")
	}
	return line, nil
}
