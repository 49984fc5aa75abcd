package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionInstall bool

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Set up shell completions for settle",
	Long: `Set up shell tab-completions for settle commands, flags, and arguments.
Task IDs, character IDs, template IDs and save slots complete from the
current settlement.

Supported shells: bash, zsh, fish, powershell

Quick install (adds completions to your shell profile):

  settle completion bash --install
  settle completion zsh --install
  settle completion fish --install

Or print the completion script to stdout (for manual setup):

  eval "$(settle completion bash)"
  settle completion fish | source
  settle completion powershell | Out-String | Invoke-Expression`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runCompletion,
}

// completionShell describes how to generate and where to install the script
// for one shell. dir is relative to the home directory.
type completionShell struct {
	generate func(w io.Writer) error
	dir      []string
	file     string
	hint     string
}

func completionShells() map[string]completionShell {
	return map[string]completionShell{
		"bash": {
			generate: func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
			dir:      []string{".local", "share", "bash-completion", "completions"},
			file:     "settle",
			hint:     "Restart your shell or run: source %s",
		},
		"zsh": {
			generate: rootCmd.GenZshCompletion,
			dir:      []string{".local", "share", "zsh", "site-functions"},
			file:     "_settle",
			hint:     "Ensure the directory of %s is in your fpath, then run: autoload -Uz compinit && compinit",
		},
		"fish": {
			generate: func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
			dir:      []string{".config", "fish", "completions"},
			file:     "settle.fish",
			hint:     "Completions from %s load in new fish sessions automatically.",
		},
		"powershell": {
			generate: rootCmd.GenPowerShellCompletionWithDesc,
		},
	}
}

func init() {
	completionCmd.Flags().BoolVar(&completionInstall, "install", false,
		"Install completions into your shell profile")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	shell, ok := completionShells()[args[0]]
	if !ok {
		return fmt.Errorf("unsupported shell %q (supported: bash, zsh, fish, powershell)", args[0])
	}

	if !completionInstall {
		return shell.generate(cmd.OutOrStdout())
	}
	if shell.file == "" {
		return fmt.Errorf("automatic install is not supported for %s; add the output of 'settle completion %s' to your profile", args[0], args[0])
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("detecting home directory: %w", err)
	}
	target, err := installCompletion(home, shell)
	if err != nil {
		return err
	}
	fmt.Printf("%s completions installed to %s\n", args[0], target)
	fmt.Printf(shell.hint+"\n", target)
	return nil
}

// installCompletion writes the completion script under home and returns
// its path.
func installCompletion(home string, shell completionShell) (string, error) {
	dir := filepath.Join(append([]string{home}, shell.dir...)...)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating completion directory: %w", err)
	}
	target := filepath.Join(dir, shell.file)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("creating completion file %s: %w", target, err)
	}
	writeErr := shell.generate(f)
	closeErr := f.Close()
	if writeErr != nil {
		return "", writeErr
	}
	if closeErr != nil {
		return "", fmt.Errorf("closing completion file %s: %w", target, closeErr)
	}
	return target, nil
}
