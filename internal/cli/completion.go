package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modfetch/pkg/core/project"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for modfetch.

Besides commands and flags, the scripts complete the values of --loader,
--match-mode and --prefer, and offer .toml files for manifest and .json
files for report.

Bash:
  $ source <(modfetch completion bash)

Zsh:
  $ modfetch completion zsh > "${fpath[1]}/_modfetch"

Fish:
  $ modfetch completion fish > ~/.config/fish/completions/modfetch.fish

PowerShell:
  PS> modfetch completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}

	return cmd
}

// completeRunFlags registers value completions for the run flags on cmd.
func completeRunFlags(cmd *cobra.Command) {
	loaders := make([]string, 0, len(project.Loaders))
	for _, l := range project.Loaders {
		loaders = append(loaders, string(l))
	}
	fixed := map[string][]string{
		flagLoader:    loaders,
		flagMatchMode: {string(project.MatchPrefix), string(project.MatchSegment)},
		flagPrefer:    {string(project.CurseForge), string(project.Modrinth)},
		flagVersion:   {project.BestVersion},
	}
	for name, values := range fixed {
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
	}
	_ = cmd.MarkFlagDirname(flagDest)
	_ = cmd.MarkFlagFilename(flagReport, "json")
}

// completeFileArg completes the single positional argument with files of
// the given extensions.
func completeFileArg(exts ...string) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return exts, cobra.ShellCompDirectiveFilterFileExt
	}
}
