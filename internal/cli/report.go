package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modfetch/pkg/core/acquire"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/errors"
	pkgio "github.com/matzehuels/modfetch/pkg/io"
)

// reportCommand creates the "report" command, which re-prints a report
// saved with --report.
func (c *CLI) reportCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "report <file.json>",
		Short:   "Show the summary and miss report of a saved run",
		Example: `  modfetch deps https://www.curseforge.com/minecraft/mc-mods/create --report run.json
  modfetch report run.json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFileArg("json"),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := pkgio.ImportJSON(args[0])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "read report")
			}
			writeReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
}

// writeReport prints a saved run the way printResult prints a live one.
func writeReport(w io.Writer, rep *pkgio.Report) {
	line := func(key, value string) {
		fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
	}
	line("Run", rep.RunID)
	line("Workflow", rep.Workflow)
	line("Seed", rep.Seed)
	line("Target", project.Target{Version: rep.Target.Version, Loader: project.Loader(rep.Target.Loader)}.String())
	if sel := rep.Selection; sel != nil {
		line("Selected", fmt.Sprintf("%s %s", sel.Version,
			StyleDim.Render(fmt.Sprintf("(supported by %d of %d projects)", sel.Support, sel.Projects))))
	}

	var fetched, skipped int
	for _, o := range rep.Outcomes {
		switch o.Status {
		case acquire.Fetched:
			fetched++
		case acquire.Skipped:
			skipped++
		}
	}
	fmt.Fprintf(w, "%s %s downloaded, %s already present %s\n",
		styleIconSuccess.Render(iconSuccess),
		StyleNumber.Render(fmt.Sprint(fetched)),
		StyleNumber.Render(fmt.Sprint(skipped)),
		StyleDim.Render("("+(time.Duration(rep.Duration)*time.Millisecond).String()+")"))

	if report := renderMissReport(rep.Missed); report != "" {
		fmt.Fprintln(w, report)
	}
}
