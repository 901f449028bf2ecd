package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"signfinder.dev/pkg/signfinder/internal/domain"
	m "signfinder.dev/pkg/signfinder/internal/model"
	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

const rangesHelp = `Ranges are OFFSET+SIZE or OFFSET-END (decimal, 0x hex or 0o octal),
$all for the whole file, p<ID> for the ranges file ID replaced and
i<ID> for the rest of its command's work range. Without ranges the whole
file is used.`

// newShellCommand builds the command tree for one shell line. A fresh tree per
// line keeps flag values from leaking between lines.
func newShellCommand(s *shell) *cobra.Command {
	root := &cobra.Command{
		Use:           "",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newLoadCmd(s),
		newFillCmd(s),
		newDivCmd(s),
		newHalfCmd(s),
		newRestoreCmd(s),
		newVdCmd(s),
		newFilesCmd(s),
		newCmdsCmd(s),
		newDiffCmd(s),
		newExportCmd(s),
		newRunCmd(s),
		newVarsCmd(s),
		newQuitCmd(),
	)

	return root
}

func newLoadCmd(s *shell) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "load <path|id>",
		Short: "Load a file from disk or a stored file by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.workflow.Load(cmd.Context(), domain.LoadArgs{Target: args[0], Force: force})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip input validation")

	return cmd
}

func newFillCmd(s *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "fill [ranges...]",
		Short: "Derive one file with every listed range overwritten",
		Long:  "Derive one file with every listed range overwritten.\n\n" + rangesHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.workflow.Fill(cmd.Context(), domain.FillArgs{Ranges: args})
		},
	}
}

func newDivCmd(s *shell) *cobra.Command {
	var (
		parts    int
		inverted bool
	)

	cmd := &cobra.Command{
		Use:   "div [ranges...]",
		Short: "Split the listed ranges into parts and derive one file per part",
		Long: `Split the listed ranges into parts and derive one file per part with
that part overwritten. With -i everything but the part is overwritten.

` + rangesHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.workflow.Divide(cmd.Context(), domain.DivideArgs{Ranges: args, Parts: parts, Inverted: inverted})
		},
	}
	cmd.Flags().IntVarP(&parts, "parts", "n", viper.GetInt(divPartsKey), "number of parts")
	cmd.Flags().BoolVarP(&inverted, "inverted", "i", false, "overwrite everything except the part")

	return cmd
}

func newHalfCmd(s *shell) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "half [ranges...]",
		Short: "Overwrite halves of the listed ranges recursively",
		Long:  "Overwrite the left and right half of the listed ranges, recursing into the kept half.\n\n" + rangesHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.workflow.Half(cmd.Context(), domain.HalfArgs{Ranges: args, Depth: depth})
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "n", viper.GetInt(halfDepthKey), "recursion depth")

	return cmd
}

func newRestoreCmd(s *shell) *cobra.Command {
	var source uint64

	cmd := &cobra.Command{
		Use:   "restore [ranges...]",
		Short: "Derive one file with the listed ranges copied back from a stored file",
		Long: `Derive one file with the listed ranges copied back from a stored file,
the parent of the working file unless --from names another one.

` + rangesHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.workflow.Restore(cmd.Context(), domain.RestoreArgs{Source: m.FileID(source), Ranges: args})
		},
	}
	cmd.Flags().Uint64Var(&source, "from", 0, "id of the stored file to copy from")

	return cmd
}

func newVdCmd(s *shell) *cobra.Command {
	var (
		region string
		width  int
	)

	cmd := &cobra.Command{
		Use:   "vd [cmd_id]",
		Short: "Draw which part of the work range each output replaced",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vdArgs := domain.VisualizeArgs{Range: region, Width: width}

			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}

				vdArgs.CommandID = m.CommandID(id)
			}

			return s.workflow.Visualize(cmd.Context(), vdArgs)
		},
	}
	cmd.Flags().StringVarP(&region, "range", "r", "", "region to draw, OFFSET+SIZE or OFFSET-END")
	cmd.Flags().IntVar(&width, "width", viper.GetInt(vdWidthKey), "line width")

	return cmd
}

func newFilesCmd(s *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List the files of the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.workflow.ListFiles(cmd.Context())
		},
	}
}

func newCmdsCmd(s *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "cmds",
		Short: "List the commands that derived files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.workflow.ListCommands(cmd.Context())
		},
	}
}

func newDiffCmd(s *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <id> [base_id]",
		Short: "Show a hex diff between a stored file and its parent or base",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint64, len(args))

			for i, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}

				ids[i] = id
			}

			diffArgs := domain.DiffArgs{ID: m.FileID(ids[0])}
			if len(ids) == 2 {
				diffArgs.Base = m.FileID(ids[1])
			}

			return s.workflow.Diff(cmd.Context(), diffArgs)
		},
	}
}

func newExportCmd(s *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Write the file and command tables as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var exportArgs domain.ExportArgs
			if len(args) == 1 {
				exportArgs.Path = args[0]
			}

			return s.workflow.Export(cmd.Context(), exportArgs)
		},
	}
}

func newRunCmd(s *shell) *cobra.Command {
	return &cobra.Command{
		Use:                "run <tool> [args...]",
		Short:              "Run an external tool from the working directory",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: run needs a tool name", ranges.ErrValidation)
			}

			return s.workflow.Run(cmd.Context(), domain.RunArgs{Tool: args[0], Args: args[1:]})
		},
	}
}

func newVarsCmd(s *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "vars",
		Short: "List the session variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.ui.DisplayVars(cmd.Context(), s.Vars())
		},
	}
}

func newQuitCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "quit",
		Aliases: []string{"exit", "q"},
		Short:   "End the session and remove its artifacts",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return errQuit
		},
	}
}

func parseID(text string) (uint64, error) {
	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", ranges.ErrValidation, text)
	}

	return id, nil
}
