// Package cmd provides the root command and the interactive shell of signfinder.
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"signfinder.dev/pkg/signfinder/internal/adapter"
	"signfinder.dev/pkg/signfinder/internal/controller"
	"signfinder.dev/pkg/signfinder/internal/domain"
)

const rootLongDescription = `SignFinder narrows down which bytes of a file a detector reacts to.

Load a sample, derive copies with regions overwritten (fill, div, half), let
the detector scan the output directory and keep working on the copies it no
longer flags. Every derived file is recorded with the ranges it replaced, so
p<ID> and i<ID> can be used wherever a range list is expected.

Commands are read from standard input, or from a script with --script.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

// newWorkflow builds the workflow a session drives.
var newWorkflow = domain.NewWorkflow

func init() {
	configureRootFlags(rootCmd)
}

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "signfinder [file]",
		Short:        "Locate the bytes a detector signature matches",
		Long:         rootLongDescription,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runSession,
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(workdirFlagName, "w", defaultWorkdir, "directory holding backups, outputs and the log")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(workdirFlagName), workdirFlagName)

	cmd.Flags().Bool(keepOutputFlagName, defaultKeepOutput, "keep derived files in output/ when the session ends")
	bindFlagToConfig(cmd.Flags().Lookup(keepOutputFlagName), keepOutputConfigKey)

	cmd.Flags().StringP(scriptFlagName, "s", "", "read commands from a file instead of standard input")
	cmd.Flags().BoolP(forceFlagName, "f", false, "skip input validation when preloading [file]")
	cmd.Flags().BoolP(verboseFlagName, "v", false, "log at debug level")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fsAdapter := adapter.NewLocalArtifactFSAdapter()

	workdir, err := fsAdapter.AbsPath(ctx, viper.GetString(workdirFlagName))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", workdirFlagName, err)
	}

	if err := fsAdapter.MkdirAll(ctx, workdir); err != nil {
		return fmt.Errorf("create %s: %w", workdir, err)
	}

	verbose, _ := cmd.Flags().GetBool(verboseFlagName)
	configureLogger(string(workdir), verbose)

	fill, err := fillPolicyFromConfig(viper.GetString(fillPatternKey))
	if err != nil {
		return err
	}

	input, interactive, err := sessionInput(ctx, cmd, fsAdapter)
	if err != nil {
		return err
	}

	ui := controller.NewUI(cmd, interactive && cmd.OutOrStdout() == os.Stdout)
	sh := newShell(ui, cmd.OutOrStdout(), interactive)

	runner := adapter.NewLocalToolRunnerAdapter(time.Duration(viper.GetInt64(runTimeoutKey)) * time.Second)
	sh.workflow = newWorkflow(fsAdapter, runner, ui, sh, domain.Options{
		Root:         workdir,
		KeepOutput:   viper.GetBool(keepOutputConfigKey),
		MaxInputSize: viper.GetInt64(maxInputSizeKey),
		FillPolicy:   fill,
	})

	globalLogger.Info("Session started", "session", sh.workflow.SessionID(), "workdir", workdir)

	defer func() {
		// Teardown must run even when the session was interrupted or a
		// command panicked.
		_ = sh.workflow.Close(context.WithoutCancel(ctx))
	}()

	if len(args) == 1 {
		line := "load " + shellQuote(args[0])
		if force, _ := cmd.Flags().GetBool(forceFlagName); force {
			line += " -f"
		}

		sh.Exec(ctx, line)
	}

	return sh.Run(ctx, input)
}

// sessionInput returns the reader commands come from and whether it is an
// operator terminal.
func sessionInput(ctx context.Context, cmd *cobra.Command, fsAdapter adapter.ArtifactFSAdapter) (io.Reader, bool, error) {
	script, _ := cmd.Flags().GetString(scriptFlagName)
	if script == "" {
		in := cmd.InOrStdin()
		file, ok := in.(*os.File)

		return in, ok && controller.IsTTY(file), nil
	}

	path, err := fsAdapter.AbsPath(ctx, script)
	if err != nil {
		return nil, false, fmt.Errorf("invalid %s: %w", scriptFlagName, err)
	}

	data, err := fsAdapter.ReadFile(ctx, path)
	if err != nil {
		return nil, false, fmt.Errorf("read script: %w", err)
	}

	return bytes.NewReader(data), false, nil
}

func shellQuote(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
