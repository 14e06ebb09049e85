package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/kudzu-context/internal/compact"
	"github.com/felixgeelhaar/kudzu-context/internal/config"
	"github.com/felixgeelhaar/kudzu-context/internal/docfile"
	"github.com/felixgeelhaar/kudzu-context/internal/sources"
	"github.com/spf13/cobra"
)

var (
	configPath    string
	envFile       string
	stateDir      string
	verbose       bool
	jsonLogs      bool
	hostFlag      string
	urlFlag       string
	transportFlag string
	budgetFlag    int
)

// pending remembers where build writes, so a crash can still leave a
// degraded document behind.
var pending struct {
	path    string
	probe   string
	written bool
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "kudzu-context",
	Short: "Compact Kudzu memory traces into a session context document",
	Long: `kudzu-context fetches recent traces from the Kudzu hologram store,
sorts them into sections, removes duplicates and renders a line-budgeted
markdown document meant to be read at the start of a session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Write the context document to path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pending.path = args[0]
		r, cleanup, err := setup(cmd)
		defer cleanup()
		if err != nil {
			return err
		}
		if err := r.Build(cmd.Context(), args[0]); err != nil {
			return err
		}
		pending.written = true
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the context document to the terminal without writing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, cleanup, err := setup(cmd)
		defer cleanup()
		if err != nil {
			return err
		}
		res, err := r.Compile(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), stylize(res.Document))
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show the holograms a build would read",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, cleanup, err := setup(cmd)
		defer cleanup()
		if err != nil {
			return err
		}
		ids, err := sources.NewResolver(r.cache(), r.Client, r.Observer).Resolve(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, role := range sources.Roles {
			id := ids[role]
			if id == "" {
				id = "(not found)"
			}
			fmt.Fprintf(out, "%-12s %s\n", role, id)
		}
		for _, id := range sources.ProjectIDs(r.Config.ProjectsPath(), r.Config.ProjectGlobs) {
			fmt.Fprintf(out, "%-12s %s\n", "PROJECT", id)
		}
		return nil
	},
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	noteStyle    = lipgloss.NewStyle().Faint(true)
)

func stylize(doc compact.Document) string {
	var b strings.Builder
	for _, line := range doc.Lines {
		switch {
		case strings.HasPrefix(line, "# "):
			line = titleStyle.Render(line)
		case strings.HasPrefix(line, "## "):
			line = headingStyle.Render(line)
		case strings.HasPrefix(line, "_") && strings.HasSuffix(line, "_"):
			line = noteStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// Execute runs the CLI. Any failure after the output path is known still
// leaves a degraded document there; the exit status is then 1.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fail(fmt.Errorf("panic: %v", r))
		}
	}()

	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fail(err)
	}
}

func fail(err error) {
	if pending.path != "" && !pending.written {
		probe := pending.probe
		if probe == "" {
			probe = Probe(config.Default())
		}
		doc := compact.Fallback(err.Error(), probe, time.Now())
		if werr := docfile.Write(pending.path, []byte(doc.String())); werr == nil {
			fmt.Println(fallbackLine)
		}
	}
	fmt.Fprintln(os.Stderr, "kudzu-context:", err)
	os.Exit(1)
}

func init() {
	RootCmd.AddCommand(buildCmd)
	RootCmd.AddCommand(previewCmd)
	RootCmd.AddCommand(sourcesCmd)

	pf := RootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (.yaml or .json)")
	pf.StringVar(&envFile, "env-file", "", "Env file with KUDZU_* settings (default ./.env)")
	pf.StringVar(&stateDir, "state-dir", "", "State directory (default ~/.kudzu)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&jsonLogs, "json", false, "Log as JSON")
	pf.StringVar(&hostFlag, "host", "", "SSH host running the Kudzu API")
	pf.StringVar(&urlFlag, "url", "", "Kudzu API URL")
	pf.StringVar(&transportFlag, "transport", "", "Transport (ssh, http)")
	pf.IntVar(&budgetFlag, "budget", 0, "Line budget for the document")
}
