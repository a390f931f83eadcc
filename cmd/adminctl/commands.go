package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"clubadmin/internal/application/tables"
	"clubadmin/internal/config"
	"clubadmin/internal/inline"
	"clubadmin/internal/remote"
	"clubadmin/internal/tui/gridpicker"
)

// Command flags
var (
	configPath string
	serverURL  string
	tableName  string
	labelsPath string
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#198754")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc3545")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(inline.NeutralColor))
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <config dir>/adminctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&tableName, "table", "", "Table: members or events (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&labelsPath, "labels", "", "Labels YAML file, as given to the server")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

// showCmd prints one row
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one row",
	Example: `  adminctl show 12
  adminctl show 3 --table events`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

// setCmd commits one value
var setCmd = &cobra.Command{
	Use:   "set <id> <field> <value>",
	Short: "Set one field",
	Long: `Open the cell, submit the value and report how the save settled.

The server normalises the value (trimmed text, lower-case email, ISO dates)
and the normalised value is printed on success.`,
	Example: `  adminctl set 12 email " Jeanne@Example.org "
  adminctl set 12 birth_date 09/03/1984
  adminctl set 4 status cancelled --table events`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

// pickCmd edits a choice field interactively
var pickCmd = &cobra.Command{
	Use:   "pick <id> <field>",
	Short: "Pick a choice field from a button grid",
	Args:  cobra.ExactArgs(2),
	RunE:  runPick,
}

var historyLimit int

// historyCmd lists recorded changes of one row
var historyCmd = &cobra.Command{
	Use:     "history <id>",
	Short:   "List the recorded changes of one row",
	Example: `  adminctl history 12 --limit 5`,
	Args:    cobra.ExactArgs(1),
	RunE:    runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of changes to list")
}

// configCmd stores the server and table defaults
var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Save --server, --table and --labels as defaults",
	Example: `  adminctl config --server https://admin.club.example --table members`,
	Args:    cobra.NoArgs,
	RunE:    runConfig,
}

// settings resolves the effective configuration: flags over the config file.
func settings() (*config.Client, string, error) {
	path := configPath
	if path == "" {
		p, err := config.ClientPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}
	c, err := config.LoadClient(path)
	if err != nil {
		return nil, "", err
	}
	if serverURL != "" {
		c.Server = serverURL
	}
	if tableName != "" {
		c.Table = tableName
	}
	if labelsPath != "" {
		c.Labels = labelsPath
	}
	return c, path, nil
}

// newClient builds the remote client from settings and CLUBADMIN_API_KEY.
func newClient() (*remote.Client, *config.Client, inline.Labels, error) {
	c, _, err := settings()
	if err != nil {
		return nil, nil, inline.Labels{}, err
	}
	key := os.Getenv(config.EnvAPIKey)
	if key == "" {
		return nil, nil, inline.Labels{}, fmt.Errorf("%s is not set", config.EnvAPIKey)
	}
	labels, err := config.LoadLabels(c.Labels, tables.DefaultBadges())
	if err != nil {
		return nil, nil, inline.Labels{}, err
	}
	client, err := remote.New(c.Server, key, tables.NewRegistry(labels), nil)
	if err != nil {
		return nil, nil, inline.Labels{}, err
	}
	return client, c, labels, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer, got %q", arg)
	}
	return id, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	client, c, _, err := newClient()
	if err != nil {
		return err
	}

	lines, err := client.Show(cmd.Context(), c.Table, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s #%d\n\n", c.Table, id)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, l := range lines {
		text := l.Text
		if !l.Applicable {
			text = mutedStyle.Render(text)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", l.Label, mutedStyle.Render(l.Field), text)
	}
	return w.Flush()
}

func runSet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	client, c, _, err := newClient()
	if err != nil {
		return err
	}

	s, err := client.Open(cmd.Context(), c.Table, id, args[1])
	if err != nil {
		return describeOpenError(err, args[1])
	}
	return report(s, s.Controller.Commit(cmd.Context(), args[2]))
}

func runPick(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	client, c, labels, err := newClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := client.Open(ctx, c.Table, id, args[1])
	if err != nil {
		return describeOpenError(err, args[1])
	}
	grid, ok := s.Grid()
	if !ok {
		s.Controller.Cancel()
		return fmt.Errorf("%s is not a choice field; use 'adminctl set'", args[1])
	}

	title := fmt.Sprintf("%s of %s #%d", s.Definition.Label, c.Table, id)
	value, chosen, err := gridpicker.Run(title, s.Definition.Name, grid, labels)
	if err != nil {
		s.Controller.Cancel()
		return fmt.Errorf("picker failed: %w", err)
	}
	if !chosen {
		s.Controller.Cancel()
		fmt.Println(mutedStyle.Render("Cancelled, nothing saved."))
		return nil
	}
	return report(s, s.Controller.Choose(ctx, value))
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	client, c, _, err := newClient()
	if err != nil {
		return err
	}

	changes, err := client.History(cmd.Context(), c.Table, id, historyLimit)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Println(mutedStyle.Render("No recorded changes."))
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, ch := range changes {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%q → %q\n",
			mutedStyle.Render(ch.Timestamp.Local().Format("2006-01-02 15:04")), ch.Actor, ch.Field, ch.Previous, ch.Value)
	}
	return w.Flush()
}

func runConfig(cmd *cobra.Command, args []string) error {
	c, path, err := settings()
	if err != nil {
		return err
	}
	if _, err := remote.New(c.Server, "", nil, nil); err != nil {
		return err
	}
	if err := c.Save(path); err != nil {
		return err
	}
	fmt.Printf("Saved %s (server %s, table %s)\n", path, c.Server, c.Table)
	return nil
}

// report prints how a commit settled. Failed saves return an error so the
// exit status reflects them.
func report(s *remote.Session, result inline.Result) error {
	msg, _, _ := s.Message()
	cell := s.Controller.Cell()
	switch result {
	case inline.ResultSaved:
		fmt.Printf("%s %s = %q\n", okStyle.Render(msg), cell.ID.Field, cell.Value)
	case inline.ResultNoop:
		fmt.Println(mutedStyle.Render("Unchanged, nothing saved."))
	case inline.ResultFailed:
		fmt.Println(errStyle.Render(msg))
		return errors.New("save rejected")
	default:
		return fmt.Errorf("save did not complete (%s)", result)
	}
	return nil
}

func describeOpenError(err error, field string) error {
	switch {
	case errors.Is(err, inline.ErrNotEditable):
		return fmt.Errorf("%s does not apply to this row", field)
	case errors.Is(err, inline.ErrUnknownField):
		return fmt.Errorf("unknown field %q", field)
	case errors.Is(err, remote.ErrUnauthorized):
		return fmt.Errorf("%w (check %s)", err, config.EnvAPIKey)
	}
	return err
}
