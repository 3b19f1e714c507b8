package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newtron-network/netedit/pkg/cli"
	"github.com/newtron-network/netedit/pkg/session"
	"github.com/newtron-network/netedit/pkg/source"
	"github.com/newtron-network/netedit/pkg/topology"
	"github.com/newtron-network/netedit/pkg/util"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Edit a node interactively",
	Long: `Open an editing session on a node. Select rows, open a draft (add,
bond, bridge, physical, edit, delete), adjust it with 'set field=value' and
commit. Type 'help' inside the shell for the command list.

Examples:
  netedit -N abc123 shell
  netedit -f lab.yaml shell`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		b, err := app.connect(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		sess, err := app.openSession(ctx, b)
		if err != nil {
			return err
		}
		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			cli.SetColor(false)
		}
		return NewShell(sess, b, os.Stdin, os.Stdout, interactive).Run(ctx)
	},
}

// Shell is a line-oriented REPL over one Session.
type Shell struct {
	sess        *session.Session
	backend     *Backend
	reader      *bufio.Reader
	out         io.Writer
	interactive bool
	commands    map[string]func(ctx context.Context, args []string) error
}

// NewShell creates a shell reading commands from in. Prompts are only
// written when interactive.
func NewShell(sess *session.Session, b *Backend, in io.Reader, out io.Writer, interactive bool) *Shell {
	s := &Shell{
		sess:        sess,
		backend:     b,
		reader:      bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
	s.commands = map[string]func(context.Context, []string) error{
		"rows":     s.cmdRows,
		"show":     s.cmdRows,
		"vlans":    s.cmdVLANs,
		"state":    s.cmdState,
		"select":   s.keyed(s.sess.Select),
		"deselect": s.keyed(s.sess.Deselect),
		"add":      s.simple(s.sess.Add),
		"delete":   s.cmdDelete,
		"bond":     s.simple(s.sess.CreateBond),
		"bridge":   s.simple(s.sess.CreateBridge),
		"physical": s.simple(s.sess.CreatePhysical),
		"edit":     s.keyed(s.sess.Edit),
		"member":   s.keyed(s.sess.ToggleMember),
		"set":      s.cmdSet,
		"cancel": func(context.Context, []string) error {
			s.sess.Cancel()
			return nil
		},
		"commit":  s.cmdCommit,
		"refresh": s.cmdRefresh,
		"save":    s.cmdSave,
		"help":    s.cmdHelp,
		"?":       s.cmdHelp,
	}
	return s
}

// Run reads commands until EOF or quit.
func (s *Shell) Run(ctx context.Context) error {
	if s.interactive {
		snap := s.sess.Snapshot()
		fmt.Fprintf(s.out, "Editing %s (%s).", cli.Bold(snap.Node.Hostname), snap.Node.SystemID)
		if !s.sess.Engine().CanEdit() {
			fmt.Fprint(s.out, " "+cli.Yellow("Read-only."))
		}
		fmt.Fprintln(s.out, " Type 'help' for available commands.")
	}

	for {
		if s.interactive {
			fmt.Fprint(s.out, s.prompt())
		}
		line, err := s.reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if done := s.exec(ctx, line); done {
				return nil
			}
		}
		if err != nil {
			return nil
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (s *Shell) exec(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	switch args[0] {
	case "quit", "exit", "q":
		return true
	}
	fn, ok := s.commands[args[0]]
	if !ok {
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", args[0])
		return false
	}
	if err := fn(ctx, args[1:]); err != nil {
		fmt.Fprintf(s.out, "%s %v\n", cli.Red("Error:"), err)
	}
	return false
}

func (s *Shell) prompt() string {
	st := s.sess.State()
	mode := string(st.Mode)
	if st.Draft != nil {
		mode = cli.Yellow(mode)
	}
	return fmt.Sprintf("%s[%s]> ", s.sess.Snapshot().Node.Hostname, mode)
}

func (s *Shell) simple(fn func() error) func(context.Context, []string) error {
	return func(ctx context.Context, _ []string) error {
		if err := fn(); err != nil {
			return err
		}
		return s.cmdState(ctx, nil)
	}
}

func (s *Shell) keyed(fn func(topology.RowKey) error) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return errors.New("usage: <command> <row key or name>")
		}
		key, err := s.resolve(args[0])
		if err != nil {
			return err
		}
		if err := fn(key); err != nil {
			return err
		}
		return s.cmdState(ctx, nil)
	}
}

// resolve accepts a row key ("4/3") or a row name ("bond0", "eth0:1").
// Names of members resolve through the raw interfaces so they can be
// toggled while editing a bond.
func (s *Shell) resolve(arg string) (topology.RowKey, error) {
	if _, _, err := topology.ParseKey(arg); err == nil {
		return topology.RowKey(arg), nil
	}
	for _, r := range s.sess.Rows() {
		if r.Name == arg {
			return r.Key(), nil
		}
		for _, m := range r.Members {
			if m.Name == arg {
				return m.Key(), nil
			}
		}
	}
	for _, r := range s.sess.Engine().Graph().Rows() {
		if r.Name == arg {
			return r.Key(), nil
		}
		for _, m := range r.Members {
			if m.Name == arg {
				return m.Key(), nil
			}
		}
	}
	return "", fmt.Errorf("no row named %q: %w", arg, util.ErrNotFound)
}

func (s *Shell) cmdRows(context.Context, []string) error {
	selected := map[topology.RowKey]bool{}
	for _, k := range s.sess.State().Selection {
		selected[k] = true
	}
	printRows(s.out, s.sess.Rows(), selected)
	return nil
}

func (s *Shell) cmdVLANs(context.Context, []string) error {
	table := s.sess.VLANTable()
	if len(table) == 0 {
		fmt.Fprintln(s.out, "No VLAN table (not a controller).")
		return nil
	}
	printVLANTable(s.out, table)
	return nil
}

func (s *Shell) cmdState(context.Context, []string) error {
	st := s.sess.State()
	fmt.Fprintf(s.out, "Mode: %s\n", cli.Bold(string(st.Mode)))
	if len(st.Selection) > 0 {
		keys := make([]string, len(st.Selection))
		for i, k := range st.Selection {
			keys[i] = string(k)
		}
		fmt.Fprintf(s.out, "Selection: %s\n", strings.Join(keys, " "))
	}
	if st.Draft != nil {
		data, err := json.MarshalIndent(st.Draft, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Draft (%s): %s\n", st.Draft.Kind(), data)
		if s.sess.CanCommit() {
			fmt.Fprintf(s.out, "Commit: %s\n", cli.Green("ready"))
		} else {
			fmt.Fprintf(s.out, "Commit: %s\n", cli.Red("blocked"))
		}
	}
	s.printErrors(st.Errors)
	return nil
}

func (s *Shell) printErrors(errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(s.out, "  %s %s\n", cli.Red(cli.DotPad(f, 16)), errs[f])
	}
}

// cmdDelete opens a delete draft for the selection, or for one row.
func (s *Shell) cmdDelete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return s.simple(s.sess.Delete)(ctx, nil)
	}
	return s.keyed(s.sess.QuickDelete)(ctx, args)
}

// cmdSet applies field=value pairs to the draft. An empty value clears the
// field.
func (s *Shell) cmdSet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: set field=value [field=value ...]")
	}
	fields := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("expected field=value, got %q", a)
		}
		fields[k] = v
	}
	if err := s.sess.UpdateDraft(fields); err != nil {
		return err
	}
	return s.cmdState(ctx, nil)
}

func (s *Shell) cmdCommit(ctx context.Context, _ []string) error {
	cs, err := s.sess.Commit(ctx, s.backend.Client)
	if err != nil {
		var me *util.MutationError
		if errors.As(err, &me) || errors.Is(err, util.ErrValidationFailed) {
			fmt.Fprintln(s.out, cli.Red("Commit rejected; the draft is still open."))
			s.printErrors(s.sess.State().Errors)
			return nil
		}
		return err
	}
	fmt.Fprintf(s.out, "%s\n%s", cli.Green("Committed "+cs.Operation+":"), cs.Preview())
	return s.sess.Refresh(ctx, s.backend.Source)
}

func (s *Shell) cmdRefresh(ctx context.Context, _ []string) error {
	return s.sess.Refresh(ctx, s.backend.Source)
}

// cmdSave writes the in-memory node back to a fixture file.
func (s *Shell) cmdSave(ctx context.Context, args []string) error {
	if s.backend.Memory == nil {
		return errors.New("save is only available when editing a fixture")
	}
	path := app.fixture
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return errors.New("usage: save <path>")
	}
	snap, err := s.backend.Memory.Snapshot(ctx, "")
	if err != nil {
		return err
	}
	if err := source.SaveFixture(path, snap); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %s\n", path)
	return nil
}

func (s *Shell) cmdHelp(context.Context, []string) error {
	fmt.Fprint(s.out, `Commands:
  rows                       Show rows (* marks the selection)
  vlans                      Show the VLAN table (controllers)
  state                      Show mode, selection, draft and errors
  select|deselect <row>      Toggle a row in the selection (key or name)
  add                        Alias or VLAN child of the selected row
  bond | bridge              Compose the selected rows
  physical                   New physical interface
  edit <row>                 Edit a row; 'member <row>' toggles members
  delete [row]               Delete the selection or one row
  set field=value ...        Change draft fields
  cancel | commit            Drop or commit the draft
  refresh                    Re-read the node
  save [path]                Write a fixture back to disk
  quit
`)
	return nil
}
