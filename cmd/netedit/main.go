// Netedit - interface graph editor for managed nodes
//
// netedit reads a node's interfaces, VLANs, fabrics and subnets from Redis
// (or a YAML fixture), flattens them into rows and lets an operator build
// aliases, VLAN children, bonds, bridges and physical interfaces as drafts
// before committing them as a single mutation plan.
//
// Examples:
//
//	netedit -N abc123 show                 # Rows of a node
//	netedit -N ctl001 vlans                # VLAN summary of a controller
//	netedit -f lab.yaml shell              # Edit a fixture interactively
//	netedit -N abc123 serve                # HTTP API + /metrics
//	netedit audit --last 20
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netedit/pkg/audit"
	"github.com/newtron-network/netedit/pkg/auth"
	"github.com/newtron-network/netedit/pkg/mutation"
	"github.com/newtron-network/netedit/pkg/session"
	"github.com/newtron-network/netedit/pkg/settings"
	"github.com/newtron-network/netedit/pkg/source"
	"github.com/newtron-network/netedit/pkg/util"
	"github.com/newtron-network/netedit/pkg/version"
)

// App holds the flag values and the state built from them.
type App struct {
	nodeID     string // -N, --node
	redisAddr  string
	redisDB    int
	fixture    string // -f, --fixture
	policyFile string
	sshHost    string
	sshUser    string
	sshKey     string
	dryRun     bool
	verbose    bool
	jsonOutput bool

	settings *settings.Settings
	checker  *auth.Checker
}

var app = &App{redisDB: -1}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "netedit",
	Short:             "Interface graph editor for managed nodes",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Netedit shows a node's interfaces as rows and edits them through drafts.

Nothing reaches the node until a draft is committed; a rejected commit
keeps the draft open with the offending fields flagged.

  netedit -N <node> show | vlans | shell | serve`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		util.SetVerbose(app.verbose)
		if isSettingsOrHelp(cmd) {
			return nil
		}

		var err error
		app.settings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			app.settings = &settings.Settings{}
		}
		app.applyDefaults()

		policy := auth.OpenPolicy()
		if app.policyFile != "" {
			if policy, err = auth.LoadPolicy(app.policyFile); err != nil {
				return err
			}
		}
		app.checker = auth.NewChecker(policy)

		auditLogger, err := audit.NewFileLogger(app.settings.GetAuditLogPath(), audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 10,
		})
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.nodeID, "node", "N", "", "Node system id (default from settings)")
	rootCmd.PersistentFlags().StringVar(&app.redisAddr, "redis", "", "Redis address host:port")
	rootCmd.PersistentFlags().IntVar(&app.redisDB, "redis-db", -1, "Redis database index")
	rootCmd.PersistentFlags().StringVarP(&app.fixture, "fixture", "f", "", "Read the node from a YAML fixture instead of Redis")
	rootCmd.PersistentFlags().StringVar(&app.policyFile, "policy", "", "Permission policy file (YAML)")
	rootCmd.PersistentFlags().StringVar(&app.sshHost, "ssh", "", "Reach Redis through an SSH tunnel to this host")
	rootCmd.PersistentFlags().StringVar(&app.sshUser, "ssh-user", "", "SSH user for --ssh")
	rootCmd.PersistentFlags().StringVar(&app.sshKey, "ssh-key", "", "SSH private key for --ssh")
	rootCmd.PersistentFlags().BoolVar(&app.dryRun, "dry-run", false, "Print commits instead of applying them")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "query", Title: "Inspect:"},
		&cobra.Group{ID: "edit", Title: "Edit:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)
	for _, cmd := range []*cobra.Command{showCmd, vlansCmd, checkCmd} {
		cmd.GroupID = "query"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{shellCmd, serveCmd, seedCmd} {
		cmd.GroupID = "edit"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, auditCmd, whoamiCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("netedit dev build (use 'make build' for version info)")
		} else {
			fmt.Printf("netedit %s\n", version.Info())
		}
	},
}

func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "help", "version":
			return true
		}
	}
	return false
}

// applyDefaults fills unset flags from settings.
func (a *App) applyDefaults() {
	if a.nodeID == "" {
		a.nodeID = a.settings.DefaultNode
	}
	if a.redisAddr == "" {
		a.redisAddr = a.settings.GetRedisAddr()
	}
	if a.redisDB < 0 {
		a.redisDB = a.settings.GetRedisDB()
	}
	if a.policyFile == "" {
		a.policyFile = a.settings.PolicyFile
	}
	if a.sshHost == "" {
		a.sshHost = a.settings.SSHHost
	}
	if a.sshUser == "" {
		a.sshUser = a.settings.SSHUser
	}
}

// Backend is the source a node is read from and the client commits go to.
type Backend struct {
	Source source.Source
	Client mutation.Client
	// Memory is set for fixture backends, whose commits stay in memory.
	Memory *mutation.Memory
	close  []func() error
}

// Close releases connections and tunnels.
func (b *Backend) Close() {
	for i := len(b.close) - 1; i >= 0; i-- {
		if err := b.close[i](); err != nil {
			util.Debugf("close: %v", err)
		}
	}
}

// connect opens the backend the flags select. Commits are audited as the
// current user, and only printed with --dry-run.
func (a *App) connect(ctx context.Context) (*Backend, error) {
	b := &Backend{}
	var client mutation.Client

	if a.fixture != "" {
		snap, err := source.LoadFixture(a.fixture)
		if err != nil {
			return nil, err
		}
		if a.nodeID == "" {
			a.nodeID = snap.Node.SystemID
		}
		b.Memory = mutation.NewMemory(snap)
		b.Source = b.Memory
		client = b.Memory
	} else {
		addr := a.redisAddr
		if a.sshHost != "" {
			tunnel, err := source.NewSSHTunnel(source.TunnelConfig{
				Host:       a.sshHost,
				User:       a.sshUser,
				KeyFile:    a.sshKey,
				KnownHosts: knownHostsPath(),
			})
			if err != nil {
				return nil, err
			}
			b.close = append(b.close, tunnel.Close)
			addr = tunnel.LocalAddr()
		}

		db := source.NewRedisDB(addr, a.redisDB)
		if err := db.Connect(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
		}
		b.close = append(b.close, db.Close)
		if err := a.resolveNode(ctx, db); err != nil {
			b.Close()
			return nil, err
		}
		b.Source = db
		client = mutation.NewRedisClient(db)
	}

	if a.dryRun {
		client = mutation.DryRun{}
	}
	b.Client = audit.WrapClient(client, nil, a.checker.CurrentUser())
	return b, nil
}

// resolveNode picks the only node in Redis when -N was not given.
func (a *App) resolveNode(ctx context.Context, db *source.RedisDB) error {
	if a.nodeID != "" {
		return nil
	}
	nodes, err := db.Nodes(ctx)
	if err != nil {
		return err
	}
	if len(nodes) != 1 {
		return fmt.Errorf("node required: use -N <system id> (%d nodes in redis)", len(nodes))
	}
	a.nodeID = nodes[0]
	return nil
}

// openSession reads the node and starts a session on it. Editing is
// allowed when the policy grants interface.edit on the node.
func (a *App) openSession(ctx context.Context, b *Backend) (*session.Session, error) {
	snap, err := b.Source.Snapshot(ctx, a.nodeID)
	if err != nil {
		return nil, err
	}
	canEdit := a.checker.CanEdit(snap.Node.SystemID)
	if !canEdit {
		util.WithNode(snap.Node.SystemID).Infof("User %s may not edit; read-only session", a.checker.CurrentUser())
	}
	return session.New(snap, canEdit), nil
}

func knownHostsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".ssh", "known_hosts")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
