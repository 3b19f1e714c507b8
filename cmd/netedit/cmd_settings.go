package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netedit/pkg/cli"
	"github.com/newtron-network/netedit/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.netedit/settings.json.

Settings provide defaults for the global flags:
  default_node    node to edit when -N is not given
  redis_addr      Redis address (--redis)
  redis_db        Redis database (--redis-db)
  policy_file     permission policy (--policy)
  audit_log_path  where commits are audited
  ssh_host        tunnel Redis through this host (--ssh)
  ssh_user        SSH user (--ssh-user)
  listen_addr     'netedit serve' address

Examples:
  netedit settings list
  netedit settings set default_node abc123
  netedit settings get redis_addr
  netedit settings clear`,
}

var settingsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"show"},
	Short:   "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cli.NewTable("SETTING", "VALUE")
		for _, key := range settings.Keys {
			value, _ := s.Get(key)
			if value == "" {
				value = cli.Dim("(not set)")
			}
			t.Row(key, value)
		}
		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}
		if err := s.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", args[0], args[1])
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <setting>",
	Short: "Get a setting value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		value, err := s.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear [setting]",
	Short: "Clear one setting, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}
		if len(args) == 1 {
			if err := s.Unset(args[0]); err != nil {
				return err
			}
		} else {
			s.Clear()
		}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("Settings cleared.")
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd, settingsSetCmd, settingsGetCmd, settingsClearCmd)
}
