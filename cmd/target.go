package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bedrockmgr/bedrockmgr/core"
	"github.com/bedrockmgr/bedrockmgr/settings"
	"github.com/bedrockmgr/bedrockmgr/transfer"
)

// targetCmd represents the target command
var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage the configured server target",
}

var targetFlags settings.Target
var targetEngineVersion string

// targetSetCmd represents the target set command
var targetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Configure the server target and save it to the config file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		target, err := settings.LoadTarget()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Only overwrite fields that were given on the command line.
		if cmd.Flags().Changed("type") {
			target.Type = targetFlags.Type
		}
		if cmd.Flags().Changed("server-path") {
			target.ServerPath = targetFlags.ServerPath
		}
		if cmd.Flags().Changed("host") {
			target.Host = targetFlags.Host
		}
		if cmd.Flags().Changed("port") {
			target.Port = targetFlags.Port
		}
		if cmd.Flags().Changed("username") {
			target.Username = targetFlags.Username
		}
		if cmd.Flags().Changed("password") {
			target.Password = targetFlags.Password
		}
		if cmd.Flags().Changed("key-file") {
			target.KeyFile = targetFlags.KeyFile
		}
		if cmd.Flags().Changed("remote-path") {
			target.RemotePath = targetFlags.RemotePath
		}
		if cmd.Flags().Changed("timeout") {
			target.TimeoutSeconds = targetFlags.TimeoutSeconds
		}

		switch target.Type {
		case settings.TargetLocal, settings.TargetSFTP:
		default:
			fmt.Printf("Unknown target type %q, use \"local\" or \"sftp\".\n", target.Type)
			os.Exit(1)
		}

		if err := target.Save(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if targetEngineVersion != "" {
			v, err := core.ParseVersionString(targetEngineVersion)
			if err != nil {
				fmt.Println("Invalid engine version:", err)
				os.Exit(1)
			}
			if err := settings.SetLastKnownEngineVersion(v); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}
		fmt.Println("Target saved.")
	},
}

// targetShowCmd represents the target show command
var targetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configured server target",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		target, err := settings.LoadTarget()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Println("Type:", target.Type)
		switch target.Type {
		case settings.TargetSFTP:
			port := target.Port
			if port == 0 {
				port = 22
			}
			fmt.Printf("Host: %s:%d\n", target.Host, port)
			fmt.Println("Username:", target.Username)
			if target.KeyFile != "" {
				fmt.Println("Key file:", target.KeyFile)
			} else if target.Password != "" {
				fmt.Println("Auth: password")
			}
			fmt.Println("Remote path:", target.RemotePath)
		default:
			fmt.Println("Server path:", target.ServerPath)
		}
		if v, ok := settings.LastKnownEngineVersion(); ok {
			fmt.Println("Engine version:", v)
		}
	},
}

// targetTestCmd represents the target test command
var targetTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that the configured server target is reachable",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		target, err := settings.LoadTarget()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		var ok bool
		var message string
		switch target.Type {
		case settings.TargetSFTP:
			ok, message = transfer.Validate(target.SFTPConfig())
		default:
			if target.ServerPath == "" {
				ok, message = false, "Server path is required."
			} else if info, err := os.Stat(target.ServerPath); err != nil || !info.IsDir() {
				ok, message = false, fmt.Sprintf("Server path %s is not a directory.", target.ServerPath)
			} else {
				ok, message = true, "Server path exists."
			}
		}
		fmt.Println(message)
		if !ok {
			os.Exit(1)
		}
	},
}

func init() {
	targetSetCmd.Flags().StringVar((*string)(&targetFlags.Type), "type", "local", "Target type (local or sftp)")
	targetSetCmd.Flags().StringVar(&targetFlags.ServerPath, "server-path", "", "Server root directory for local targets")
	targetSetCmd.Flags().StringVar(&targetFlags.Host, "host", "", "SFTP host")
	targetSetCmd.Flags().IntVar(&targetFlags.Port, "port", 22, "SFTP port")
	targetSetCmd.Flags().StringVar(&targetFlags.Username, "username", "", "SFTP username")
	targetSetCmd.Flags().StringVar(&targetFlags.Password, "password", "", "SFTP password")
	targetSetCmd.Flags().StringVar(&targetFlags.KeyFile, "key-file", "", "SFTP private key file")
	targetSetCmd.Flags().StringVar(&targetFlags.RemotePath, "remote-path", "", "Server root directory on the SFTP host")
	targetSetCmd.Flags().IntVar(&targetFlags.TimeoutSeconds, "timeout", 0, "Connection timeout in seconds")
	targetSetCmd.Flags().StringVar(&targetEngineVersion, "engine-version", "", "Record the server's engine version for compatibility checks")

	targetCmd.AddCommand(targetSetCmd)
	targetCmd.AddCommand(targetShowCmd)
	targetCmd.AddCommand(targetTestCmd)
	rootCmd.AddCommand(targetCmd)
}
