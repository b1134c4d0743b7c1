package commands

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// HostInfo is one configured host.
type HostInfo struct {
	Key     string `json:"key"               yaml:"key"`
	Host    string `json:"host"              yaml:"host"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Error   string `json:"error,omitempty"    yaml:"error,omitempty"`
}

// NewHostsCommand creates the hosts command group.
func NewHostsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List configured hosts",
		Long:  "List the host keys methods can target and the base URL each resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHosts(cmd, loadConfig())
		},
	}

	cmd.AddCommand(newHostsResolveCommand())

	return cmd
}

func newHostsResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve KEY [PATH]",
		Short: "Resolve a method URL",
		Long:  "Resolve the URL a method with the given host key and path is sent to",
		Args:  cobra.RangeArgs(1, constants.SetArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 1 {
				path = args[1]
			}

			provider := coreapi.NewStaticHostProvider(loadConfig().Hosts)

			target, err := (&coreapi.Descriptor{HostKey: args[0], Path: path}).Target(provider)
			if err != nil {
				return fmt.Errorf("failed to resolve host: %w", err)
			}

			resolved, err := coreapi.ResolveURL(target)
			if err != nil {
				return fmt.Errorf("failed to resolve URL: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), resolved.String())

			return err
		},
	}
}

func listHosts(cmd *cobra.Command, config *Config) error {
	if len(config.Hosts) == 0 {
		return constants.ErrNoHostsConfigured
	}

	hosts := make([]HostInfo, 0, len(config.Hosts))

	for _, key := range sortedKeys(config.Hosts) {
		info := HostInfo{Key: key, Host: config.Hosts[key]}

		resolved, err := coreapi.ResolveURL(coreapi.HostPath(info.Host, ""))
		if err != nil {
			info.Error = err.Error()
		} else {
			info.BaseURL = resolved.String()
		}

		hosts = append(hosts, info)
	}

	return writeTable(cmd.OutOrStdout(), hosts, []string{"Key", "Host", "Base URL"}, func(table *tablewriter.Table) error {
		for _, info := range hosts {
			baseURL := info.BaseURL
			if info.Error != "" {
				baseURL = info.Error
			}

			err := table.Append([]string{info.Key, info.Host, baseURL})
			if err != nil {
				return fmt.Errorf("failed to append host %s: %w", info.Key, err)
			}
		}

		return nil
	})
}
