package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"calldata-rpc/api"
	"calldata-rpc/calldata"
	"calldata-rpc/client"
	"calldata-rpc/codec"
	"calldata-rpc/loadbalance"
	"calldata-rpc/registry"
)

func newRemoteCmd(a *app) *cobra.Command {
	remote := &cobra.Command{
		Use:   "remote",
		Short: "Run codec operations on a server",
		Long: `Run codec operations on a server found through etcd
(registry.etcd_endpoints) or at the fixed client.addrs of the config.`,
	}

	var file string
	build := &cobra.Command{
		Use:   "build",
		Short: "Build call data on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			js, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			req, err := calldata.ParseRequest(js)
			if err != nil {
				return err
			}
			return a.withClient(cmd.Context(), func(ctx context.Context, c *api.Client) error {
				reply, err := c.Build(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, reply)
			})
		},
	}
	build.Flags().StringVarP(&file, "file", "f", "-", "call description, - for stdin")

	var value, tag string
	callback := &cobra.Command{
		Use:   "callback",
		Short: "Decode a return value on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *api.Client) error {
				display, err := c.Callback(ctx, value, tag)
				if err != nil {
					return err
				}
				printLine(cmd, display)
				return nil
			})
		},
	}
	callback.Flags().StringVar(&value, "value", "", "base64url return envelope")
	callback.Flags().StringVar(&tag, "type", "", "type tag of the value")
	callback.MarkFlagRequired("value")
	callback.MarkFlagRequired("type")

	var data string
	var types []string
	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Parse call data on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *api.Client) error {
				reply, err := c.Inspect(ctx, data, types...)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), reply.Display)
				return nil
			})
		},
	}
	inspect.Flags().StringVar(&data, "data", "", "base64url call data")
	inspect.Flags().StringSliceVar(&types, "types", nil, "type tag of each argument, comma separated")
	inspect.MarkFlagRequired("data")

	tags := &cobra.Command{
		Use:   "tags",
		Short: "List the type tags the server supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *api.Client) error {
				list, err := c.Tags(ctx)
				if err != nil {
					return err
				}
				printLine(cmd, strings.Join(list, "\n"))
				return nil
			})
		},
	}

	remote.AddCommand(build, callback, inspect, tags)
	return remote
}

// withClient runs fn with a codec client built from the config.
func (a *app) withClient(ctx context.Context, fn func(context.Context, *api.Client) error) error {
	cc := a.cfg.Client
	bal, err := loadbalance.New(cc.Balancer)
	if err != nil {
		return err
	}
	ct, err := codec.ParseType(cc.Codec)
	if err != nil {
		return err
	}

	var reg registry.Registry
	etcd, err := a.etcdRegistry()
	if err != nil {
		return err
	}
	if etcd != nil {
		defer etcd.Close()
		reg = etcd
	} else {
		reg = registry.NewStaticRegistry(api.ServiceName, cc.Addrs...)
	}

	rpc := client.NewClient(reg, bal,
		client.WithCodec(ct),
		client.WithPoolSize(cc.PoolSize),
		client.WithTimeout(cc.Timeout),
		client.WithRetry(cc.Retries, cc.RetryDelay),
		client.WithHeartbeat(cc.Heartbeat),
		client.WithLogger(a.logger),
	)
	c := api.NewClient(rpc)
	defer c.Close()

	return fn(ctx, c)
}
