package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"calldata-rpc/api"
)

func newBuildCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build call data from a JSON call description",
		Long: `Build call data from a JSON call description:

  {"method_name": "transfer",
   "arguments": [{"type": "address", "value": "..."}, {"type": "u64", "value": "100"}]}

Prints the call data and the argument list as unpadded base64url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			js, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			reply, err := a.codec().BuildJSON(js)
			if err != nil {
				return err
			}
			return printJSON(cmd, reply)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "call description, - for stdin")
	return cmd
}

func newCallbackCmd(a *app) *cobra.Command {
	var value, tag string
	cmd := &cobra.Command{
		Use:   "callback",
		Short: "Decode a base64url return value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply api.CallbackReply
			if err := a.codec().Callback(&api.CallbackArgs{Value: value, Type: tag}, &reply); err != nil {
				return err
			}
			printLine(cmd, reply.Display)
			return nil
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "base64url return envelope")
	cmd.Flags().StringVar(&tag, "type", "", "type tag of the value, e.g. Vec<u64>")
	cmd.MarkFlagRequired("value")
	cmd.MarkFlagRequired("type")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var data string
	var types []string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the method and arguments of base64url call data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply api.InspectReply
			if err := a.codec().Inspect(&api.InspectArgs{Data: data, Types: types}, &reply); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), reply.Display)
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "base64url call data")
	cmd.Flags().StringSliceVar(&types, "types", nil, "type tag of each argument, comma separated")
	cmd.MarkFlagRequired("data")
	return cmd
}

func newTagsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the supported type tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply api.TagsReply
			if err := a.codec().Tags(&api.TagsArgs{}, &reply); err != nil {
				return err
			}
			printLine(cmd, strings.Join(reply.Tags, "\n"))
			return nil
		},
	}
}
