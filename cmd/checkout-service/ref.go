package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/travel-checkout/internal/checkout"
	"github.com/vasiliy-maslov/travel-checkout/internal/config"
)

func refCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ref",
		Short: "Encode and decode public checkout references",
	}

	encode := &cobra.Command{
		Use:   "encode <id>...",
		Short: "Encode one or more numeric ids into a reference token",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, _ := cmd.Flags().GetString("link")
			return runRefEncode(cmd.OutOrStdout(), a.cfg, args, link)
		},
	}
	encode.Flags().StringP("link", "l", "", "Print a full link instead of the token (checkout or order)")

	decode := &cobra.Command{
		Use:   "decode <token>",
		Short: "Decode a reference token into its numeric ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefDecode(cmd.OutOrStdout(), a.cfg, args[0])
		},
	}

	cmd.AddCommand(encode, decode)
	return cmd
}

func runRefEncode(out io.Writer, cfg *config.Config, args []string, link string) error {
	codec, err := newCodec(cfg.Reference)
	if err != nil {
		return err
	}

	ids := make([]uint64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}

	token, err := codec.Encode(ids)
	if err != nil {
		return err
	}

	switch link {
	case "":
		_, err = fmt.Fprintln(out, token)
	case "checkout":
		_, err = fmt.Fprintln(out, checkout.CheckoutURL(cfg.Site.SiteBaseURL, token))
	case "order":
		_, err = fmt.Fprintln(out, checkout.OrderURL(cfg.Site.SiteBaseURL, token))
	default:
		return fmt.Errorf("unknown link kind %q: want checkout or order", link)
	}
	return err
}

func runRefDecode(out io.Writer, cfg *config.Config, token string) error {
	codec, err := newCodec(cfg.Reference)
	if err != nil {
		return err
	}

	ids := codec.Decode(token)
	if len(ids) == 0 {
		return fmt.Errorf("reference %q does not decode to any id", token)
	}

	for _, id := range ids {
		if _, err := fmt.Fprintln(out, id); err != nil {
			return err
		}
	}
	return nil
}
