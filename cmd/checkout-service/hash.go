package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/travel-checkout/internal/config"
	"github.com/vasiliy-maslov/travel-checkout/internal/payment"
)

var errHashMismatch = errors.New("hash does not match")

func hashCmd(a *app) *cobra.Command {
	var orderRef, amount, verify string

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute or verify the gateway request hash for an order reference and amount",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(cmd.OutOrStdout(), a.cfg, orderRef, amount, verify)
		},
	}

	cmd.Flags().StringVarP(&orderRef, "order-ref", "r", "", "Order reference sent to the gateway")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Invoice amount, e.g. 150.00")
	cmd.Flags().StringVar(&verify, "verify", "", "Compare against this hash instead of printing")
	_ = cmd.MarkFlagRequired("order-ref")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runHash(out io.Writer, cfg *config.Config, orderRef, rawAmount, verify string) error {
	amount, err := payment.ParseAmount(rawAmount)
	if err != nil {
		return err
	}

	creds := payment.Credentials{
		MerchantID:     cfg.Gateway.MerchantID,
		MerchantSecret: cfg.Gateway.MerchantSecret,
		Currency:       cfg.Gateway.Currency,
	}

	if verify != "" {
		if !payment.VerifyHash(creds, orderRef, amount, verify) {
			return errHashMismatch
		}
		_, err = fmt.Fprintln(out, "OK")
		return err
	}

	hash, err := payment.GenerateHash(creds, orderRef, amount)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "amount: %s\nhash:   %s\n", payment.FormatAmount(amount), hash)
	return err
}
