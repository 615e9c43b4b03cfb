package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/fatoora/internal/zatca"
)

func newQRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Inspect ZATCA QR payloads",
	}
	var pngPath string
	decode := &cobra.Command{
		Use:   "decode PAYLOAD",
		Short: "Decode a base64 TLV payload and list its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := strings.TrimSpace(args[0])
			if err := printRecords(cmd.OutOrStdout(), payload); err != nil {
				return err
			}
			if pngPath == "" {
				return nil
			}
			img, err := zatca.PNG(payload, 256)
			if err != nil {
				return err
			}
			return os.WriteFile(pngPath, img, 0o644)
		},
	}
	decode.Flags().StringVar(&pngPath, "png", "", "also write the QR image to this file")
	cmd.AddCommand(decode)
	return cmd
}

func printRecords(w io.Writer, payload string) error {
	records, err := zatca.DecodeQR(payload)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tNAME\tVALUE")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Tag, r.Tag, r.Value)
	}
	return tw.Flush()
}
