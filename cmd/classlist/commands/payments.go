package commands

import "github.com/spf13/cobra"

func (a *app) newPaymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Export one row per booking with payment details",
		Long: `Sign in, step the calendar back (one period by default) and write one row
per booking: class, customer, booked-for time, total price, paid and due
amounts, booking number and promotion.

A class whose payment summary cannot be parsed is skipped as a whole.`,
		Args:        cobra.NoArgs,
		RunE:        a.runExport(paymentsExport),
		Annotations: map[string]string{rewindAnnotation: "payments_rewind"},
	}
	addRunFlags(cmd, true)
	return cmd
}
