package commands

import "github.com/spf13/cobra"

func (a *app) newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Export one row per class attendee",
		Long: `Sign in, open the calendar and write one row per attendee of every class
in view: Class Name, Date, Instructor, Customer Name.

Classes whose detail popup cannot be read are skipped and reported; the
sink is only replaced once every class has been visited.`,
		Args:        cobra.NoArgs,
		RunE:        a.runExport(calendarExport),
		Annotations: map[string]string{rewindAnnotation: "calendar_rewind"},
	}
	addRunFlags(cmd, true)
	return cmd
}
