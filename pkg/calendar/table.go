package calendar

// Table is the sink-facing form of a run: a header row and ordered data rows
// of the same width.
type Table struct {
	Header []string
	Rows   [][]string
}

// CalendarHeader is the column order of the calendar export.
var CalendarHeader = []string{"Class Name", "Date", "Instructor", "Customer Name"}

// PaymentHeader is the column order of the payment export.
var PaymentHeader = []string{
	"Class Name", "Date", "Instructor", "Customer Name",
	"Class Time", "Booked For",
	"Total Price", "Total Paid", "Total Due",
	"Booking Number", "Promotion",
}

// Table converts the records into rows in CalendarHeader order.
func (r Result) Table() Table {
	rows := make([][]string, 0, len(r.Records))
	for _, rec := range r.Records {
		rows = append(rows, []string{rec.ClassName, rec.DateTime, rec.Instructor, rec.CustomerName})
	}
	return Table{Header: append([]string(nil), CalendarHeader...), Rows: rows}
}

// Table converts the records into rows in PaymentHeader order.
func (r PaymentResult) Table() Table {
	rows := make([][]string, 0, len(r.Records))
	for _, rec := range r.Records {
		rows = append(rows, []string{
			rec.ClassName, rec.DateTime, rec.Instructor, rec.CustomerName,
			rec.ClassTime, rec.BookedFor,
			rec.TotalPrice, rec.TotalPaid, rec.TotalDue,
			rec.BookingNumber, rec.Promotion,
		})
	}
	return Table{Header: append([]string(nil), PaymentHeader...), Rows: rows}
}

// Maps returns each row keyed by its column name.
func (t Table) Maps() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := make(map[string]string, len(t.Header))
		for i, col := range t.Header {
			if i < len(row) {
				m[col] = row[i]
			} else {
				m[col] = ""
			}
		}
		out = append(out, m)
	}
	return out
}
