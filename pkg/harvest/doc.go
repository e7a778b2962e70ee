// Package harvest runs the fan-out/fan-in harvest of the comics API.
//
// A run lists the collections of one collection set, expands every
// collection into item locators one collection at a time, and starts one
// goroutine per item to fetch its detail record. Detail fetches are bounded
// by a gate.Gate; collection calls are not. Every goroutine is joined before
// the report is produced.
//
// Error policy:
//   - list-collections and list-items failures of any class abort the run
//     and no report is produced
//   - get-detail failures, transport or decode, skip that one item; they are
//     logged and listed in Report.Failures
//
// Example usage:
//
//	g, _ := gate.New(gate.Config{MaxInFlight: 64})
//	h, _ := harvest.New(apiClient, g, harvest.Config{CollectionSet: "valiant"})
//	report, err := h.Run(ctx)
//	if err != nil {
//		return err
//	}
//	harvest.WriteReport(os.Stdout, report, harvest.FormatText)
package harvest
