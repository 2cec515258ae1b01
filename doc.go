// Package issuance provides an asset-issuance ledger for a fundraising
// campaign.
//
// Contributors pay in a native currency and receive ledger units priced
// by a time-indexed bonus schedule and an external exchange rate.
// Vendors deliver units, optionally locked until a global release time.
// Units can be delegated to approved custody funds and returned with
// their locked/free split intact. Only verified accounts may send.
// Every privileged change needs two distinct administrators.
//
// # Quick Start
//
//	cfg, err := issuance.LoadConfig("campaign.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l, err := issuance.New(cfg, memory.New(),
//	    issuance.WithDisburser(payouts),
//	    issuance.WithPlugin(audithook.New(recorder)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Callers
//
// Every operation reads its caller from the context:
//
//	ctx = issuance.WithCaller(ctx, buyer)
//	quote, err := l.Buy(ctx, payment)
//
// # Atomicity
//
// Operations run one at a time. Each either commits exactly one journal
// entry, persisted through the store before plugins see it, or fails
// with no state change. Start rebuilds state from the latest snapshot
// and the entries after it.
//
// # Dual control
//
// Privileged operations return a Result. The first administrator's
// submission is Recorded; the other administrator's identical submission
// is Executed:
//
//	l.Pause(issuance.WithCaller(ctx, adminA)) // Recorded
//	l.Pause(issuance.WithCaller(ctx, adminB)) // Executed
//
// # Amounts
//
// Ledger units and native payments are unsigned 256-bit integers in
// their smallest unit (18 decimals by default). Rates and prices are
// integer cents. Arithmetic never wraps.
package issuance
