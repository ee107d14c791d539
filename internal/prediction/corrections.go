package prediction

import "github.com/Veraticus/balance/internal/model"

// ApplyCorrections returns history with each transaction's label replaced by the
// user's most recent correction for its merchant. Transactions at merchants the
// user never corrected keep their recorded label. The input is not modified.
func ApplyCorrections(history []model.LabeledTransaction, corrections []model.UserLabel) []model.LabeledTransaction {
	if len(corrections) == 0 {
		return history
	}

	latest := make(map[string]model.UserLabel, len(corrections))
	for _, c := range corrections {
		if !c.Label.IsDecisive() {
			continue
		}
		key := model.MerchantKey(c.Merchant)
		// Later entries win ties; the log is stored oldest first.
		if prev, ok := latest[key]; ok && c.Timestamp.Before(prev.Timestamp) {
			continue
		}
		latest[key] = c
	}

	out := make([]model.LabeledTransaction, len(history))
	for i, txn := range history {
		out[i] = txn
		if c, ok := latest[model.MerchantKey(txn.Merchant)]; ok {
			out[i].Label = c.Label
		}
	}
	return out
}
