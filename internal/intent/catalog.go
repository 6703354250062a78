package intent

import "github.com/warungkas/warungkas/internal/model"

// Catalog is the static command vocabulary the classifier is built from:
// canonical intents plus the synonym and abbreviation tables. The classifier
// copies what it needs at construction, so a catalog changed afterwards has no
// effect until a new classifier is built.
type Catalog struct {
	Descriptions  map[model.Intent]string
	Synonyms      map[string]model.Intent
	Abbreviations map[string]model.Intent
	Intents       []model.Intent
}

// DefaultCatalog returns the built-in command vocabulary.
func DefaultCatalog() Catalog {
	return Catalog{
		Intents: []model.Intent{
			model.IntentRecordSale,
			model.IntentRecordExpense,
			model.IntentViewBalance,
			model.IntentViewReport,
			model.IntentCancel,
			model.IntentHelp,
		},
		Descriptions: map[model.Intent]string{
			model.IntentRecordSale:    "Catat transaksi penjualan baru",
			model.IntentRecordExpense: "Catat pengeluaran baru",
			model.IntentViewBalance:   "Lihat saldo kas saat ini",
			model.IntentViewReport:    "Lihat laporan transaksi",
			model.IntentCancel:        "Batalkan proses yang sedang berjalan",
			model.IntentHelp:          "Tampilkan daftar perintah",
		},
		Synonyms: map[string]model.Intent{
			"jual":            model.IntentRecordSale,
			"penjualan":       model.IntentRecordSale,
			"catat jualan":    model.IntentRecordSale,
			"pemasukan":       model.IntentRecordSale,
			"keluar":          model.IntentRecordExpense,
			"pengeluaran":     model.IntentRecordExpense,
			"catat belanja":   model.IntentRecordExpense,
			"beli":            model.IntentRecordExpense,
			"saldo":           model.IntentViewBalance,
			"cek saldo":       model.IntentViewBalance,
			"laporan":         model.IntentViewReport,
			"rekap":           model.IntentViewReport,
			"batalkan":        model.IntentCancel,
			"cancel":          model.IntentCancel,
			"help":            model.IntentHelp,
			"menu":            model.IntentHelp,
			"tolong":          model.IntentHelp,
			"daftar perintah": model.IntentHelp,
		},
		Abbreviations: map[string]model.Intent{
			"cp": model.IntentRecordSale,
			"ck": model.IntentRecordExpense,
			"cs": model.IntentViewBalance,
			"lr": model.IntentViewReport,
			"b":  model.IntentCancel,
			"h":  model.IntentHelp,
		},
	}
}
