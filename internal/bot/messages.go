package bot

import (
	"fmt"
	"time"

	"github.com/warungkas/warungkas/internal/model"
)

// Button labels.
const (
	labelYes             = "✅ Ya"
	labelNo              = "❌ Tidak"
	labelConfirm         = "✅ Simpan"
	labelCancel          = "❌ Batal"
	labelRetry           = "🔄 Coba lagi"
	labelResume          = "▶️ Lanjutkan"
	labelDiscard         = "🗑 Hapus"
	labelIncome          = "💰 Pemasukan"
	labelExpense         = "💸 Pengeluaran"
	labelEditCategory    = "✏️ Ubah kategori"
	labelEditAmount      = "✏️ Ubah jumlah"
	labelEditDescription = "✏️ Ubah keterangan"
)

// Static replies.
const (
	msgCancelled      = "Oke, dibatalkan. Ketik 'bantuan' untuk melihat perintah."
	msgDiscarded      = "Data transaksi yang tertunda sudah dihapus."
	msgNothingPending = "Tidak ada transaksi yang tertunda."
	msgSuggest        = "Maksud kamu salah satu dari ini?"
	msgAskType        = "Transaksi apa yang mau dicatat?"
	msgAskCategory    = "Pilih kategori:"
	msgAskAmount      = "Berapa jumlahnya? (contoh: 500000 atau 500.000)"
	msgAskDescription = "Tambahkan keterangan, atau ketik '-' untuk lewati."
	msgBadAmount      = "Jumlah tidak valid. Masukkan angka lebih dari 0, contoh: 500000."
	msgCommitFailed   = "Gagal menyimpan transaksi. Data kamu aman dan bisa dicoba lagi."
	msgGivingUp       = "Masih gagal menyimpan setelah beberapa percobaan. Coba lagi nanti ya."
	msgRecoveryFound  = "Ada transaksi yang belum selesai. Mau dilanjutkan?"

	msgTemporaryTrouble = "Lagi ada gangguan, coba lagi sebentar ya."

	msgHelp = `Perintah yang tersedia:
• catat penjualan (cp) — catat pemasukan
• catat pengeluaran (ck) — catat pengeluaran
• lihat saldo (cs) — saldo kas saat ini
• lihat laporan (lr) — rekap bulan ini
• batal (b) — batalkan proses
• bantuan (h) — tampilkan pesan ini`
)

func msgRateLimited(retryAfter time.Duration) string {
	return fmt.Sprintf("Terlalu banyak pesan. Coba lagi dalam %d detik.", int(retryAfter.Seconds()))
}

func msgConfirmIntent(in model.Intent) string {
	return fmt.Sprintf("Maksud kamu '%s'?", in.CanonicalText())
}

func msgAskNewValue(field string) string {
	switch field {
	case fieldAmount:
		return "Masukkan jumlah baru (atau ketik 'batal edit'):"
	case fieldCategory:
		return "Masukkan kategori baru (atau ketik 'batal edit'):"
	default:
		return "Masukkan keterangan baru (atau ketik 'batal edit'):"
	}
}

func msgConfirmation(s *model.SessionState) string {
	kind := "Pemasukan"
	if s.TransactionType == model.TypeExpense {
		kind = "Pengeluaran"
	}
	description := s.Description
	if description == "" {
		description = "-"
	}
	return fmt.Sprintf("Periksa dulu ya:\n%s\nKategori: %s\nJumlah: %s\nKeterangan: %s",
		kind, s.Category, formatRupiah(s.Amount), description)
}

func msgCommitted(txn *model.Transaction) string {
	kind := "Pemasukan"
	if txn.Type == model.TypeExpense {
		kind = "Pengeluaran"
	}
	return fmt.Sprintf("Tersimpan ✅\n%s %s — %s", kind, formatRupiah(txn.Amount), txn.Category)
}

func msgBalance(balance float64) string {
	return fmt.Sprintf("Saldo kas saat ini: %s", formatRupiah(balance))
}

func msgReport(count int, income, expense float64) string {
	return fmt.Sprintf("Rekap bulan ini:\nTransaksi: %d\nPemasukan: %s\nPengeluaran: %s\nSelisih: %s",
		count, formatRupiah(income), formatRupiah(expense), formatRupiah(income-expense))
}

// formatRupiah renders an amount with dot thousands separators, e.g.
// "Rp500.000".
func formatRupiah(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := fmt.Sprintf("%.0f", amount)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}

	if negative {
		return "-Rp" + string(out)
	}
	return "Rp" + string(out)
}
