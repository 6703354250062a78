// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"
)

// Intent is the canonical identifier for a recognized user action.
type Intent string

// Known intents. The identifier doubles as the canonical command phrase once
// separators are replaced with spaces (e.g. "catat_penjualan" -> "catat penjualan").
const (
	IntentRecordSale    Intent = "catat_penjualan"
	IntentRecordExpense Intent = "catat_pengeluaran"
	IntentViewBalance   Intent = "lihat_saldo"
	IntentViewReport    Intent = "lihat_laporan"
	IntentCancel        Intent = "batal"
	IntentHelp          Intent = "bantuan"
)

var separatorReplacer = strings.NewReplacer("_", " ", "-", " ")

// CanonicalText returns the user-facing command phrase for the intent.
func (i Intent) CanonicalText() string {
	return separatorReplacer.Replace(string(i))
}

// ParsedCommand is the transient result of classifying one piece of raw text.
type ParsedCommand struct {
	Timestamp    time.Time
	RawText      string
	MatchedAlias string
	Intent       Intent
	Confidence   float64
}

// Suggestion is one ranked alternative offered when no confident match exists.
type Suggestion struct {
	Intent      Intent
	Text        string
	Description string
	Confidence  float64
}
