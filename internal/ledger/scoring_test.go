package ledger

import (
	"testing"

	"copraledger/internal/model"

	"github.com/shopspring/decimal"
)

func txns(amounts ...string) []model.Transaction {
	out := make([]model.Transaction, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, model.Transaction{
			TotalAmount: decimal.RequireFromString(a),
			Status:      model.TxStatusCompleted,
		})
	}
	return out
}

func TestScoreSupplierNoHistory(t *testing.T) {
	card := ScoreSupplier(nil)

	if card.Score != 0 {
		t.Errorf("Score = %d, want 0", card.Score)
	}
	if !card.EligibleAmount.IsZero() {
		t.Errorf("EligibleAmount = %s, want 0", card.EligibleAmount)
	}
	if card.Eligible() {
		t.Error("supplier with no history must not be eligible")
	}
}

func TestScoreSupplierStarter(t *testing.T) {
	card := ScoreSupplier(txns("500"))

	if card.Score != 20 {
		t.Errorf("Score = %d, want 20", card.Score)
	}
	if !card.TransactionConsistency.Equal(decimal.NewFromInt(100)) {
		t.Errorf("TransactionConsistency = %s, want 100", card.TransactionConsistency)
	}
	if !card.TotalSupplyScore.Equal(decimal.NewFromInt(100)) {
		t.Errorf("TotalSupplyScore = %s, want 100", card.TotalSupplyScore)
	}
	if !card.TransactionCountScore.Equal(decimal.NewFromInt(10)) {
		t.Errorf("TransactionCountScore = %s, want 10", card.TransactionCountScore)
	}
	if !card.EligibleAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("EligibleAmount = %s, want 200 (40%% of 500)", card.EligibleAmount)
	}
	if !card.Eligible() {
		t.Error("starter supplier must be eligible")
	}
}

func TestScoreSupplierMultiple(t *testing.T) {
	tests := []struct {
		name            string
		amounts         []string
		wantScore       int
		wantConsistency string
		wantSupply      string
		wantCountScore  string
		wantEligible    string
	}{
		{
			name:            "identical amounts",
			amounts:         []string{"1000", "1000"},
			wantScore:       73, // (100 + 100 + 20) / 3
			wantConsistency: "100",
			wantSupply:      "100",
			wantCountScore:  "20",
			wantEligible:    "400",
		},
		{
			name:            "uneven amounts",
			amounts:         []string{"500", "1000"},
			wantScore:       48, // (50 + 75 + 20) / 3
			wantConsistency: "50",
			wantSupply:      "75",
			wantCountScore:  "20",
			wantEligible:    "300",
		},
		{
			name:            "count score saturates at 100",
			amounts:         []string{"100", "100", "100", "100", "100", "100", "100", "100", "100", "100", "100", "100"},
			wantScore:       100,
			wantConsistency: "100",
			wantSupply:      "100",
			wantCountScore:  "100",
			wantEligible:    "40",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := ScoreSupplier(txns(tt.amounts...))

			if card.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", card.Score, tt.wantScore)
			}
			if !card.TransactionConsistency.Equal(decimal.RequireFromString(tt.wantConsistency)) {
				t.Errorf("TransactionConsistency = %s, want %s", card.TransactionConsistency, tt.wantConsistency)
			}
			if !card.TotalSupplyScore.Equal(decimal.RequireFromString(tt.wantSupply)) {
				t.Errorf("TotalSupplyScore = %s, want %s", card.TotalSupplyScore, tt.wantSupply)
			}
			if !card.TransactionCountScore.Equal(decimal.RequireFromString(tt.wantCountScore)) {
				t.Errorf("TransactionCountScore = %s, want %s", card.TransactionCountScore, tt.wantCountScore)
			}
			if !card.EligibleAmount.Equal(decimal.RequireFromString(tt.wantEligible)) {
				t.Errorf("EligibleAmount = %s, want %s", card.EligibleAmount, tt.wantEligible)
			}
			if card.TransactionCount != len(tt.amounts) {
				t.Errorf("TransactionCount = %d, want %d", card.TransactionCount, len(tt.amounts))
			}
		})
	}
}

func TestScoreSupplierDeterministic(t *testing.T) {
	history := txns("750", "1250", "900")

	first := ScoreSupplier(history)
	second := ScoreSupplier(history)

	if first.Score != second.Score || !first.EligibleAmount.Equal(second.EligibleAmount) {
		t.Errorf("scoring is not deterministic: %+v vs %+v", first, second)
	}
}
