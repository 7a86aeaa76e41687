package ledger

import (
	"fmt"

	"stockledger-service/internal/models"
)

// Classify maps a quantity and warning threshold to the discrete stock
// status shown in the UI. It is the single authoritative derivation; callers
// must never write StockItem.Status themselves.
//
// Band boundaries use the inclusive-lower-bound rule: a quantity sitting
// exactly on a band edge belongs to the higher band (quantity == 0.5*threshold
// classifies as LOW, not CRITICAL). OK requires quantity strictly above the
// threshold. A zero threshold means any positive quantity is OK.
func Classify(quantity, threshold float64) (models.StockStatus, error) {
	if quantity < 0 {
		return "", fmt.Errorf("%w: quantity %.3f is negative", models.ErrInvalidArgument, quantity)
	}
	if threshold < 0 {
		return "", fmt.Errorf("%w: threshold %.3f is negative", models.ErrInvalidArgument, threshold)
	}

	switch {
	case quantity == 0:
		return models.StockStatusOutOfStock, nil
	case quantity < 0.5*threshold:
		return models.StockStatusCritical, nil
	case quantity < 0.75*threshold:
		return models.StockStatusLow, nil
	case quantity <= threshold:
		return models.StockStatusWarning, nil
	default:
		return models.StockStatusOK, nil
	}
}
