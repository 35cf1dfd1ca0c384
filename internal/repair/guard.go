package repair

import (
	"fmt"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/model"
)

// ValidatePatch is the pre-write gate in front of every auto-apply. A
// rejected patch never reaches the store; the caller downgrades the record
// to needs-review with the rejection reason.
func ValidatePatch(p model.Patch) error {
	if p.ValidFrom != nil && p.ValidUntil != nil && !p.ValidFrom.Before(*p.ValidUntil) {
		return fmt.Errorf("%w: validity start %s is not before end %s",
			common.ErrValidationRejected,
			p.ValidFrom.Format("2006-01-02"),
			p.ValidUntil.Format("2006-01-02"))
	}

	if p.Installments != nil && *p.Installments <= 0 {
		return fmt.Errorf("%w: installment count %d must be positive",
			common.ErrValidationRejected, *p.Installments)
	}

	// Empty means "unknown", never "none eligible".
	if p.EligibleCards != nil && len(p.EligibleCards) == 0 {
		return fmt.Errorf("%w: eligible cards patch may not be an empty list",
			common.ErrValidationRejected)
	}

	return nil
}
