package storage

import (
	"context"
	"fmt"

	"github.com/ozanyurtsever/promopipe/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return nil
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateCampaign(rec *model.CampaignRecord) error {
	if rec == nil {
		return fmt.Errorf("campaign cannot be nil")
	}
	if rec.SourceURL == "" {
		return fmt.Errorf("campaign source URL cannot be empty")
	}
	if !rec.ValidityConsistent() {
		return fmt.Errorf("campaign validity window is inverted")
	}
	return nil
}
