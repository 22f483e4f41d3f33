package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/useautumn/autumn-sub008/internal/api/dto"
	"github.com/useautumn/autumn-sub008/internal/domain/grant"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/validator"
)

// ProrationService previews the price impact of reconfiguring a prepaid
// grant mid-cycle. Amounts are pack counts times per-pack price; period
// weighting is the provider's job.
type ProrationService interface {
	Preview(ctx context.Context, req *dto.ProrationPreviewRequest) (*dto.ProrationPreviewResponse, error)
}

type prorationService struct {
	ServiceParams
}

func NewProrationService(params ServiceParams) ProrationService {
	return &prorationService{ServiceParams: params}
}

func (s *prorationService) Preview(ctx context.Context, req *dto.ProrationPreviewRequest) (*dto.ProrationPreviewResponse, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}

	g, err := s.GrantRepo.Get(ctx, req.GrantID)
	if err != nil {
		return nil, err
	}
	if !g.Kind.IsPrepaid() {
		return nil, ierr.NewError("grant is not prepaid").
			WithHint("Proration previews only apply to prepaid pack grants").
			WithReportableDetails(map[string]any{
				"grant_id": g.ID,
				"kind":     g.Kind,
			}).
			Mark(ierr.ErrValidation)
	}

	newUnits := lo.FromPtrOr(req.NewBillingUnits, g.BillingUnits)
	newPrice := lo.FromPtrOr(req.NewPricePerUnit, g.PricePerUnit)
	newQuantity := lo.FromPtrOr(req.NewQuantity, g.PurchasedQuantity())

	if req.NewQuantity != nil && req.NewQuantity.IsNegative() {
		return nil, ierr.NewError("quantity cannot be negative").
			WithHint("Prepaid quantities must be zero or positive").
			WithReportableDetails(map[string]any{
				"grant_id": g.ID,
				"quantity": req.NewQuantity,
			}).
			Mark(ierr.ErrValidation)
	}
	if g.MaxPurchase != nil && newQuantity.GreaterThan(*g.MaxPurchase) {
		return nil, ierr.NewError("requested quantity exceeds purchase limit").
			WithHint("Lower the requested quantity or raise the feature's purchase limit").
			WithReportableDetails(map[string]any{
				"grant_id":     g.ID,
				"quantity":     newQuantity,
				"max_purchase": g.MaxPurchase,
			}).
			Mark(ierr.ErrValidation)
	}

	newPacks, err := grant.PacksFor(newQuantity, newUnits)
	if err != nil {
		return nil, err
	}

	oldAmount := g.PackCount.Mul(g.PricePerUnit)
	newAmount := newPacks.Mul(newPrice)

	resp := &dto.ProrationPreviewResponse{
		OldPacks:   g.PackCount,
		NewPacks:   newPacks,
		OldAmount:  oldAmount,
		NewAmount:  newAmount,
		PriceDelta: newAmount.Sub(oldAmount),
	}

	s.Logger.Debugw("computed proration preview",
		"grant_id", g.ID,
		"old_packs", resp.OldPacks,
		"new_packs", resp.NewPacks,
		"price_delta", resp.PriceDelta)

	return resp, nil
}
