package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/useautumn/autumn-sub008/internal/api/dto"
	"github.com/useautumn/autumn-sub008/internal/cache"
	"github.com/useautumn/autumn-sub008/internal/config"
	"github.com/useautumn/autumn-sub008/internal/domain/customer"
	"github.com/useautumn/autumn-sub008/internal/domain/provider"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	stripeintegration "github.com/useautumn/autumn-sub008/internal/integration/stripe"
	"github.com/useautumn/autumn-sub008/internal/logger"
	"github.com/useautumn/autumn-sub008/internal/service"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// input is the reconciliation run document read from stdin: the customer
// snapshot plus either a locally supplied provider state or, with a Stripe
// key configured, nothing (state is fetched live).
type input struct {
	CustomerID          string             `json:"customer_id"`
	SubscriptionGroupID string             `json:"subscription_group_id"`
	Snapshot            *customer.Snapshot `json:"snapshot"`
	ProviderState       *provider.State    `json:"provider_state,omitempty"`
	// Options carry quantity choices for prepaid features
	Options []dto.FeatureQuantityOption `json:"options,omitempty"`
	// Features additionally reports the aggregate balance for each listed
	// feature
	Features []string `json:"features,omitempty"`
}

type output struct {
	Reconcile *dto.ReconcileResponse          `json:"reconcile"`
	Balances  map[string]*dto.AggregateBalance `json:"balances,omitempty"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "reconcile: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load environment variables from .env file if present
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return err
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}

	var in input
	if err := json.Unmarshal(raw, &in); err != nil {
		return ierr.WithError(err).
			WithHint("Input must be a JSON reconciliation document").
			Mark(ierr.ErrValidation)
	}
	if in.Snapshot == nil {
		return ierr.NewError("snapshot is required").
			WithHint("Provide the customer snapshot in the input document").
			Mark(ierr.ErrValidation)
	}

	ctx := context.Background()
	ctx = types.SetEnvironmentID(ctx, os.Getenv("AUTUMN_ENVIRONMENT_ID"))
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST))

	snapshotRepo := &staticSnapshotRepo{snapshot: in.Snapshot}

	var fetcher provider.StateFetcher
	if cfg.Stripe.SecretKey != "" {
		fetcher = stripeintegration.NewStateFetcher(stripeintegration.NewClient(cfg.Stripe.SecretKey, log))
	} else {
		fetcher = &staticStateFetcher{state: in.ProviderState}
	}

	params := service.ServiceParams{
		Logger:               log,
		Config:               cfg,
		SnapshotRepo:         snapshotRepo,
		ProviderStateFetcher: fetcher,
		SnapshotCache: cache.NewSnapshotCache(
			cache.NewInMemoryCache(cfg), snapshotRepo, cfg.Cache.TTL, cfg.Cache.Enabled),
	}

	reconcileSvc := service.NewReconcileService(params)
	balanceSvc := service.NewBalanceService(params)

	resp, err := reconcileSvc.Reconcile(ctx, &dto.ReconcileRequest{
		CustomerID:          in.CustomerID,
		SubscriptionGroupID: in.SubscriptionGroupID,
		Options:             in.Options,
	})
	if err != nil {
		return err
	}

	out := output{Reconcile: resp}
	if len(in.Features) > 0 {
		out.Balances = make(map[string]*dto.AggregateBalance, len(in.Features))
		for _, featureID := range in.Features {
			balance, err := balanceSvc.GetBalance(ctx, in.CustomerID, featureID, nil, false)
			if err != nil {
				return err
			}
			out.Balances[featureID] = balance
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// staticSnapshotRepo serves the snapshot parsed from the input document
type staticSnapshotRepo struct {
	snapshot *customer.Snapshot
}

func (r *staticSnapshotRepo) GetSnapshot(ctx context.Context, customerID string) (*customer.Snapshot, error) {
	if r.snapshot.CustomerID != customerID {
		return nil, ierr.NewError("customer not found").
			WithReportableDetails(map[string]any{"customer_id": customerID}).
			Mark(ierr.ErrNotFound)
	}
	return r.snapshot, nil
}

// staticStateFetcher serves the provider state parsed from the input
// document; a missing state means no provider objects exist yet
type staticStateFetcher struct {
	state *provider.State
}

func (f *staticStateFetcher) FetchState(ctx context.Context, subscriptionGroupID string) (*provider.State, error) {
	if f.state == nil {
		return &provider.State{}, nil
	}
	return f.state, nil
}
