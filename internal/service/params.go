package service

import (
	"github.com/useautumn/autumn-sub008/internal/cache"
	"github.com/useautumn/autumn-sub008/internal/config"
	"github.com/useautumn/autumn-sub008/internal/domain/attachment"
	"github.com/useautumn/autumn-sub008/internal/domain/customer"
	"github.com/useautumn/autumn-sub008/internal/domain/feature"
	"github.com/useautumn/autumn-sub008/internal/domain/grant"
	"github.com/useautumn/autumn-sub008/internal/domain/provider"
	"github.com/useautumn/autumn-sub008/internal/logger"
)

// ServiceParams holds common dependencies for services. The provider client
// and persistence are injected, never constructed ad hoc.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	// Repositories
	FeatureRepo    feature.Repository
	GrantRepo      grant.Repository
	AttachmentRepo attachment.Repository
	SnapshotRepo   customer.SnapshotRepository

	// Provider
	ProviderStateFetcher provider.StateFetcher

	// SnapshotCache is optional; a nil cache means every read goes to the
	// snapshot source
	SnapshotCache cache.SnapshotCache
}
