package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/useautumn/autumn-sub008/internal/cache"
	"github.com/useautumn/autumn-sub008/internal/config"
	"github.com/useautumn/autumn-sub008/internal/domain/attachment"
	"github.com/useautumn/autumn-sub008/internal/domain/feature"
	"github.com/useautumn/autumn-sub008/internal/domain/grant"
	"github.com/useautumn/autumn-sub008/internal/logger"
	"github.com/useautumn/autumn-sub008/internal/validator"
)

// Stores holds all the repository implementations for testing
type Stores struct {
	FeatureRepo    feature.Repository
	GrantRepo      grant.Repository
	AttachmentRepo attachment.Repository
	SnapshotRepo   *InMemorySnapshotStore
	StateFetcher   *StubStateFetcher
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	log, err := logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.logger = log
	s.config = cfg
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.now = time.Now().UTC()
	s.setupStores()
	s.cache = cache.NewInMemoryCache(s.config)
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		FeatureRepo:    NewInMemoryFeatureStore(),
		GrantRepo:      NewInMemoryGrantStore(),
		AttachmentRepo: NewInMemoryAttachmentStore(),
		SnapshotRepo:   NewInMemorySnapshotStore(),
		StateFetcher:   NewStubStateFetcher(),
	}
}

// ClearStores replaces all stores with fresh instances
func (s *BaseServiceTestSuite) ClearStores() {
	s.setupStores()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
