package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/gerai/api/internal/handlers"
	"github.com/gerai/api/internal/payments"
	"github.com/gerai/api/internal/platform/auth"
	"github.com/gerai/api/internal/platform/config"
	pfirestore "github.com/gerai/api/internal/platform/firestore"
	"github.com/gerai/api/internal/platform/idempotency"
	"github.com/gerai/api/internal/platform/jobs"
	"github.com/gerai/api/internal/platform/observability"
	"github.com/gerai/api/internal/platform/secrets"
	"github.com/gerai/api/internal/platform/storage"
	"github.com/gerai/api/internal/repositories"
	repofirestore "github.com/gerai/api/internal/repositories/firestore"
	"github.com/gerai/api/internal/services"
)

// Services bundles the service-layer contracts exposed to handlers.
type Services struct {
	Catalog  services.CatalogService
	Cart     services.CartService
	Checkout services.CheckoutService
	Orders   services.OrderService
	Payments services.PaymentService
	System   services.SystemService
}

// Container wires configuration, storage, gateways, services, and the HTTP
// router for runtime use.
type Container struct {
	Config   config.Config
	Logger   *zap.Logger
	Services Services
	Router   http.Handler

	provider     *pfirestore.Provider
	registry     *repofirestore.Registry
	pubsubClient *pubsub.Client
	pubsubTopic  *pubsub.Topic
}

// NewContainer constructs the full runtime dependency graph from configuration.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if err := c.build(ctx); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(closeCtx)
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context) error {
	if err := c.resolveSecrets(ctx); err != nil {
		return err
	}

	c.provider = pfirestore.NewProvider(c.Config.Firestore)

	firestoreClient, err := c.provider.Client(ctx)
	if err != nil {
		return fmt.Errorf("initialise firestore client: %w", err)
	}

	registry, err := repofirestore.NewRegistry(c.provider)
	if err != nil {
		return fmt.Errorf("build repositories: %w", err)
	}
	c.registry = registry

	verifier, err := auth.NewFirebaseVerifier(ctx, c.Config.Firebase)
	if err != nil {
		return fmt.Errorf("build firebase verifier: %w", err)
	}
	authn := auth.NewAuthenticator(verifier)

	gateway, err := c.buildPaymentGateway()
	if err != nil {
		return err
	}

	var publisher services.OrderEventPublisher
	if c.Config.Events.Enabled {
		pubsubPublisher, err := c.buildEventPublisher(ctx)
		if err != nil {
			return err
		}
		publisher = pubsubPublisher
	}

	healthRepo, err := c.buildHealthRepository(firestoreClient)
	if err != nil {
		return err
	}

	media, err := c.buildImageStore()
	if err != nil {
		return err
	}

	svc, err := c.buildServices(registry, gateway, publisher, healthRepo, media)
	if err != nil {
		return err
	}
	c.Services = svc

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	checkoutIdempotency := idempotency.Middleware(idempotencyStore,
		idempotency.WithHeader(c.Config.Idempotency.Header),
		idempotency.WithTTL(c.Config.Idempotency.TTL),
		idempotency.WithMethods(http.MethodPost),
		idempotency.WithLogger(zap.NewStdLog(c.Logger)),
	)

	c.Router = handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(c.Logger),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(svc.System)),
		handlers.WithProductRoutes(handlers.NewCatalogHandlers(svc.Catalog).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(authn, svc.Cart).Routes),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(authn, svc.Checkout, svc.Orders, svc.Payments, checkoutIdempotency).Routes),
		handlers.WithAdminRoutes(handlers.NewAdminHandlers(authn, svc.Catalog, svc.Orders).Routes),
		handlers.WithWebhookRoutes(handlers.NewPaymentWebhookHandlers(svc.Payments).Routes),
	)

	return nil
}

// resolveSecrets expands secret:// references in gateway credentials before
// any adapter sees them.
func (c *Container) resolveSecrets(ctx context.Context) error {
	refs := []*string{
		&c.Config.Payments.SnapServerKey,
		&c.Config.Payments.SnapClientKey,
		&c.Config.Payments.StripeAPIKey,
		&c.Config.Payments.StripeWebhookSecret,
	}

	needsResolver := false
	for _, ref := range refs {
		if secrets.IsReference(*ref) {
			needsResolver = true
			break
		}
	}
	if !needsResolver {
		return nil
	}

	resolver, err := secrets.NewResolver(ctx, c.Config.Firebase.ProjectID, secrets.WithLogger(c.Logger))
	if err != nil {
		return fmt.Errorf("build secret resolver: %w", err)
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			c.Logger.Warn("failed to close secret resolver", zap.Error(err))
		}
	}()

	for _, ref := range refs {
		resolved, err := resolver.Resolve(ctx, *ref)
		if err != nil {
			return fmt.Errorf("resolve gateway credential: %w", err)
		}
		*ref = resolved
	}
	return nil
}

func (c *Container) buildPaymentGateway() (*payments.Manager, error) {
	logHook := payments.Logger(observability.ServiceLogHook())
	providers := make(map[string]payments.Provider)

	if c.Config.Payments.SnapServerKey != "" {
		snap, err := payments.NewSnapProvider(payments.SnapProviderConfig{
			ServerKey: c.Config.Payments.SnapServerKey,
			BaseURL:   c.Config.Payments.SnapBaseURL,
			FinishURL: c.Config.Payments.FinishURL,
			Logger:    logHook,
		})
		if err != nil {
			return nil, fmt.Errorf("build snap provider: %w", err)
		}
		providers["snap"] = snap
	}

	if c.Config.Payments.StripeAPIKey != "" {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey:     c.Config.Payments.StripeAPIKey,
			SuccessURL: c.Config.Payments.FinishURL,
			Logger:     logHook,
		})
		if err != nil {
			return nil, fmt.Errorf("build stripe provider: %w", err)
		}
		providers["stripe"] = stripeProvider
	}

	if len(providers) == 0 {
		return nil, errors.New("no payment gateway credentials configured")
	}

	manager, err := payments.NewManager(providers, c.Config.Payments.Provider)
	if err != nil {
		return nil, fmt.Errorf("build payment gateway: %w", err)
	}
	return manager, nil
}

func (c *Container) buildEventPublisher(ctx context.Context) (*jobs.PubSubOrderEventPublisher, error) {
	client, err := pubsub.NewClient(ctx, c.Config.Events.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("initialise pubsub client: %w", err)
	}
	c.pubsubClient = client
	c.pubsubTopic = client.Topic(c.Config.Events.Topic)

	publisher, err := jobs.NewPubSubOrderEventPublisher(c.pubsubTopic)
	if err != nil {
		return nil, fmt.Errorf("build order event publisher: %w", err)
	}
	return publisher, nil
}

func (c *Container) buildHealthRepository(client *firestore.Client) (repositories.HealthRepository, error) {
	checks := []repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := client.Collections(ctx).Next()
				if err != nil && !errors.Is(err, iterator.Done) {
					return err
				}
				return nil
			},
		},
	}

	if c.pubsubTopic != nil {
		topic := c.pubsubTopic
		checks = append(checks, repositories.DependencyCheck{
			Name: "pubsub",
			Check: func(ctx context.Context) error {
				exists, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("topic %s does not exist", topic.ID())
				}
				return nil
			},
		})
	}

	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, fmt.Errorf("build health repository: %w", err)
	}
	return repo, nil
}

// buildImageStore assembles the signed-upload store when a media bucket is
// configured. Returns nil when the feature is disabled.
func (c *Container) buildImageStore() (services.ProductImageStore, error) {
	if c.Config.Media.Bucket == "" {
		return nil, nil
	}

	signerFile := c.Config.Media.SignerCredentialsFile
	if signerFile == "" {
		signerFile = c.Config.Firebase.CredentialsFile
	}
	signer, err := storage.NewServiceAccountSignerFromFile(signerFile)
	if err != nil {
		return nil, fmt.Errorf("build media signer: %w", err)
	}

	store, err := storage.NewImageStore(storage.ImageStoreConfig{
		Bucket:        c.Config.Media.Bucket,
		PublicBaseURL: c.Config.Media.PublicBaseURL,
		UploadTTL:     c.Config.Media.UploadTTL,
		Signer:        signer,
	})
	if err != nil {
		return nil, fmt.Errorf("build image store: %w", err)
	}
	return store, nil
}

func (c *Container) buildServices(registry *repofirestore.Registry, gateway *payments.Manager, publisher services.OrderEventPublisher, healthRepo repositories.HealthRepository, media services.ProductImageStore) (Services, error) {
	logHook := observability.ServiceLogHook()

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Repository: registry.Products(),
		Media:      media,
		Clock:      time.Now,
		Logger:     logHook,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}

	cart, err := services.NewCartService(services.CartServiceDeps{
		Repository: registry.Carts(),
		Products:   registry.Products(),
		Clock:      time.Now,
		Logger:     logHook,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}

	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Checkout: registry.Checkout(),
		Orders:   registry.Orders(),
		Payments: gateway,
		Events:   publisher,
		Clock:    time.Now,
		Logger:   logHook,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Repository: registry.Orders(),
		Events:     publisher,
		Clock:      time.Now,
		Logger:     logHook,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}

	paymentsSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
		Orders:   registry.Orders(),
		Provider: gateway,
		Verifier: gateway,
		Events:   publisher,
		Clock:    time.Now,
		Logger:   logHook,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment service: %w", err)
	}

	system, err := services.NewSystemService(services.SystemServiceDeps{
		Health: healthRepo,
		Logger: logHook,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}

	return Services{
		Catalog:  catalog,
		Cart:     cart,
		Checkout: checkout,
		Orders:   orders,
		Payments: paymentsSvc,
		System:   system,
	}, nil
}

// Close releases the Firestore client and Pub/Sub resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}

	var errs []error

	if c.pubsubTopic != nil {
		c.pubsubTopic.Stop()
		c.pubsubTopic = nil
	}
	if c.pubsubClient != nil {
		if err := c.pubsubClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub client: %w", err))
		}
		c.pubsubClient = nil
	}

	if c.registry != nil {
		if err := c.registry.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close repositories: %w", err))
		}
		c.registry = nil
		c.provider = nil
	} else if c.provider != nil {
		if err := c.provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close firestore provider: %w", err))
		}
		c.provider = nil
	}

	return errors.Join(errs...)
}
