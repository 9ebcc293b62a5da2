package main

// GET    /carts/{cartId}                       - cart contents and cached total
// POST   /carts                                - start tracking a cart
// POST   /carts/{cartId}/items                 - reserve stock and add it to the cart
// PUT    /carts/{cartId}/items/{productId}     - change a held quantity
// DELETE /carts/{cartId}/items/{productId}     - drop an item and release its stock
// DELETE /carts/{cartId}/items                 - release everything and empty the cart
// POST   /carts/{cartId}/checkout              - turn the cart into an order
// GET    /products, /sales                     - catalog and discounts

// --- EMBED MIGRATIONS ---
import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"storefront/config"
	"storefront/handler"
	"storefront/logging"
	"storefront/service"
	"storefront/store"
)

//go:embed migrations.sql
var migrationSQL string

func main() {
	cfg := config.Load()

	log, err := logging.New(logging.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	repo, err := openRepository(cfg, log)
	if err != nil {
		log.Fatal("repository setup failed", zap.Error(err))
	}
	defer repo.Close()

	// --- Service ---
	svc := service.NewService(repo, log)
	if err := svc.Seed(); err != nil {
		log.Fatal("seeding failed", zap.Error(err))
	}
	var serviceInterface service.ServiceInterface = svc

	// --- Handlers ---
	h := handler.NewHandler(serviceInterface, log)

	// --- Router ---
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	// --- Server ---
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server running", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func openRepository(cfg config.Config, log *zap.Logger) (store.Repository, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory repository")
		return store.NewMemoryRepository(nil, nil), nil
	}

	st, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	// --- RUN MIGRATIONS ---
	if cfg.RunMigrations {
		if err := st.Migrate(migrationSQL); err != nil {
			_ = st.Close()
			return nil, err
		}
		log.Info("database migrations executed")
	}
	return st, nil
}
