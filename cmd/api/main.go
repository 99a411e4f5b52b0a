package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"pharmacy/internal/config"
	"pharmacy/internal/domain/model"
	"pharmacy/internal/handler"
	"pharmacy/internal/infra/cache"
	"pharmacy/internal/infra/db"
	"pharmacy/internal/infra/notify"
	infraRepo "pharmacy/internal/infra/repository"
	"pharmacy/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	// .envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	//Postgres接続
	gormDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		slog.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	if err := gormDB.AutoMigrate(
		&model.TaxClass{},
		&model.Brand{},
		&model.Category{},
		&model.Product{},
		&model.Inventory{},
		&model.Customer{},
		&model.Order{},
		&model.OrderLine{},
		&model.Transaction{},
		&model.FormMetaData{},
	); err != nil {
		slog.Error("auto migrate failed", "error", err)
		os.Exit(1)
	}

	//Mongo接続（カート）
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	mongoDB, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		slog.Error("mongo connect failed", "error", err)
		os.Exit(1)
	}

	//Redis接続（カート表示キャッシュ）
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	//Repository生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	brandRepo := infraRepo.NewBrandGormRepository(gormDB)
	customerRepo := infraRepo.NewCustomerGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderLineRepo := infraRepo.NewOrderLineGormRepository(gormDB)
	transactionRepo := infraRepo.NewTransactionGormRepository(gormDB)
	formMetaRepo := infraRepo.NewFormMetaGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartMongoRepository(mongoDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	cartCache := cache.NewRedisCache(redisClient)

	//通知
	emailNotifier := notify.NewEmailNotifier(cfg.EmailEndpoint)
	slackNotifier := notify.NewSlackNotifier(cfg.SlackWebhookURL)

	//Usecase生成
	restriction := usecase.NewRestrictionPolicy(categoryRepo, cfg.RestrictionRules)
	cartUC := usecase.NewCartUsecase(cartRepo, productRepo, restriction, cartCache)
	orderUC := usecase.NewOrderUsecase(
		txManager, orderRepo, orderLineRepo, transactionRepo, formMetaRepo,
		cartRepo, customerRepo, productRepo,
		emailNotifier, slackNotifier,
	)
	productUC := usecase.NewProductUsecase(productRepo, inventoryRepo)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo)
	brandUC := usecase.NewBrandUsecase(brandRepo)

	//Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORS())

	//Handler生成とルート登録
	handler.NewProductHandler(productUC).RegisterRoutes(e)
	handler.NewAdminProductHandler(productUC).RegisterRoutes(e, cfg)
	handler.NewCategoryHandler(categoryUC).RegisterRoutes(e, cfg)
	handler.NewBrandHandler(brandUC).RegisterRoutes(e, cfg)
	handler.NewCartHandler(cartUC).RegisterRoutes(e, cfg)
	handler.NewOrderHandler(orderUC).RegisterRoutes(e, cfg)
	handler.NewWebhookHandler(orderUC).RegisterRoutes(e)

	addr := ":" + cfg.Port
	slog.Info("starting api server", "addr", addr, "env", cfg.GoEnv)
	if err := e.Start(addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
