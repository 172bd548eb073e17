package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"mercadito/internal/adapter/api"
	"mercadito/internal/adapter/api/handler"
	apimiddleware "mercadito/internal/adapter/api/middleware"
	"mercadito/internal/adapter/api/router"
	"mercadito/internal/adapter/repository"
	"mercadito/internal/infrastructure/firebase"
	"mercadito/internal/infrastructure/genai"
	"mercadito/internal/infrastructure/websocket"
	"mercadito/internal/usecase"
	"mercadito/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	recommender, err := genai.NewRecommender(ctx, cfg.GeminiApiKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to initialize recommendation client: %v", err)
	}

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	productRepo := repository.NewFirestoreProductRepository(firestoreClient)
	chatRepo := repository.NewFirestoreChatRepository(firestoreClient)

	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient, cfg.FirebaseApiKey)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	authUseCase := usecase.NewAuthUseCase(userRepo, firebaseAuthClient)
	userUseCase := usecase.NewUserUseCase(userRepo)
	productUseCase := usecase.NewProductUseCase(productRepo)
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, productRepo, firebaseAuthClient, wsManager)
	recommendationUseCase := usecase.NewRecommendationUseCase(productRepo, recommender)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	authHandler := handler.NewAuthHandler(authUseCase)
	userHandler := handler.NewUserHandler(userUseCase)
	productHandler := handler.NewProductHandler(productUseCase)
	chatHandler := handler.NewChatHandler(chatUseCase)
	recommendationHandler := handler.NewRecommendationHandler(recommendationUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager, authClient, chatUseCase)

	router.Setup(e)
	router.SetupAuthRouter(e, authHandler)
	router.SetupUserRouter(e, userHandler, authMiddleware)
	router.SetupProductRouter(e, productHandler, authMiddleware)
	router.SetupChatRouter(e, chatHandler, authMiddleware)
	router.SetupRecommendationRouter(e, recommendationHandler, authMiddleware)
	router.SetupWebSocketRouter(e, wsHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
